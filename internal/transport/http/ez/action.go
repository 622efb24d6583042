package ez

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/DavidFields1/auth-api/internal/domain"
	"github.com/DavidFields1/auth-api/internal/service"
	mdw "github.com/DavidFields1/auth-api/internal/transport/http/middleware"
	resp "github.com/DavidFields1/auth-api/internal/transport/http/response"
)

type EZ struct {
	g     *gin.RouterGroup
	guard *service.Guard
	log   *zap.Logger
}

func New(g *gin.RouterGroup, guard *service.Guard, l *zap.Logger) EZ {
	if l == nil {
		l = zap.NewNop()
	}
	return EZ{g: g, guard: guard, log: l}
}

// Group 子分组，沿用同一个守卫和 logger
func (e EZ) Group(path string, handlers ...gin.HandlerFunc) EZ {
	return EZ{g: e.g.Group(path, handlers...), guard: e.guard, log: e.log}
}

// 绑定方式
type Binder string

const (
	BindJSON  Binder = "json"  // 从 JSON 绑定
	BindQuery Binder = "query" // 从 URL ?a=b 绑定
	BindURI   Binder = "uri"   // 从路径参数绑定
	BindNone  Binder = "none"  // 不绑定
)

// AErr handler 自己决定 code/msg 时用
type AErr struct {
	Code int
	Msg  string
	Err  error
}

func (e *AErr) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "action error"
}

func (e *AErr) Unwrap() error { return e.Err }

func BadRequest(msg string) error   { return &AErr{Code: resp.CodeBadRequest, Msg: msg} }
func Unauthorized(msg string) error { return &AErr{Code: resp.CodeUnauthorized, Msg: msg} }
func NotFound(msg string) error     { return &AErr{Code: resp.CodeNotFound, Msg: msg} }
func Internal(msg string, err error) error {
	return &AErr{Code: resp.CodeServerError, Msg: msg, Err: err}
}

// 动作定义：I 入参，O 出参
type Action[I any, O any] struct {
	Method string // GET / POST / PUT / PATCH / DELETE
	Path   string
	Binder Binder
	// Auth 为 true 时在路由上挂守卫链；分组已挂 AuthJWT 时可以留 false
	Auth  bool
	Roles []domain.Role
	// Status 成功时的 HTTP 状态，默认 200
	Status int
	// Before 额外的路由级中间件（如登录限速）
	Before  []gin.HandlerFunc
	Handler func(c *gin.Context, ac *service.AuthContext, in *I) (O, error)
}

// RegisterAction 在当前 EZ 下注册动作接口
func RegisterAction[I any, O any](e EZ, a Action[I, O]) {
	h := func(c *gin.Context) {
		var in I
		var bindErr error
		switch a.Binder {
		case BindJSON:
			bindErr = c.ShouldBindJSON(&in)
		case BindQuery:
			bindErr = c.ShouldBindQuery(&in)
		case BindURI:
			bindErr = c.ShouldBindUri(&in)
		default:
		}
		if bindErr != nil {
			if mdw.IsBodyTooLarge(bindErr) {
				resp.JSON(c, resp.Error(resp.CodeTooLarge, ""))
				return
			}
			resp.JSON(c, resp.Error(resp.CodeBadRequest, bindMessage(bindErr)))
			return
		}

		out, err := a.Handler(c, mdw.CurrentAuth(c), &in)
		if err != nil {
			e.writeErr(c, err)
			return
		}
		status := a.Status
		if status == 0 {
			status = http.StatusOK
		}
		c.JSON(status, resp.OK(out))
	}

	chain := make([]gin.HandlerFunc, 0, len(a.Before)+2)
	chain = append(chain, a.Before...)
	if a.Auth || len(a.Roles) > 0 {
		chain = append(chain, mdw.AuthJWT(e.guard, a.Roles...))
	}
	chain = append(chain, h)

	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		e.g.GET(a.Path, chain...)
	case http.MethodPut:
		e.g.PUT(a.Path, chain...)
	case http.MethodPatch:
		e.g.PATCH(a.Path, chain...)
	case http.MethodDelete:
		e.g.DELETE(a.Path, chain...)
	default: // 默认 POST
		e.g.POST(a.Path, chain...)
	}
}

// writeErr 统一错误映射；500 一律记日志，对外只给通用提示
func (e EZ) writeErr(c *gin.Context, err error) {
	var ae *AErr
	if errors.As(err, &ae) {
		if ae.Code >= resp.CodeServerError {
			e.logInternal(c, err)
			resp.JSON(c, resp.Error(ae.Code, ""))
			return
		}
		resp.JSON(c, resp.Error(ae.Code, ae.Error()))
		return
	}
	code, msg, internal := resp.FromError(err)
	if internal {
		e.logInternal(c, err)
	}
	resp.JSON(c, resp.Error(code, msg))
}

func (e EZ) logInternal(c *gin.Context, err error) {
	_ = c.Error(err)
	e.log.Error("request failed",
		zap.String("rid", c.GetString(mdw.KeyRequestID)),
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
}

func bindMessage(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return strings.Join(domain.FieldErrors(err), "; ")
	}
	return "invalid request body"
}

// RegisterBindings gin 的 binding 引擎也认识 strongpassword，字段名用 json tag
func RegisterBindings() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("ez: unexpected binding engine")
	}
	return domain.RegisterValidations(v)
}
