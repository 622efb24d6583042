package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/DavidFields1/auth-api/internal/domain"
	"github.com/DavidFields1/auth-api/internal/service"
	"github.com/DavidFields1/auth-api/internal/transport/http/ez"
)

// AdminHandler /admin/v1/users；分组上已经挂了 admin 角色守卫
type AdminHandler struct {
	users *service.UserService
	guard *service.Guard
	log   *zap.Logger
}

func NewAdminHandler(users *service.UserService, g *service.Guard, l *zap.Logger) *AdminHandler {
	if l == nil {
		l = zap.NewNop()
	}
	return &AdminHandler{users: users, guard: g, log: l}
}

type listQ struct {
	Offset int    `form:"offset,default=0"  binding:"min=0"`
	Limit  int    `form:"limit,default=20"  binding:"min=1,max=100"`
	Q      string `form:"q"` // 按 email/姓名模糊搜
}

type idURI struct {
	ID string `uri:"id" binding:"required"`
}

func (h *AdminHandler) MountAdmin(admin *gin.RouterGroup) {
	e := ez.New(admin, h.guard, h.log)

	// --- GET /admin/v1/users  用户列表 ---
	ez.RegisterAction(e, ez.Action[listQ, *service.UserList]{
		Method: http.MethodGet,
		Path:   "/users",
		Binder: ez.BindQuery,
		Handler: func(c *gin.Context, _ *service.AuthContext, in *listQ) (*service.UserList, error) {
			return h.users.List(c.Request.Context(), domain.ListQuery{Offset: in.Offset, Limit: in.Limit, Q: in.Q})
		},
	})

	// --- POST /admin/v1/users/:id/deactivate  停用 ---
	ez.RegisterAction(e, ez.Action[idURI, *domain.User]{
		Method: http.MethodPost,
		Path:   "/users/:id/deactivate",
		Binder: ez.BindURI,
		Handler: func(c *gin.Context, ac *service.AuthContext, in *idURI) (*domain.User, error) {
			return h.users.Deactivate(c.Request.Context(), actor(ac), in.ID)
		},
	})

	// --- POST /admin/v1/users/:id/activate  启用 ---
	ez.RegisterAction(e, ez.Action[idURI, *domain.User]{
		Method: http.MethodPost,
		Path:   "/users/:id/activate",
		Binder: ez.BindURI,
		Handler: func(c *gin.Context, ac *service.AuthContext, in *idURI) (*domain.User, error) {
			return h.users.Activate(c.Request.Context(), actor(ac), in.ID)
		},
	})
}

func actor(ac *service.AuthContext) *domain.User {
	if ac == nil {
		return nil
	}
	return ac.User
}
