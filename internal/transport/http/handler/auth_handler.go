package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/DavidFields1/auth-api/internal/domain"
	"github.com/DavidFields1/auth-api/internal/service"
	"github.com/DavidFields1/auth-api/internal/transport/http/ez"
	resp "github.com/DavidFields1/auth-api/internal/transport/http/response"
)

// AuthHandler /api/v1/auth/*
type AuthHandler struct {
	auth  *service.AuthService
	oauth *service.OAuthBridge // 未配置 Google 时为 nil
	guard *service.Guard
	log   *zap.Logger
	// 注册/登录的每 IP 限速，可为 nil
	credLimit gin.HandlerFunc
}

func NewAuthHandler(a *service.AuthService, o *service.OAuthBridge, g *service.Guard, l *zap.Logger, credLimit gin.HandlerFunc) *AuthHandler {
	if l == nil {
		l = zap.NewNop()
	}
	return &AuthHandler{auth: a, oauth: o, guard: g, log: l, credLimit: credLimit}
}

func (h *AuthHandler) Priority() int { return 10 }

type signupIn struct {
	Email     string `json:"email"     binding:"required,email"`
	Password  string `json:"password"  binding:"required,strongpassword"`
	FirstName string `json:"firstName" binding:"required,min=2,max=64"`
	LastName  string `json:"lastName"  binding:"required,min=2,max=64"`
	// 公开注册只允许 email；google 账号由回调创建
	Provider string `json:"provider" binding:"omitempty,oneof=email"`
}

type loginIn struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required,strongpassword"`
}

type passwordIn struct {
	Password string `json:"password" binding:"required,strongpassword"`
}

type googleCallbackIn struct {
	State string `form:"state"`
	Code  string `form:"code"`
	Error string `form:"error"`
}

type googleOut struct {
	User *service.AuthResult `json:"user"`
}

func (h *AuthHandler) MountAPI(api *gin.RouterGroup) {
	e := ez.New(api, h.guard, h.log).Group("/auth")

	var limited []gin.HandlerFunc
	if h.credLimit != nil {
		limited = append(limited, h.credLimit)
	}

	ez.RegisterAction(e, ez.Action[signupIn, *service.AuthResult]{
		Method: http.MethodPost,
		Path:   "/signup",
		Binder: ez.BindJSON,
		Status: http.StatusCreated,
		Before: limited,
		Handler: func(c *gin.Context, _ *service.AuthContext, in *signupIn) (*service.AuthResult, error) {
			return h.auth.Signup(c.Request.Context(), service.SignupInput{
				Email:     in.Email,
				Password:  in.Password,
				FirstName: in.FirstName,
				LastName:  in.LastName,
				Provider:  domain.ProviderEmail,
			})
		},
	})

	ez.RegisterAction(e, ez.Action[loginIn, *service.AuthResult]{
		Method: http.MethodPost,
		Path:   "/login",
		Binder: ez.BindJSON,
		Before: limited,
		Handler: func(c *gin.Context, _ *service.AuthContext, in *loginIn) (*service.AuthResult, error) {
			return h.auth.Login(c.Request.Context(), in.Email, in.Password)
		},
	})

	ez.RegisterAction(e, ez.Action[passwordIn, *domain.User]{
		Method: http.MethodPatch,
		Path:   "/password",
		Binder: ez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, ac *service.AuthContext, in *passwordIn) (*domain.User, error) {
			return h.auth.UpdatePassword(c.Request.Context(), in.Password, ac.User)
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, *service.AuthResult]{
		Method: http.MethodGet,
		Path:   "/status",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, ac *service.AuthContext, _ *struct{}) (*service.AuthResult, error) {
			return h.auth.CheckAuthStatus(c.Request.Context(), ac.User)
		},
	})

	if h.oauth == nil {
		return
	}

	// 跳转 Google 授权页
	api.GET("/auth/google", func(c *gin.Context) {
		u, err := h.oauth.Start(c.Request.Context())
		if err != nil {
			h.log.Error("google start failed", zap.Error(err))
			_ = c.Error(err)
			resp.JSON(c, resp.Error(resp.CodeServerError, ""))
			return
		}
		c.Redirect(http.StatusFound, u)
	})

	ez.RegisterAction(e, ez.Action[googleCallbackIn, googleOut]{
		Method: http.MethodGet,
		Path:   "/google/redirect",
		Binder: ez.BindQuery,
		Handler: func(c *gin.Context, _ *service.AuthContext, in *googleCallbackIn) (googleOut, error) {
			if in.Error != "" {
				return googleOut{}, ez.Unauthorized("google login was not completed: " + in.Error)
			}
			res, err := h.oauth.Callback(c.Request.Context(), in.State, in.Code)
			if err != nil {
				return googleOut{}, err
			}
			return googleOut{User: res}, nil
		},
	})
}
