package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/DavidFields1/auth-api/internal/core/server"
	"github.com/DavidFields1/auth-api/internal/domain"
	"github.com/DavidFields1/auth-api/internal/service"
	"github.com/DavidFields1/auth-api/internal/transport/http/ez"
	mdw "github.com/DavidFields1/auth-api/internal/transport/http/middleware"
)

type Options struct {
	Mode          string
	CORSOrigins   []string
	RPS           float64
	Burst         int
	MaxConcurrent int64
	QueueWait     time.Duration
	MaxBodyBytes  int64
	Timeout       time.Duration
}

func (o Options) withDefaults() Options {
	if o.RPS <= 0 {
		o.RPS = 200
	}
	if o.Burst <= 0 {
		o.Burst = 400
	}
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = 300
	}
	if o.QueueWait <= 0 {
		o.QueueWait = 2 * time.Second
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = 1 << 20
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	return o
}

func newBase(l *zap.Logger, o Options) *gin.Engine {
	o = o.withDefaults()
	if err := ez.RegisterBindings(); err != nil {
		l.Fatal("register bindings", zap.Error(err))
	}
	r := server.NewRouter(l, server.Options{Mode: o.Mode, CORSOrigins: o.CORSOrigins})
	r.Use(
		mdw.RequestID(),
		mdw.RateLimit(rate.Limit(o.RPS), o.Burst),
		mdw.ConcurrencyLimit(o.MaxConcurrent, o.QueueWait),
		mdw.MaxBodyBytes(o.MaxBodyBytes),
		mdw.Timeout(o.Timeout),
		mdw.Metrics(),
		mdw.AccessLog(l),
	)

	// 健康检查 + 指标
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

// NewAPIEngine 用户端：/api/v1
func NewAPIEngine(l *zap.Logger, o Options, reg *Registry) *gin.Engine {
	r := newBase(l, o)
	reg.MountAllAPI(r.Group("/api/v1"))
	return r
}

// NewAdminEngine 管理端：/admin/v1，统一要求 admin 角色
func NewAdminEngine(l *zap.Logger, o Options, reg *Registry, guard *service.Guard) *gin.Engine {
	r := newBase(l, o)
	admin := r.Group("/admin/v1")
	admin.Use(mdw.AuthJWT(guard, domain.RoleAdmin))
	reg.MountAllAdmin(admin)
	return r
}
