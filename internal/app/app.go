package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/DavidFields1/auth-api/internal/core/auth"
	"github.com/DavidFields1/auth-api/internal/core/cache"
	"github.com/DavidFields1/auth-api/internal/core/config"
	"github.com/DavidFields1/auth-api/internal/core/database"
	"github.com/DavidFields1/auth-api/internal/core/oauth"
	"github.com/DavidFields1/auth-api/internal/domain"
	"github.com/DavidFields1/auth-api/internal/feature/user"
	"github.com/DavidFields1/auth-api/internal/repo"
	"github.com/DavidFields1/auth-api/internal/service"
	"github.com/DavidFields1/auth-api/internal/transport/http/handler"
	mdw "github.com/DavidFields1/auth-api/internal/transport/http/middleware"
	"github.com/DavidFields1/auth-api/internal/transport/http/router"
	"golang.org/x/time/rate"
)

// App 进程内的依赖集合，两个入口（api / admin）共用
type App struct {
	Cfg   *config.Config
	Log   *zap.Logger
	DB    *gorm.DB
	Cache *cache.Cache // 未配置 redis 时为 nil

	Users domain.UserRepository
	Auth  *service.AuthService
	Guard *service.Guard
	Admin *service.UserService
	OAuth *service.OAuthBridge // 未配置 Google 时为 nil

	Registry *router.Registry
}

// New 打开数据库 / redis，迁移表结构，组装服务
func New(ctx context.Context, cfg *config.Config, l *zap.Logger) (*App, error) {
	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
		Logger:             l,
	})
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := database.Ping(pctx, db); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	l.Info("database connected", zap.String("driver", cfg.DB.Driver))

	var c *cache.Cache
	if cfg.Redis.Addr != "" {
		c = cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err := c.Ping(pctx); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		l.Info("redis connected", zap.String("addr", cfg.Redis.Addr))
	}

	a, err := Build(cfg, l, db, c)
	if err != nil {
		return nil, err
	}
	if err := a.Migrate(ctx); err != nil {
		return nil, err
	}
	if err := a.Admin.EnsureAdmins(ctx, cfg.Auth.AdminEmails); err != nil {
		return nil, fmt.Errorf("admin bootstrap: %w", err)
	}
	return a, nil
}

// Build 只做组装，测试里直接传 sqlite / miniredis
func Build(cfg *config.Config, l *zap.Logger, db *gorm.DB, c *cache.Cache) (*App, error) {
	jwter, err := auth.NewJWTer(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.TokenTTL())
	if err != nil {
		return nil, err
	}

	var users domain.UserRepository = repo.NewUserRepo(db)
	if c != nil && cfg.Auth.UserCacheTTLSec > 0 {
		users = repo.NewCachedUserRepo(users, c, time.Duration(cfg.Auth.UserCacheTTLSec)*time.Second, l)
	}

	a := &App{Cfg: cfg, Log: l, DB: db, Cache: c, Users: users}
	a.Auth = service.NewAuthService(users, auth.BcryptHasher{Cost: cfg.Auth.BcryptCost}, jwter, l)
	a.Guard = service.NewGuard(users, jwter, l)
	a.Admin = service.NewUserService(users, l)

	if cfg.Google.Enabled() {
		var states oauth.StateStore = oauth.NewMemoryStateStore()
		if c != nil {
			states = oauth.NewRedisStateStore(c)
		}
		g, err := oauth.NewGoogle(oauth.Config{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  cfg.Google.CallbackURL,
			StateTTL:     time.Duration(cfg.Google.StateTTLMin) * time.Minute,
		}, states)
		if err != nil {
			return nil, err
		}
		a.OAuth = service.NewOAuthBridge(g, a.Auth, l)
	}

	var credLimit gin.HandlerFunc
	if cfg.Auth.LoginRPS > 0 {
		credLimit = mdw.RateLimitPerIP(rate.Limit(cfg.Auth.LoginRPS), max(1, cfg.Auth.LoginBurst))
	}
	a.Registry = router.NewRegistry(
		handler.NewAuthHandler(a.Auth, a.OAuth, a.Guard, l, credLimit),
		handler.NewAdminHandler(a.Admin, a.Guard, l),
	)
	return a, nil
}

func (a *App) Migrate(ctx context.Context) error {
	if !a.Cfg.DB.AutoMigrate {
		return nil
	}
	if err := a.DB.WithContext(ctx).AutoMigrate(&user.UserModel{}); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	a.Log.Info("automigrate done")
	return nil
}

func (a *App) routerOptions() router.Options {
	mode := gin.DebugMode
	switch a.Cfg.App.Env {
	case "prod", "production":
		mode = gin.ReleaseMode
	case "test":
		mode = gin.TestMode
	}
	return router.Options{Mode: mode, CORSOrigins: a.Cfg.App.HTTP.CORSOrigins}
}

func (a *App) APIEngine() *gin.Engine {
	return router.NewAPIEngine(a.Log, a.routerOptions(), a.Registry)
}

func (a *App) AdminEngine() *gin.Engine {
	return router.NewAdminEngine(a.Log, a.routerOptions(), a.Registry, a.Guard)
}

func (a *App) Close() {
	if a.Cache != nil {
		_ = a.Cache.Close()
	}
	if err := database.Close(a.DB); err != nil {
		a.Log.Warn("db close", zap.Error(err))
	}
}
