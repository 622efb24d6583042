package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/DavidFields1/auth-api/internal/app"
	"github.com/DavidFields1/auth-api/internal/core/config"
	"github.com/DavidFields1/auth-api/internal/core/logger"
	"github.com/DavidFields1/auth-api/internal/core/server"
)

func main() { os.Exit(run()) }

// run 返回进程退出码；defer 的清理在 os.Exit 之前都会执行
func run() int {
	_ = godotenv.Load()
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return 1
	}
	log, cleanup := logger.New(logger.Options{
		Level:     cfg.Log.Level,
		JSON:      cfg.Log.JSON,
		AddCaller: true,
		Rotate: logger.FileRotate{
			Filename:   cfg.Log.File.Filename,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	})
	defer cleanup()
	log = log.Named("admin")
	defer logger.RedirectStdLog(log, zapcore.InfoLevel)()
	gin.DefaultWriter = logger.ToWriter(log.Named("gin"), zapcore.DebugLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("bootstrap failed", zap.Error(err))
		return 1
	}
	defer a.Close()

	errLog, err := logger.ToStdLogger(log.Named("http"), zapcore.WarnLevel)
	if err != nil {
		log.Error("http error log", zap.Error(err))
		return 1
	}
	// 后台端口沿用用户端的超时配置
	addr := server.Addr(cfg.App.Admin.Host, cfg.App.Admin.Port)
	srv := server.BuildServer(
		addr, a.AdminEngine(),
		time.Duration(cfg.App.HTTP.ReadTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.WriteTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.IdleTimeoutSec)*time.Second,
		errLog,
	)

	baseURL := server.HumanURL(cfg.App.Admin.Host, cfg.App.Admin.Port)
	log.Info("admin api starting",
		zap.String("addr", addr),
		zap.String("open", baseURL),
		zap.String("health", baseURL+"/health"),
		zap.String("admin_v1", baseURL+"/admin/v1"),
		zap.Strings("bootstrap_admins", cfg.Auth.AdminEmails),
	)

	if err := server.Run(ctx, srv, log, 10*time.Second); err != nil {
		log.Error("admin api stopped with error", zap.Error(err))
		return 1
	}
	log.Info("admin api stopped")
	return 0
}
