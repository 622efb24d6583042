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
	defer logger.RedirectStdLog(log, zapcore.InfoLevel)()
	gin.DefaultWriter = logger.ToWriter(log.Named("gin"), zapcore.DebugLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 数据库 / redis / 迁移 / 服务组装
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
	addr := server.Addr(cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	srv := server.BuildServer(
		addr, a.APIEngine(),
		time.Duration(cfg.App.HTTP.ReadTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.WriteTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.IdleTimeoutSec)*time.Second,
		errLog,
	)

	baseURL := server.HumanURL(cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	log.Info("user api starting",
		zap.String("addr", addr),
		zap.String("open", baseURL),
		zap.String("health", baseURL+"/health"),
		zap.String("api_v1", baseURL+"/api/v1"),
		zap.Bool("google", a.OAuth != nil),
		zap.Bool("redis", a.Cache != nil),
	)

	if err := server.Run(ctx, srv, log, 10*time.Second); err != nil {
		log.Error("user api stopped with error", zap.Error(err))
		return 1
	}
	log.Info("user api stopped")
	return 0
}
