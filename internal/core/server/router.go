package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	resp "github.com/DavidFields1/auth-api/internal/transport/http/response"
)

type Options struct {
	Name        string
	Mode        string   // gin.DebugMode / gin.ReleaseMode / gin.TestMode
	CORSOrigins []string // 为空放行所有来源
}

// NewRouter 基础 engine：panic 恢复（zap 记录 + 统一响应体）+ CORS
func NewRouter(l *zap.Logger, o Options) *gin.Engine {
	if o.Mode != "" {
		gin.SetMode(o.Mode)
	}
	r := gin.New()
	r.Use(ginzap.CustomRecoveryWithZap(l, true, func(c *gin.Context, err any) {
		resp.Abort(c, resp.CodeServerError, "")
	}))
	r.Use(cors.New(corsConfig(o.CORSOrigins)))
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func BuildServer(addr string, handler http.Handler, rt, wt, it time.Duration, errLog *log.Logger) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       rt,
		ReadHeaderTimeout: rt,
		WriteTimeout:      wt,
		IdleTimeout:       it,
		MaxHeaderBytes:    1 << 20, // 1MB
		ErrorLog:          errLog,
	}
}

// Run 异步启动，ctx 结束后优雅关闭
func Run(ctx context.Context, srv *http.Server, l *zap.Logger, grace time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		l.Info("http starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen %s: %w", srv.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	l.Info("http stopped gracefully", zap.String("addr", srv.Addr))
	return nil
}

func Addr(host string, port int) string { return fmt.Sprintf("%s:%d", host, port) }

// HumanURL 启动日志里打印可点击地址
func HumanURL(host string, port int) string {
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s:%d", host, port)
}
