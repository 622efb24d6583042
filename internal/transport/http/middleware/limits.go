package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"

	resp "github.com/DavidFields1/auth-api/internal/transport/http/response"
)

// ConcurrencyLimit 同时处理的请求上限；bcrypt 吃 CPU，排队超过 wait 直接 503
func ConcurrencyLimit(max int64, wait time.Duration) gin.HandlerFunc {
	sem := semaphore.NewWeighted(max)
	retryAfter := strconv.Itoa(max1s(wait))
	return func(c *gin.Context) {
		if !sem.TryAcquire(1) {
			ctx, cancel := context.WithTimeout(c.Request.Context(), wait)
			err := sem.Acquire(ctx, 1)
			cancel()
			if err != nil {
				c.Header("Retry-After", retryAfter)
				resp.Abort(c, resp.CodeUnavailable, "server busy")
				return
			}
		}
		defer sem.Release(1)
		c.Next()
	}
}

func max1s(d time.Duration) int {
	if s := int(d / time.Second); s > 1 {
		return s
	}
	return 1
}

// MaxBodyBytes 声明长度超限直接 413；未声明长度的由 MaxBytesReader 在读取时截断
func MaxBodyBytes(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > n {
			resp.Abort(c, resp.CodeTooLarge, "")
			return
		}
		if c.Request.Body != nil && c.Request.Body != http.NoBody {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}

// IsBodyTooLarge 绑定失败时区分 413 与普通 400
func IsBodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

// Timeout 给请求 ctx 加截止时间；handler 没写响应就超时的补 504
func Timeout(d time.Duration) gin.HandlerFunc {
	if d <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
		if !c.Writer.Written() && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			resp.Abort(c, resp.CodeTimeout, "request timed out")
		}
	}
}
