package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/DavidFields1/auth-api/internal/domain"
	"github.com/DavidFields1/auth-api/internal/service"
	resp "github.com/DavidFields1/auth-api/internal/transport/http/response"
)

const (
	KeyAuth   = "auth"
	KeyUserID = "userId"
)

// AuthJWT 守卫链；roles 为空表示只要求登录
func AuthJWT(g *service.Guard, roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		ac, err := g.Authorize(c.Request.Context(), c.GetHeader("Authorization"), roles...)
		authDecisions.WithLabelValues(decision(err)).Inc()
		if err != nil {
			code, msg, internal := resp.FromError(err)
			if internal {
				_ = c.Error(err)
			}
			resp.Abort(c, code, msg)
			return
		}
		c.Set(KeyAuth, ac)
		c.Set(KeyUserID, ac.User.ID)
		c.Next()
	}
}

// CurrentAuth 未经过 AuthJWT 时返回 nil
func CurrentAuth(c *gin.Context) *service.AuthContext {
	v, ok := c.Get(KeyAuth)
	if !ok {
		return nil
	}
	ac, _ := v.(*service.AuthContext)
	return ac
}

func decision(err error) string {
	switch {
	case err == nil:
		return "allowed"
	case errors.Is(err, domain.ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, domain.ErrInvalidUser):
		return "invalid_user"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	}
	return "error"
}
