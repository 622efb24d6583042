package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/DavidFields1/auth-api/internal/core/auth"
	"github.com/DavidFields1/auth-api/internal/domain"
)

// AuthContext 守卫链通过后交给 handler 的身份
type AuthContext struct {
	User   *domain.User
	Claims *auth.Claims
}

type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Guard token → 用户 → 是否启用 → 角色
type Guard struct {
	users  domain.UserRepository
	tokens TokenVerifier
	log    *zap.Logger
}

func NewGuard(users domain.UserRepository, tokens TokenVerifier, l *zap.Logger) *Guard {
	if l == nil {
		l = zap.NewNop()
	}
	return &Guard{users: users, tokens: tokens, log: l.Named("guard")}
}

// BearerToken 解析 Authorization 头，scheme 不区分大小写
func BearerToken(header string) (string, bool) {
	scheme, tok, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}

// Authorize roles 为空时只要求登录；否则命中任意一个即可
func (g *Guard) Authorize(ctx context.Context, header string, roles ...domain.Role) (*AuthContext, error) {
	tok, ok := BearerToken(header)
	if !ok {
		g.log.Debug("rejected", zap.String("reason", "missing bearer token"))
		return nil, domain.ErrUnauthenticated
	}
	claims, err := g.tokens.Verify(tok)
	if err != nil {
		g.log.Debug("rejected", zap.String("reason", reason(err)), zap.Error(err))
		// 原因只留在错误链里，对外统一 401
		return nil, fmt.Errorf("%w: %w", domain.ErrUnauthenticated, err)
	}

	u, err := g.users.FindByID(ctx, claims.UID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		g.log.Debug("rejected", zap.String("reason", "user not found"), zap.String("uid", claims.UID))
		return nil, domain.ErrUnauthenticated
	}
	if !u.IsActive {
		return nil, domain.ErrInvalidUser
	}
	if !u.HasAnyRole(roles...) {
		return nil, &domain.ForbiddenError{User: u.FullName(), Required: roles}
	}
	return &AuthContext{User: u, Claims: claims}, nil
}

func reason(err error) string {
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return "expired"
	case errors.Is(err, auth.ErrTokenInvalidSignature):
		return "invalid signature"
	case errors.Is(err, auth.ErrTokenMalformed):
		return "malformed"
	}
	return "unknown"
}
