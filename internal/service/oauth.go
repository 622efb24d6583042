package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/DavidFields1/auth-api/internal/core/oauth"
	"github.com/DavidFields1/auth-api/internal/domain"
)

type OAuthProvider interface {
	AuthCodeURL(ctx context.Context) (string, error)
	Exchange(ctx context.Context, state, code string) (*oauth.Profile, error)
}

// OAuthBridge 外部登录回调 → AuthService 的建号/登录流程
type OAuthBridge struct {
	provider OAuthProvider
	auth     *AuthService
	log      *zap.Logger
}

func NewOAuthBridge(p OAuthProvider, a *AuthService, l *zap.Logger) *OAuthBridge {
	if l == nil {
		l = zap.NewNop()
	}
	return &OAuthBridge{provider: p, auth: a, log: l.Named("oauth")}
}

func (b *OAuthBridge) Start(ctx context.Context) (string, error) {
	return b.provider.AuthCodeURL(ctx)
}

func (b *OAuthBridge) Callback(ctx context.Context, state, code string) (*AuthResult, error) {
	p, err := b.provider.Exchange(ctx, state, code)
	if err != nil {
		if errors.Is(err, oauth.ErrInvalidState) || errors.Is(err, oauth.ErrExchange) {
			b.log.Info("google callback rejected", zap.Error(err))
			return nil, fmt.Errorf("%w: %w", domain.ErrUnauthenticated, err)
		}
		return nil, err
	}
	if strings.TrimSpace(p.Email) == "" {
		return nil, &domain.ValidationError{Msgs: []string{"google account has no email"}}
	}
	if !p.EmailVerified {
		return nil, &domain.ValidationError{Msgs: []string{"google email is not verified"}}
	}
	name := p.GivenName
	if strings.TrimSpace(name) == "" {
		name = p.Name
	}
	return b.auth.ValidateOAuthLogin(ctx, p.Email, name)
}
