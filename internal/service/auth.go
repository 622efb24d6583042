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

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) bool
}

type TokenService interface {
	Issue(uid string) (string, error)
	Verify(token string) (*auth.Claims, error)
}

type SignupInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Provider  domain.Provider // 空值按 email 处理
}

// AuthResult 用户字段与 token 平铺在同一层 JSON 里
type AuthResult struct {
	*domain.User
	Token string `json:"token"`
}

type AuthService struct {
	users  domain.UserRepository
	hasher PasswordHasher
	tokens TokenService
	log    *zap.Logger

	// 邮箱不存在时也跑一次 bcrypt，响应时间与密码错误一致
	dummyHash string
}

func NewAuthService(users domain.UserRepository, hasher PasswordHasher, tokens TokenService, l *zap.Logger) *AuthService {
	if l == nil {
		l = zap.NewNop()
	}
	s := &AuthService{users: users, hasher: hasher, tokens: tokens, log: l.Named("auth")}
	if h, err := hasher.Hash("not-a-real-password-1A!"); err == nil {
		s.dummyHash = h
	}
	return s
}

func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	if in.Provider == "" {
		in.Provider = domain.ProviderEmail
	}
	email := domain.NormalizeEmail(in.Email)
	first := strings.TrimSpace(in.FirstName)
	last := strings.TrimSpace(in.LastName)
	if err := domain.ValidateSignup(email, in.Password, first, last, in.Provider); err != nil {
		return nil, err
	}

	u := &domain.User{
		Email:     email,
		FirstName: first,
		LastName:  last,
		IsActive:  true,
		Roles:     []domain.Role{domain.RoleUser},
		Provider:  in.Provider,
	}
	if in.Provider == domain.ProviderEmail {
		h, err := s.hasher.Hash(in.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		u.PasswordHash = h
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	s.log.Info("user signed up", zap.String("uid", u.ID), zap.String("provider", string(u.Provider)))
	return s.result(u)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	u, err := s.users.FindByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if u == nil || u.PasswordHash == "" {
		if s.dummyHash != "" {
			_ = s.hasher.Verify(password, s.dummyHash)
		}
		return nil, domain.ErrInvalidCredentials
	}
	if !s.hasher.Verify(password, u.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	return s.result(u)
}

// UpdatePassword 只需要已登录身份，不校验旧密码
func (s *AuthService) UpdatePassword(ctx context.Context, newPassword string, current *domain.User) (*domain.User, error) {
	if current == nil {
		return nil, domain.ErrUnauthenticated
	}
	if current.Provider != domain.ProviderEmail {
		return nil, &domain.ValidationError{Msgs: []string{"password cannot be set for " + string(current.Provider) + " accounts"}}
	}
	if err := domain.CheckPasswordPolicy(newPassword); err != nil {
		return nil, err
	}
	h, err := s.hasher.Hash(newPassword)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePasswordHash(ctx, current.ID, h); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, err
	}
	u, err := s.users.FindByID(ctx, current.ID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.ErrUnauthenticated
	}
	s.log.Info("password updated", zap.String("uid", u.ID))
	return u.Sanitized(), nil
}

// ValidateOAuthLogin 外部账号登录：按 email 找人，没有就建一个 google 账号
func (s *AuthService) ValidateOAuthLogin(ctx context.Context, email, displayName string) (*AuthResult, error) {
	email = domain.NormalizeEmail(email)
	if err := domain.ValidateEmail(email); err != nil {
		return nil, err
	}
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u != nil {
		return s.result(u)
	}

	first := strings.TrimSpace(displayName)
	if first == "" {
		first = email[:strings.IndexByte(email, '@')]
	}
	// 外部资料里的名字不受注册校验约束，按列宽截断
	if r := []rune(first); len(r) > domain.NameMaxLen {
		first = string(r[:domain.NameMaxLen])
	}
	u = &domain.User{
		Email:     email,
		FirstName: first,
		IsActive:  true,
		Roles:     []domain.Role{domain.RoleUser},
		Provider:  domain.ProviderGoogle,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if !errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, err
		}
		// 并发兜底：另一个回调先建好了，再查一次
		u, err = s.users.FindByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if u == nil {
			return nil, fmt.Errorf("oauth user %s vanished after duplicate", email)
		}
		return s.result(u)
	}
	s.log.Info("user signed up", zap.String("uid", u.ID), zap.String("provider", string(u.Provider)))
	return s.result(u)
}

// CheckAuthStatus 给当前身份换一个新 token
func (s *AuthService) CheckAuthStatus(_ context.Context, current *domain.User) (*AuthResult, error) {
	if current == nil {
		return nil, domain.ErrUnauthenticated
	}
	return s.result(current)
}

func (s *AuthService) result(u *domain.User) (*AuthResult, error) {
	tok, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &AuthResult{User: u.Sanitized(), Token: tok}, nil
}
