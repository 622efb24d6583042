package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/DavidFields1/auth-api/internal/domain"
)

type UserList struct {
	Total int64          `json:"total"`
	Items []*domain.User `json:"items"`
}

// UserService 管理端：列表、启用/停用
type UserService struct {
	users domain.UserRepository
	log   *zap.Logger
}

func NewUserService(users domain.UserRepository, l *zap.Logger) *UserService {
	if l == nil {
		l = zap.NewNop()
	}
	return &UserService{users: users, log: l.Named("admin")}
}

func (s *UserService) List(ctx context.Context, q domain.ListQuery) (*UserList, error) {
	us, total, err := s.users.List(ctx, q)
	if err != nil {
		return nil, err
	}
	out := &UserList{Total: total, Items: make([]*domain.User, 0, len(us))}
	for i := range us {
		out.Items = append(out.Items, us[i].Sanitized())
	}
	return out, nil
}

func (s *UserService) Deactivate(ctx context.Context, actor *domain.User, id string) (*domain.User, error) {
	if actor != nil && actor.ID == id {
		return nil, &domain.ValidationError{Msgs: []string{"you cannot deactivate your own account"}}
	}
	return s.setActive(ctx, actor, id, false)
}

func (s *UserService) Activate(ctx context.Context, actor *domain.User, id string) (*domain.User, error) {
	return s.setActive(ctx, actor, id, true)
}

func (s *UserService) setActive(ctx context.Context, actor *domain.User, id string, active bool) (*domain.User, error) {
	if id == "" {
		return nil, &domain.ValidationError{Msgs: []string{"id is required"}}
	}
	if err := s.users.SetActive(ctx, id, active); err != nil {
		return nil, err
	}
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.ErrUserNotFound
	}
	fields := []zap.Field{zap.String("uid", id), zap.Bool("active", active)}
	if actor != nil {
		fields = append(fields, zap.String("by", actor.ID))
	}
	s.log.Info("user active changed", fields...)
	return u.Sanitized(), nil
}

// EnsureAdmins 给配置里的账号补上 admin 角色；还没注册的账号跳过
func (s *UserService) EnsureAdmins(ctx context.Context, emails []string) error {
	for _, raw := range emails {
		email := domain.NormalizeEmail(raw)
		if email == "" {
			continue
		}
		u, err := s.users.FindByEmail(ctx, email)
		if err != nil {
			return err
		}
		if u == nil {
			s.log.Warn("admin bootstrap: user not registered yet", zap.String("email", email))
			continue
		}
		if u.HasAnyRole(domain.RoleAdmin) {
			continue
		}
		roles := append(append([]domain.Role(nil), u.Roles...), domain.RoleAdmin)
		if err := s.users.SetRoles(ctx, u.ID, roles); err != nil {
			return err
		}
		s.log.Info("admin role granted", zap.String("uid", u.ID))
	}
	return nil
}
