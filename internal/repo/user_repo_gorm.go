package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/DavidFields1/auth-api/internal/domain"
	"github.com/DavidFields1/auth-api/internal/feature/user"
)

const (
	pgUniqueViolation = "23505"
	myDuplicateEntry  = 1062
)

type UserRepo struct{ db *gorm.DB }

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{db: db} }

var _ domain.UserRepository = (*UserRepo)(nil)

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	m := user.FromDomain(u)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		if detail, ok := duplicateDetail(err, m.Email); ok {
			return &domain.DuplicateEmailError{Detail: detail}
		}
		return fmt.Errorf("create user: %w", err)
	}
	*u = *m.ToDomain()
	return nil
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.first(ctx, "email = ?", domain.NormalizeEmail(email))
}

func (r *UserRepo) first(ctx context.Context, query string, arg any) (*domain.User, error) {
	var m user.UserModel
	err := r.db.WithContext(ctx).Where(query, arg).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return m.ToDomain(), nil
}

func (r *UserRepo) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return r.update(ctx, id, "password_hash", hash)
}

func (r *UserRepo) SetActive(ctx context.Context, id string, active bool) error {
	return r.update(ctx, id, "is_active", active)
}

func (r *UserRepo) SetRoles(ctx context.Context, id string, roles []domain.Role) error {
	// roles 列走 json serializer，需要用结构体更新
	m := user.FromDomain(&domain.User{ID: id, Roles: roles})
	res := r.db.WithContext(ctx).Model(&user.UserModel{}).Where("id = ?", id).Select("roles").Updates(m)
	return r.checkUpdated(ctx, res, id, "roles")
}

func (r *UserRepo) update(ctx context.Context, id, column string, value any) error {
	res := r.db.WithContext(ctx).Model(&user.UserModel{}).Where("id = ?", id).Update(column, value)
	return r.checkUpdated(ctx, res, id, column)
}

func (r *UserRepo) checkUpdated(ctx context.Context, res *gorm.DB, id, column string) error {
	if res.Error != nil {
		return fmt.Errorf("update user %s: %w", column, res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}
	// MySQL 值未变化时 RowsAffected 也是 0，再确认一次是否存在
	var n int64
	if err := r.db.WithContext(ctx).Model(&user.UserModel{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return fmt.Errorf("update user %s: %w", column, err)
	}
	if n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepo) List(ctx context.Context, in domain.ListQuery) ([]domain.User, int64, error) {
	if in.Limit <= 0 || in.Limit > 100 {
		in.Limit = 20
	}
	if in.Offset < 0 {
		in.Offset = 0
	}
	q := r.db.WithContext(ctx).Model(&user.UserModel{})
	if s := strings.TrimSpace(in.Q); s != "" {
		like := "%" + s + "%"
		q = q.Where("email LIKE ? OR first_name LIKE ? OR last_name LIKE ?", strings.ToLower(like), like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	var ms []user.UserModel
	if err := q.Order("created_at DESC").Order("id").Limit(in.Limit).Offset(in.Offset).Find(&ms).Error; err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	out := make([]domain.User, 0, len(ms))
	for i := range ms {
		out = append(out, *ms[i].ToDomain())
	}
	return out, total, nil
}

// duplicateDetail 唯一约束冲突时返回给客户端的描述：pg 用 detail，mysql 用 message
func duplicateDetail(err error, email string) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != pgUniqueViolation {
			return "", false
		}
		return pgErr.Detail, true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		if myErr.Number != myDuplicateEntry {
			return "", false
		}
		return myErr.Message, true
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || isDupKey(err) {
		return fmt.Sprintf("Key (email)=(%s) already exists.", email), true
	}
	return "", false
}

func isDupKey(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation")
}
