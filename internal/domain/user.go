package domain

import (
	"context"
	"strings"
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type Provider string

const (
	ProviderEmail  Provider = "email"
	ProviderGoogle Provider = "google"
)

func (p Provider) Valid() bool { return p == ProviderEmail || p == ProviderGoogle }

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // 仅 provider=email 时存在
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	IsActive     bool      `json:"isActive"`
	Roles        []Role    `json:"roles"`
	Provider     Provider  `json:"provider"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// HasAnyRole 任意一个命中即通过（OR 语义）；required 为空视为不限角色
func (u *User) HasAnyRole(required ...Role) bool {
	if len(required) == 0 {
		return true
	}
	for _, want := range required {
		for _, have := range u.Roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Sanitized 去掉密码摘要后的副本，返回给调用方
func (u *User) Sanitized() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.PasswordHash = ""
	c.Roles = append([]Role(nil), u.Roles...)
	return &c
}

// NormalizeEmail 所有写入与查询前统一小写 + 去空白
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type ListQuery struct {
	Offset int
	Limit  int
	Q      string // 按 email / 姓名模糊搜
}

// UserRepository 用户存储边界：唯一约束在 email 上
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	SetActive(ctx context.Context, id string, active bool) error
	SetRoles(ctx context.Context, id string, roles []Role) error
	List(ctx context.Context, q ListQuery) ([]User, int64, error)
}
