package user

import (
	"time"

	"gorm.io/gorm"

	"github.com/DavidFields1/auth-api/internal/domain"
	"github.com/DavidFields1/auth-api/pkg/utils"
)

type UserModel struct {
	ID           string   `gorm:"primaryKey;type:varchar(32)"`
	Email        string   `gorm:"uniqueIndex;size:255;not null"`
	PasswordHash *string  `gorm:"size:100"` // google 等外部账号为 NULL
	FirstName    string   `gorm:"size:64;not null"`
	LastName     string   `gorm:"size:64;not null"`
	IsActive     bool     `gorm:"not null;index"`
	Roles        []string `gorm:"serializer:json;type:text;not null"`
	Provider     string   `gorm:"size:16;not null"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (UserModel) TableName() string { return "users" }

// BeforeSave 写库前统一 email 格式；按条件批量更新时 Email 为空，跳过
func (m *UserModel) BeforeSave(tx *gorm.DB) error {
	if m.Email != "" {
		m.Email = domain.NormalizeEmail(m.Email)
	}
	return nil
}

func (m *UserModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = utils.NewID()
	}
	if len(m.Roles) == 0 {
		m.Roles = []string{string(domain.RoleUser)}
	}
	if m.Provider == "" {
		m.Provider = string(domain.ProviderEmail)
	}
	return nil
}

func (m *UserModel) ToDomain() *domain.User {
	u := &domain.User{
		ID:        m.ID,
		Email:     m.Email,
		FirstName: m.FirstName,
		LastName:  m.LastName,
		IsActive:  m.IsActive,
		Roles:     make([]domain.Role, 0, len(m.Roles)),
		Provider:  domain.Provider(m.Provider),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if m.PasswordHash != nil {
		u.PasswordHash = *m.PasswordHash
	}
	for _, r := range m.Roles {
		u.Roles = append(u.Roles, domain.Role(r))
	}
	return u
}

func FromDomain(u *domain.User) *UserModel {
	m := &UserModel{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		IsActive:  u.IsActive,
		Roles:     make([]string, 0, len(u.Roles)),
		Provider:  string(u.Provider),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	if u.PasswordHash != "" {
		h := u.PasswordHash
		m.PasswordHash = &h
	}
	for _, r := range u.Roles {
		m.Roles = append(m.Roles, string(r))
	}
	return m
}
