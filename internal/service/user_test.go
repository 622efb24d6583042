package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DavidFields1/auth-api/internal/domain"
)

func TestUserService_ListSanitized(t *testing.T) {
	f := newFixture(time.Hour)
	ctx := context.Background()
	for _, e := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		_, err := f.auth.Signup(ctx, signupInput(e))
		require.NoError(t, err)
	}
	s := NewUserService(f.repo, nil)

	out, err := s.List(ctx, domain.ListQuery{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), out.Total)
	require.Len(t, out.Items, 2)
	for _, u := range out.Items {
		assert.Equal(t, "", u.PasswordHash)
	}
}

func TestUserService_DeactivateThenActivate(t *testing.T) {
	f := newFixture(time.Hour)
	ctx := context.Background()
	admin, err := f.auth.Signup(ctx, signupInput("admin@example.com"))
	require.NoError(t, err)
	target, err := f.auth.Signup(ctx, signupInput("ana@example.com"))
	require.NoError(t, err)
	s := NewUserService(f.repo, nil)

	u, err := s.Deactivate(ctx, admin.User, target.ID)
	require.NoError(t, err)
	assert.False(t, u.IsActive)

	_, err = f.guard.Authorize(ctx, "Bearer "+target.Token)
	require.ErrorIs(t, err, domain.ErrInvalidUser)

	u, err = s.Activate(ctx, admin.User, target.ID)
	require.NoError(t, err)
	assert.True(t, u.IsActive)
	_, err = f.guard.Authorize(ctx, "Bearer "+target.Token)
	require.NoError(t, err)
}

func TestUserService_Rejections(t *testing.T) {
	f := newFixture(time.Hour)
	ctx := context.Background()
	admin, err := f.auth.Signup(ctx, signupInput("admin@example.com"))
	require.NoError(t, err)
	s := NewUserService(f.repo, nil)

	_, err = s.Deactivate(ctx, admin.User, admin.ID)
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = s.Activate(ctx, admin.User, "missing")
	require.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = s.Activate(ctx, admin.User, "")
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestUserService_EnsureAdmins(t *testing.T) {
	f := newFixture(time.Hour)
	ctx := context.Background()
	res, err := f.auth.Signup(ctx, signupInput("boss@example.com"))
	require.NoError(t, err)
	s := NewUserService(f.repo, nil)

	require.NoError(t, s.EnsureAdmins(ctx, []string{" BOSS@example.com", "", "ghost@example.com"}))
	require.NoError(t, s.EnsureAdmins(ctx, []string{"boss@example.com"}))

	u, _ := f.repo.FindByID(ctx, res.ID)
	assert.Equal(t, []domain.Role{domain.RoleUser, domain.RoleAdmin}, u.Roles)

	_, err = f.guard.Authorize(ctx, "Bearer "+res.Token, domain.RoleAdmin)
	require.NoError(t, err)
}
