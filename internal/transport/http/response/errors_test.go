package response

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/DavidFields1/auth-api/internal/domain"
)

func TestFromError(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		code     int
		msg      string
		internal bool
	}{
		{"validation", &domain.ValidationError{Msgs: []string{"email must be a valid email"}}, 400, "email must be a valid email", false},
		{"duplicate", &domain.DuplicateEmailError{Detail: "Key (email)=(a@b.com) already exists."}, 400, "Key (email)=(a@b.com) already exists.", false},
		{"credentials", domain.ErrInvalidCredentials, 400, "Credentials are not valid", false},
		{"inactive", domain.ErrInvalidUser, 400, "Invalid user", false},
		{"unauth wrapped", fmt.Errorf("%w: token expired", domain.ErrUnauthenticated), 401, "Unauthorized", false},
		{"forbidden", &domain.ForbiddenError{User: "Ana Lima", Required: []domain.Role{domain.RoleAdmin}}, 403, "User 'Ana Lima' doesn't have a valid role. [admin]", false},
		{"not found", domain.ErrUserNotFound, 404, "User not found", false},
		{"other", errors.New("dial tcp: connection refused"), 500, "Unexpected error, check server logs", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, msg, internal := FromError(tc.err)
			assert.Equal(t, tc.code, code)
			assert.Equal(t, tc.msg, msg)
			assert.Equal(t, tc.internal, internal)
		})
	}
}
