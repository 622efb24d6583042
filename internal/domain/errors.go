package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation         = errors.New("invalid input")
	ErrDuplicateEmail     = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("credentials are not valid")
	ErrUnauthenticated    = errors.New("unauthorized")
	ErrInvalidUser        = errors.New("invalid user")
	ErrForbidden          = errors.New("forbidden")
	ErrUserNotFound       = errors.New("user not found")
)

// DuplicateEmailError 携带存储层给出的冲突描述（如 pg 的 detail）
type DuplicateEmailError struct {
	Detail string
}

func (e *DuplicateEmailError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return ErrDuplicateEmail.Error()
}

func (e *DuplicateEmailError) Is(target error) bool { return target == ErrDuplicateEmail }

// ForbiddenError 角色不匹配
type ForbiddenError struct {
	User     string
	Required []Role
}

func (e *ForbiddenError) Error() string {
	roles := make([]string, 0, len(e.Required))
	for _, r := range e.Required {
		roles = append(roles, string(r))
	}
	return fmt.Sprintf("User '%s' doesn't have a valid role. [%s]", e.User, strings.Join(roles, ", "))
}

func (e *ForbiddenError) Is(target error) bool { return target == ErrForbidden }

// ValidationError 字段级校验失败
type ValidationError struct {
	Msgs []string
}

func (e *ValidationError) Error() string { return strings.Join(e.Msgs, "; ") }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(msgs ...string) error { return &ValidationError{Msgs: msgs} }
