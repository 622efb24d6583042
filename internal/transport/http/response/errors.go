package response

import (
	"errors"

	"github.com/DavidFields1/auth-api/internal/domain"
)

// FromError 领域错误 → (code, msg)；internal 为 true 时调用方需要记日志，msg 已经是通用提示
func FromError(err error) (code int, msg string, internal bool) {
	var (
		ve *domain.ValidationError
		de *domain.DuplicateEmailError
		fe *domain.ForbiddenError
	)
	switch {
	case errors.As(err, &ve):
		return CodeBadRequest, ve.Error(), false
	case errors.As(err, &de):
		return CodeBadRequest, de.Error(), false
	case errors.Is(err, domain.ErrValidation):
		return CodeBadRequest, "Bad Request", false
	case errors.Is(err, domain.ErrInvalidCredentials):
		return CodeBadRequest, "Credentials are not valid", false
	case errors.Is(err, domain.ErrInvalidUser):
		return CodeBadRequest, "Invalid user", false
	case errors.Is(err, domain.ErrUnauthenticated):
		return CodeUnauthorized, "Unauthorized", false
	case errors.As(err, &fe):
		return CodeForbidden, fe.Error(), false
	case errors.Is(err, domain.ErrForbidden):
		return CodeForbidden, "Forbidden", false
	case errors.Is(err, domain.ErrUserNotFound):
		return CodeNotFound, "User not found", false
	}
	return CodeServerError, CodeMsgMap[CodeServerError], true
}
