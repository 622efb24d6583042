package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	PasswordMinLen   = 8
	PasswordMaxLen   = 30
	// bcrypt 只接受 72 字节以内，多字节字符可能先超过这个上限
	PasswordMaxBytes = 72
	PasswordSpecials = "#?!@$%^&*-"
	NameMinLen       = 2
	NameMaxLen       = 64 // users.first_name / last_name 列宽

	TagStrongPassword = "strongpassword"

	msgWeakPassword = "password is too weak. It should contain at least 8 characters, one uppercase letter, one lowercase letter, one number and one special character."
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := RegisterValidations(v); err != nil {
		panic(err)
	}
	return v
}

// RegisterValidations 把自定义规则挂到任意 validator 实例（gin binding 引擎也复用这里）
func RegisterValidations(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v.RegisterValidation(TagStrongPassword, func(fl validator.FieldLevel) bool {
		return CheckPasswordPolicy(fl.Field().String()) == nil
	})
}

// CheckPasswordPolicy 8-30 位且不超过 72 字节，至少一个大写、小写、数字和 #?!@$%^&*- 中的特殊字符
func CheckPasswordPolicy(pw string) error {
	n := utf8.RuneCountInString(pw)
	if n < PasswordMinLen {
		return invalid(fmt.Sprintf("password must be at least %d characters", PasswordMinLen))
	}
	if n > PasswordMaxLen {
		return invalid(fmt.Sprintf("password must be at most %d characters", PasswordMaxLen))
	}
	if len(pw) > PasswordMaxBytes {
		return invalid(fmt.Sprintf("password must be at most %d bytes", PasswordMaxBytes))
	}
	var upper, lower, digit, special bool
	for _, r := range pw {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(PasswordSpecials, r):
			special = true
		}
	}
	if !upper || !lower || !digit || !special {
		return invalid(msgWeakPassword)
	}
	return nil
}

type signupRules struct {
	Email     string `json:"email"     validate:"required,email"`
	FirstName string `json:"firstName" validate:"min=2,max=64"`
	LastName  string `json:"lastName"  validate:"min=2,max=64"`
}

// ValidateSignup 服务层兜底校验，不依赖 HTTP 层是否已经校验过
func ValidateSignup(email, password, firstName, lastName string, p Provider) error {
	var msgs []string
	if !p.Valid() {
		msgs = append(msgs, "provider must be one of: email google")
	}
	if err := validate.Struct(signupRules{Email: email, FirstName: firstName, LastName: lastName}); err != nil {
		msgs = append(msgs, FieldErrors(err)...)
	}
	if p == ProviderEmail {
		if err := CheckPasswordPolicy(password); err != nil {
			msgs = append(msgs, err.Error())
		}
	}
	if len(msgs) > 0 {
		return invalid(msgs...)
	}
	return nil
}

func ValidateEmail(email string) error {
	if err := validate.Var(email, "required,email"); err != nil {
		return invalid("email must be a valid email")
	}
	return nil
}

// FieldErrors 把 validator 的错误转成可读信息
func FieldErrors(err error) []string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return []string{err.Error()}
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fieldError(fe))
	}
	return msgs
}

func fieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case TagStrongPassword:
		return msgWeakPassword
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}
