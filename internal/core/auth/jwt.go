package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingSecret = errors.New("jwt: secret is not configured")
	ErrMissingTTL    = errors.New("jwt: expiry duration is not configured")

	// 校验失败的三种内部原因；对外统一 401
	ErrTokenExpired          = errors.New("token expired")
	ErrTokenMalformed        = errors.New("token malformed")
	ErrTokenInvalidSignature = errors.New("token signature invalid")
)

type Claims struct {
	UID string `json:"uid"`
	jwt.RegisteredClaims
}

type JWTer struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
	Leeway time.Duration
	Now    func() time.Time // 测试注入时钟
}

// NewJWTer 启动期校验：缺 secret 或 TTL 直接报错，进程不应继续启动
func NewJWTer(secret, issuer string, ttl time.Duration) (*JWTer, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if ttl <= 0 {
		return nil, ErrMissingTTL
	}
	return &JWTer{Secret: []byte(secret), Issuer: issuer, TTL: ttl}, nil
}

func (j *JWTer) now() time.Time {
	if j.Now != nil {
		return j.Now()
	}
	return time.Now()
}

func (j *JWTer) Issue(uid string) (string, error) {
	if uid == "" {
		return "", errors.New("jwt: empty subject")
	}
	now := j.now()
	claims := Claims{
		UID: uid,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			Issuer:    j.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.TTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.Secret)
}

// Verify 返回的错误一定包装了 ErrTokenExpired / ErrTokenMalformed / ErrTokenInvalidSignature 之一
func (j *JWTer) Verify(tokenStr string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	}
	if j.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.Issuer))
	}
	if j.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(j.Leeway))
	}

	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return j.Secret, nil
	}, opts...)
	if err != nil {
		return nil, classify(err)
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid {
		return nil, fmt.Errorf("%w: invalid claims", ErrTokenMalformed)
	}
	if c.UID == "" {
		return nil, fmt.Errorf("%w: missing uid claim", ErrTokenMalformed)
	}
	return c, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrTokenInvalidSignature, err)
	default:
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
}
