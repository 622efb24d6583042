package utils

import (
	"crypto/rand"
	"encoding/base64"
	"strings"

	"github.com/google/uuid"
)

// NewID 32 位十六进制 ID（去掉横线的 uuid v4），对应 users.id varchar(32)
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// RandomToken URL 安全的随机串，用于 OAuth state 等一次性值
func RandomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
