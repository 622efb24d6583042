package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword 使用 bcrypt 生成带盐摘要（盐与 cost 都编码在结果里）
func HashPassword(pw string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckPassword 摘要为空或格式错误时返回 false，不会 panic
func CheckPassword(pw, hashed string) bool {
	if hashed == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(pw)) == nil
}
