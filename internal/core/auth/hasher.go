package auth

import "github.com/DavidFields1/auth-api/pkg/utils"

// BcryptHasher 无共享状态，可并发使用
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(plain string) (string, error) {
	return utils.HashPassword(plain, h.Cost)
}

func (h BcryptHasher) Verify(plain, digest string) bool {
	return utils.CheckPassword(plain, digest)
}
