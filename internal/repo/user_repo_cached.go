package repo

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/DavidFields1/auth-api/internal/core/cache"
	"github.com/DavidFields1/auth-api/internal/domain"
)

// CachedUserRepo 守卫链每个请求都按 ID 查用户，这里走 redis；写操作后失效
//
// 缓存 key 带版本号，写操作只递增版本：失效前已经在回源的请求
// 会写到旧版本的 key 上，之后的读取看不到它。
// 缓存里的用户不含密码摘要，登录走 FindByEmail 不经过缓存。
type CachedUserRepo struct {
	domain.UserRepository
	c   *cache.Cache
	ttl time.Duration
	log *zap.Logger
}

func NewCachedUserRepo(inner domain.UserRepository, c *cache.Cache, ttl time.Duration, l *zap.Logger) *CachedUserRepo {
	if l == nil {
		l = zap.NewNop()
	}
	return &CachedUserRepo{UserRepository: inner, c: c, ttl: ttl, log: l}
}

// 版本号至少保留一天，远长于缓存值本身的 TTL
const minGenTTL = 24 * time.Hour

func userGenKey(id string) string { return "user:gen:" + id }

func userKey(id string, gen int64) string { return "user:" + id + ":" + strconv.FormatInt(gen, 10) }

func (r *CachedUserRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	gen, err := r.c.Generation(ctx, userGenKey(id))
	if err != nil {
		r.log.Warn("user cache unavailable, reading store", zap.String("uid", id), zap.Error(err))
		return r.UserRepository.FindByID(ctx, id)
	}
	return cache.GetOrLoadJSON(r.c, ctx, userKey(id, gen), r.ttl, func(ctx context.Context) (*domain.User, error) {
		return r.UserRepository.FindByID(ctx, id)
	})
}

func (r *CachedUserRepo) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	if err := r.UserRepository.UpdatePasswordHash(ctx, id, hash); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

func (r *CachedUserRepo) SetActive(ctx context.Context, id string, active bool) error {
	if err := r.UserRepository.SetActive(ctx, id, active); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

func (r *CachedUserRepo) SetRoles(ctx context.Context, id string, roles []domain.Role) error {
	if err := r.UserRepository.SetRoles(ctx, id, roles); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

func (r *CachedUserRepo) invalidate(ctx context.Context, id string) {
	if err := r.c.Bump(ctx, userGenKey(id), max(minGenTTL, 10*r.ttl)); err != nil {
		r.log.Warn("user cache invalidate failed", zap.String("uid", id), zap.Error(err))
	}
}
