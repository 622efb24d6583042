package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// ErrMiss Take 时 key 不存在或已过期
var ErrMiss = errors.New("cache: miss")

type Cache struct {
	RDB    *redis.Client
	Prefix string
	sf     singleflight.Group
}

func New(addr, pass string, db int) *Cache {
	return NewWithClient(redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db}))
}

func NewWithClient(rdb *redis.Client) *Cache {
	return &Cache{RDB: rdb, Prefix: "auth-api:"}
}

func (c *Cache) key(k string) string { return c.Prefix + k }

func (c *Cache) Ping(ctx context.Context) error { return c.RDB.Ping(ctx).Err() }

func (c *Cache) Close() error { return c.RDB.Close() }

func (c *Cache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, load func(context.Context) ([]byte, error)) ([]byte, error) {
	key = c.key(key)
	// 先读缓存
	if b, err := c.RDB.Get(ctx, key).Bytes(); err == nil {
		return b, nil
	}
	// single flight 合并回源
	v, err, _ := c.sf.Do(key, func() (any, error) {
		b, e := load(ctx)
		if e != nil {
			return nil, e
		}
		_ = c.RDB.Set(ctx, key, b, ttl).Err()
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Delete 写操作后失效
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	return c.RDB.Del(ctx, full...).Err()
}

// Generation 读取版本号，key 不存在时为 0
func (c *Cache) Generation(ctx context.Context, key string) (int64, error) {
	n, err := c.RDB.Get(ctx, c.key(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// Bump 版本号 +1 并续期；旧版本号下写入的值之后不会再被读到
func (c *Cache) Bump(ctx context.Context, key string, ttl time.Duration) error {
	k := c.key(key)
	pipe := c.RDB.TxPipeline()
	pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// PutOnce key 已存在返回 false
func (c *Cache) PutOnce(ctx context.Context, key, val string, ttl time.Duration) (bool, error) {
	return c.RDB.SetNX(ctx, c.key(key), val, ttl).Result()
}

// Take 读取并删除（一次性凭据）
func (c *Cache) Take(ctx context.Context, key string) (string, error) {
	v, err := c.RDB.GetDel(ctx, c.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	return v, err
}
