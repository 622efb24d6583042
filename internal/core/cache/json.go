package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"
)

var nullJSON = []byte("null")

// GetOrLoadJSON load 返回 nil, nil 表示不存在，也缓存成 null，避免同一个 id 反复打库；
// 缓存内容解不开（比如结构变更后的旧值）时删掉这条并直接回源
func GetOrLoadJSON[T any](c *Cache, ctx context.Context, key string, ttl time.Duration, load func(ctx context.Context) (*T, error)) (*T, error) {
	b, err := c.GetOrLoad(ctx, key, ttl, func(ctx context.Context) ([]byte, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(v)
	})
	if err != nil {
		return nil, err
	}
	v, err := decodeJSON[T](b)
	if err == nil {
		return v, nil
	}
	_ = c.Delete(ctx, key)
	return load(ctx)
}

func decodeJSON[T any](b []byte) (*T, error) {
	if bytes.Equal(bytes.TrimSpace(b), nullJSON) {
		return nil, nil
	}
	out := new(T)
	if err := json.Unmarshal(b, out); err != nil {
		return nil, fmt.Errorf("cache: decode: %w", err)
	}
	return out, nil
}
