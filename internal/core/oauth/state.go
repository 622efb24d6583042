package oauth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/DavidFields1/auth-api/internal/core/cache"
)

// StateStore state → PKCE verifier，一次性读取
type StateStore interface {
	Put(ctx context.Context, state, verifier string, ttl time.Duration) error
	// Take 不存在/过期/已用过都返回 ErrInvalidState
	Take(ctx context.Context, state string) (string, error)
}

type memEntry struct {
	verifier string
	expires  time.Time
}

// MemoryStateStore 单实例部署用
type MemoryStateStore struct {
	mu    sync.Mutex
	items map[string]memEntry
	now   func() time.Time
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{items: make(map[string]memEntry), now: time.Now}
}

func (s *MemoryStateStore) Put(_ context.Context, state, verifier string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	// 顺手清掉过期项，防止无限增长
	for k, e := range s.items {
		if now.After(e.expires) {
			delete(s.items, k)
		}
	}
	if _, ok := s.items[state]; ok {
		return errors.New("oauth: duplicate state")
	}
	s.items[state] = memEntry{verifier: verifier, expires: now.Add(ttl)}
	return nil
}

func (s *MemoryStateStore) Take(_ context.Context, state string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[state]
	if !ok {
		return "", ErrInvalidState
	}
	delete(s.items, state)
	if s.now().After(e.expires) {
		return "", ErrInvalidState
	}
	return e.verifier, nil
}

// RedisStateStore 多实例部署用
type RedisStateStore struct {
	c *cache.Cache
}

func NewRedisStateStore(c *cache.Cache) *RedisStateStore { return &RedisStateStore{c: c} }

func stateKey(state string) string { return "oauth:state:" + state }

func (s *RedisStateStore) Put(ctx context.Context, state, verifier string, ttl time.Duration) error {
	ok, err := s.c.PutOnce(ctx, stateKey(state), verifier, ttl)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("oauth: duplicate state")
	}
	return nil
}

func (s *RedisStateStore) Take(ctx context.Context, state string) (string, error) {
	v, err := s.c.Take(ctx, stateKey(state))
	if errors.Is(err, cache.ErrMiss) {
		return "", ErrInvalidState
	}
	return v, err
}
