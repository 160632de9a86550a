package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisThrottle allows one action per key per window using SETNX.
type RedisThrottle struct {
	client *redis.Client
	prefix string
}

// NewRedisThrottle creates a throttle whose keys live under prefix.
func NewRedisThrottle(client *redis.Client, prefix string) *RedisThrottle {
	if prefix == "" {
		prefix = "auth:2fa:throttle"
	}
	return &RedisThrottle{client: client, prefix: prefix}
}

// Allow reports whether the caller may act for key now. The first caller in a
// window wins; later callers get false until the key expires.
func (t *RedisThrottle) Allow(ctx context.Context, key string, window time.Duration) (bool, error) {
	ok, err := t.client.SetNX(ctx, fmt.Sprintf("%s:%s", t.prefix, strings.ToLower(key)), 1, window).Result()
	if err != nil {
		return false, fmt.Errorf("throttle setnx: %w", err)
	}
	return ok, nil
}

// RedisAttempts counts attempts per key with INCR. Each hit pushes the key's
// expiry out by window, so a burst of guesses keeps the counter alive.
type RedisAttempts struct {
	client *redis.Client
	prefix string
}

// NewRedisAttempts creates an attempt counter whose keys live under prefix.
func NewRedisAttempts(client *redis.Client, prefix string) *RedisAttempts {
	if prefix == "" {
		prefix = "auth:2fa:attempts"
	}
	return &RedisAttempts{client: client, prefix: prefix}
}

// Hit records one attempt for key and returns the count inside the window.
func (a *RedisAttempts) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	k := fmt.Sprintf("%s:%s", a.prefix, strings.ToLower(key))
	var incr *redis.IntCmd
	_, err := a.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.Expire(ctx, k, window)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("attempts incr: %w", err)
	}
	return incr.Val(), nil
}

// Reset forgets the attempts recorded for key.
func (a *RedisAttempts) Reset(ctx context.Context, key string) error {
	if err := a.client.Del(ctx, fmt.Sprintf("%s:%s", a.prefix, strings.ToLower(key))).Err(); err != nil {
		return fmt.Errorf("attempts reset: %w", err)
	}
	return nil
}

// memoryAttempts is the in-process counter used when no Redis counter is configured.
type memoryAttempts struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]attemptEntry
}

type attemptEntry struct {
	count   int64
	expires time.Time
}

func newMemoryAttempts() *memoryAttempts {
	return &memoryAttempts{now: time.Now, entries: make(map[string]attemptEntry)}
}

func (m *memoryAttempts) Hit(_ context.Context, key string, window time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key = strings.ToLower(key)
	now := m.now()
	e := m.entries[key]
	if !now.Before(e.expires) {
		e.count = 0
	}
	e.count++
	e.expires = now.Add(window)
	m.entries[key] = e
	return e.count, nil
}

func (m *memoryAttempts) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, strings.ToLower(key))
	return nil
}
