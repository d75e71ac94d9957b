package extensions

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RegistrationCache is a short-TTL overlay on the directory's registered
// flag, refreshed from live `show registrations` output. A miss means
// "no recent liveness observation", not "offline" — callers fall back to
// the directory.
type RegistrationCache interface {
	// Get returns (registered, hit, err).
	Get(ctx context.Context, accountID int64, number string) (bool, bool, error)
	// MarkRegistered records the given numbers as live for the TTL.
	MarkRegistered(ctx context.Context, accountID int64, numbers []string, ttl time.Duration) error
}

// RedisCache stores liveness under reg:<account>:<number> keys.
type RedisCache struct {
	rdb *redis.Client
}

func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func regKey(accountID int64, number string) string {
	return fmt.Sprintf("reg:%d:%s", accountID, number)
}

func (c *RedisCache) Get(ctx context.Context, accountID int64, number string) (bool, bool, error) {
	v, err := c.rdb.Get(ctx, regKey(accountID, number)).Result()
	if err != nil {
		if err == redis.Nil {
			return false, false, nil
		}
		return false, false, err
	}
	return v == "1", true, nil
}

func (c *RedisCache) MarkRegistered(ctx context.Context, accountID int64, numbers []string, ttl time.Duration) error {
	if len(numbers) == 0 {
		return nil
	}
	pipe := c.rdb.Pipeline()
	for _, n := range numbers {
		pipe.Set(ctx, regKey(accountID, n), "1", ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// MemoryCache is a test double for RegistrationCache. TTLs are honored
// coarsely by expiry timestamps.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: map[string]time.Time{}}
}

func (c *MemoryCache) Get(ctx context.Context, accountID int64, number string) (bool, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	exp, ok := c.entries[regKey(accountID, number)]
	if !ok || time.Now().After(exp) {
		return false, false, nil
	}
	return true, true, nil
}

func (c *MemoryCache) MarkRegistered(ctx context.Context, accountID int64, numbers []string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, n := range numbers {
		c.entries[regKey(accountID, n)] = time.Now().Add(ttl)
	}
	return nil
}
