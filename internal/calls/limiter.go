package calls

import (
	"context"
	"fmt"
	"time"

	"pbx-admin/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter caps in-flight originations per account using the shared
// Lua slot scripts. The TTL guards against leaked slots if the process
// dies between acquire and release.
type RedisLimiter struct {
	rdb   *redis.Client
	limit int
	ttl   time.Duration
}

func NewRedisLimiter(rdb *redis.Client, limit int, ttl time.Duration) *RedisLimiter {
	if limit <= 0 {
		limit = 10
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLimiter{rdb: rdb, limit: limit, ttl: ttl}
}

func (l *RedisLimiter) Acquire(ctx context.Context, accountID int64) (func(), bool, error) {
	key := fmt.Sprintf("originate:%d", accountID)
	ok, err := utils.AcquireOriginateSlot(ctx, l.rdb, key, l.limit, l.ttl)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	release := func() {
		_ = utils.ReleaseOriginateSlot(context.WithoutCancel(ctx), l.rdb, key)
	}
	return release, true, nil
}
