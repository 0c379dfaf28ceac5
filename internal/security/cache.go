package security

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	blockKeyTpl    = "block:%s"    // block:${ip}
	failKeyTpl     = "failures:%s" // failures:${ip}
	throttleKeyTpl = "session:%s"  // session:${session_key}

	blockVerdictTTL = 5 * time.Minute
)

// Cache is the optional Redis tier in front of the security store: blocked-IP
// verdicts, failed-login counters and session-update throttling. Every method
// degrades to a miss when Redis is disabled, so block decisions never depend
// on the cache being up.
type Cache struct {
	enabled bool
	redis   *redis.Client
}

func NewCache(enabled bool, redisURL string) (*Cache, error) {
	if !enabled {
		return &Cache{enabled: false}, nil
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Cache{enabled: true, redis: client}, nil
}

func (c *Cache) Close() error {
	if c.redis != nil {
		return c.redis.Close()
	}
	return nil
}

// BlockVerdict returns the cached allow/deny verdict for an address, or
// (nil, nil) on a miss.
func (c *Cache) BlockVerdict(ctx context.Context, ip string) (*bool, error) {
	if !c.enabled {
		return nil, nil
	}
	val, err := c.redis.Get(ctx, fmt.Sprintf(blockKeyTpl, ip)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read block verdict: %w", err)
	}
	blocked := val == "1"
	return &blocked, nil
}

func (c *Cache) SetBlockVerdict(ctx context.Context, ip string, blocked bool) error {
	if !c.enabled {
		return nil
	}
	val := "0"
	if blocked {
		val = "1"
	}
	return c.redis.Set(ctx, fmt.Sprintf(blockKeyTpl, ip), val, blockVerdictTTL).Err()
}

func (c *Cache) DropBlockVerdict(ctx context.Context, ip string) error {
	if !c.enabled {
		return nil
	}
	return c.redis.Del(ctx, fmt.Sprintf(blockKeyTpl, ip)).Err()
}

// IncrFailures bumps the fast-path failure counter for an address, starting
// the window TTL on first failure.
func (c *Cache) IncrFailures(ctx context.Context, ip string, window time.Duration) error {
	if !c.enabled {
		return nil
	}
	key := fmt.Sprintf(failKeyTpl, ip)
	pipe := c.redis.Pipeline()
	pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to increment failures: %w", err)
	}
	return nil
}

// FailureCount returns the cached counter, or (0, false) on miss/disabled.
func (c *Cache) FailureCount(ctx context.Context, ip string) (int64, bool) {
	if !c.enabled {
		return 0, false
	}
	val, err := c.redis.Get(ctx, fmt.Sprintf(failKeyTpl, ip)).Int64()
	if err != nil {
		return 0, false
	}
	return val, true
}

func (c *Cache) ClearFailures(ctx context.Context, ip string) error {
	if !c.enabled {
		return nil
	}
	return c.redis.Del(ctx, fmt.Sprintf(failKeyTpl, ip)).Err()
}

// ThrottleSession reports whether this session's activity row should be
// written now. The first caller within the interval wins the SetNX and
// performs the write; the rest skip it.
func (c *Cache) ThrottleSession(ctx context.Context, sessionKey string, interval time.Duration) bool {
	if !c.enabled {
		return true
	}
	ok, err := c.redis.SetNX(ctx, fmt.Sprintf(throttleKeyTpl, sessionKey), "1", interval).Result()
	if err != nil {
		return true
	}
	return ok
}
