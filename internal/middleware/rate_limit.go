package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"warranty/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateCounter increments a counter that expires after window.
type RateCounter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisCounter is a RateCounter backed by redis INCR with a TTL.
type RedisCounter struct {
	client *redis.Client
}

// NewRedisCounter creates a new RedisCounter.
func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client}
}

// Incr bumps key and sets its expiry on first use.
func (r *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("rate counter %s: %w", key, err)
	}
	return incr.Val(), nil
}

// RateLimiter allows limit requests per client IP and route in each fixed
// window of period. A nil counter disables limiting. Counter failures let
// the request through.
func RateLimiter(counter RateCounter, limit int, period time.Duration) fiber.Handler {
	if counter == nil || limit <= 0 || period <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return func(c *fiber.Ctx) error {
		window := time.Now().UnixNano() / int64(period)
		key := fmt.Sprintf("ratelimit:%s:%s:%d", c.Path(), c.IP(), window)

		count, err := counter.Incr(c.UserContext(), key, period)
		if err != nil {
			logger.FromCtx(c).Warn("Rate limiter unavailable", zap.Error(err))
			return c.Next()
		}

		remaining := int64(limit) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Set("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(limit) {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(period.Seconds())))
			return fiber.NewError(fiber.StatusTooManyRequests, "Too many requests, please try again later.")
		}
		return c.Next()
	}
}
