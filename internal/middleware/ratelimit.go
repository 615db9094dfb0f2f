package middleware

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"

	"movie-discovery/internal/config"
	"movie-discovery/internal/metrics"
)

const rateLimitPrefix = "ratelimit:"

// RateLimiter provides Redis-backed fixed window rate limiting per client IP.
type RateLimiter struct {
	rdb     *redis.Client
	maxReqs int
	window  time.Duration
}

// NewRateLimiter creates a rate limiter. A nil client disables limiting.
func NewRateLimiter(rdb *redis.Client, cfg config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		rdb:     rdb,
		maxReqs: cfg.Max,
		window:  time.Duration(cfg.WindowSeconds) * time.Second,
	}
}

// Handler returns a Fiber middleware handler for rate limiting.
func (rl *RateLimiter) Handler() fiber.Handler {
	return func(c fiber.Ctx) error {
		if rl.rdb == nil {
			return c.Next()
		}

		ctx := c.Context()
		key := rateLimitPrefix + c.IP()

		var count *redis.IntCmd
		var ttl *redis.DurationCmd
		_, err := rl.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			count = pipe.Incr(ctx, key)
			pipe.ExpireNX(ctx, key, rl.window)
			ttl = pipe.TTL(ctx, key)
			return nil
		})
		if err != nil {
			// Fail open.
			slog.Warn("rate limiter unavailable, allowing request", "error", err)
			return c.Next()
		}

		n := count.Val()
		reset := int(ttl.Val().Seconds())
		c.Set("X-RateLimit-Limit", strconv.Itoa(rl.maxReqs))
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(max(0, int64(rl.maxReqs)-n), 10))
		c.Set("X-RateLimit-Reset", strconv.Itoa(reset))

		if n > int64(rl.maxReqs) {
			metrics.RateLimitRejections.Inc()
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(reset))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "rate limit exceeded",
				"retry_after": reset,
			})
		}

		return c.Next()
	}
}
