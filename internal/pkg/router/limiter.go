package router

import (
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/storage/redis"

	"github.com/ManuelReschke/AffiliateFox/internal/pkg/cache"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/env"
)

// limiterStorage shares rate-limit counters between instances through Redis
// (database 1, the cache uses 0). Without a cache host the limiter keeps its
// counters in memory.
func limiterStorage() fiber.Storage {
	cacheClient := cache.GetClient()
	if cacheClient == nil {
		return nil
	}
	host := "localhost"
	port := 6379
	addr := cacheClient.Options().Addr
	if h, p, err := net.SplitHostPort(addr); err == nil {
		host = h
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}
	return redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Username: cacheClient.Options().Username,
		Password: cacheClient.Options().Password,
		Database: 1,
		Reset:    false,
	})
}

// newLimiter limits requests per client IP. API_RATE_LIMIT sets the number
// of requests per minute.
func newLimiter() fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        env.GetEnvInt("API_RATE_LIMIT", 120),
		Expiration: time.Minute,
		Storage:    limiterStorage(),
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "Too many requests"})
		},
	})
}
