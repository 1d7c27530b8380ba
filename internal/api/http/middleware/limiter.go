package middleware

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	fiberredis "github.com/gofiber/storage/redis/v3"
	"github.com/redis/go-redis/v9"

	"github.com/Alijeyrad/carevisit_backend/config"
	"github.com/Alijeyrad/carevisit_backend/pkg/constants"
)

// NewLimiter rate limits per staff member, falling back to the client IP.
// Counters live in Redis when rdb is set so every instance shares them.
func NewLimiter(cfg config.RateLimitConfig, rdb *redis.Client) fiber.Handler {
	limit := cfg.RequestsPerWindow
	if limit <= 0 {
		limit = 120
	}
	window := time.Duration(cfg.WindowSeconds) * time.Second
	if window <= 0 {
		window = time.Minute
	}

	lc := limiter.Config{
		// sliding window
		Max:               limit,
		Expiration:        window,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator: func(c fiber.Ctx) string {
			if id := c.Get(constants.HeaderStaffID); id != "" {
				return "staff:" + id
			}
			return "ip:" + c.IP()
		},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "too many requests"})
		},
	}
	if rdb != nil {
		lc.Storage = fiberredis.NewFromConnection(rdb)
	}
	return limiter.New(lc)
}
