package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"edumesh/config"
	"edumesh/utils"
)

const (
	defaultRateLimitMax    = 100
	defaultRateLimitWindow = 15 * time.Minute
)

// RateLimiter caps each client IP to a request budget per window. Limits come
// from config when set. /health is exempt so uptime probes never trip it.
func RateLimiter() fiber.Handler {
	max := defaultRateLimitMax
	window := defaultRateLimitWindow
	if config.AppConfig != nil {
		if config.AppConfig.RateLimitMax > 0 {
			max = config.AppConfig.RateLimitMax
		}
		if config.AppConfig.RateLimitWindow > 0 {
			window = config.AppConfig.RateLimitWindow
		}
	}

	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/health"
		},
		LimitReached: func(c *fiber.Ctx) error {
			return utils.Error(c, fiber.StatusTooManyRequests, "Too many requests, please slow down")
		},
	})
}
