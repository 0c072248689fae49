package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"edumesh/config"
)

func TestRateLimiterBlocksAfterBudget(t *testing.T) {
	config.AppConfig = &config.Config{
		RateLimitMax:    2,
		RateLimitWindow: time.Minute,
	}
	defer func() { config.AppConfig = nil }()

	app := fiber.New()
	app.Use(RateLimiter())
	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.SendString("pong")
	})

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/ping", nil))
		if err != nil {
			t.Fatalf("request %d failed: %v", i+1, err)
		}
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("request %d: expected 200 within budget, got %d", i+1, resp.StatusCode)
		}
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/ping", nil))
	if err != nil {
		t.Fatalf("over-budget request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusTooManyRequests {
		t.Fatalf("expected 429 over budget, got %d", resp.StatusCode)
	}
}

func TestRateLimiterExemptsHealth(t *testing.T) {
	config.AppConfig = &config.Config{
		RateLimitMax:    1,
		RateLimitWindow: time.Minute,
	}
	defer func() { config.AppConfig = nil }()

	app := fiber.New()
	app.Use(RateLimiter())
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
		if err != nil {
			t.Fatalf("health request %d failed: %v", i+1, err)
		}
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("health request %d should bypass the limiter, got %d", i+1, resp.StatusCode)
		}
	}
}
