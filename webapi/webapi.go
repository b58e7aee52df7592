// Package webapi wires the HTTP surface of the ledger engine. It is organized into
// sub-packages per area:
// - source: recurring source lifecycle
// - oneoff: checks and card purchases
// - ledger: monthly balance and per-row operations
package webapi

import (
	"errors"
	"strings"
	"time"

	"github.com/budgee/family/pkg/app"
	"github.com/budgee/family/pkg/config"
	"github.com/budgee/family/webapi/common"
	ledgerweb "github.com/budgee/family/webapi/ledger"
	oneoffweb "github.com/budgee/family/webapi/oneoff"
	sourceweb "github.com/budgee/family/webapi/source"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// SetupApp Initialize Fiber with custom configuration
func SetupApp(a *app.App) *fiber.App {
	cfg := a.Config
	if cfg.Auth == nil || cfg.Auth.Jwt == nil {
		cfg.Auth = &config.Auth{Jwt: &config.Jwt{UserClaim: "user_id"}}
	}
	rate := cfg.RateLimit
	if rate == nil {
		rate = &config.RateLimit{MaxRequests: 100, Window: time.Minute}
	}

	fiberApp := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return common.ProblemDetailsJSON(c, "Internal Server Error", err)
		},
	})

	// Behind a proxy the client is the first X-Forwarded-For hop, then X-Real-IP.
	fiberApp.Use(limiter.New(limiter.Config{
		Max:        rate.MaxRequests,
		Expiration: rate.Window,
		KeyGenerator: func(c *fiber.Ctx) string {
			if forwardedFor := c.Get("X-Forwarded-For"); forwardedFor != "" {
				if commaIndex := strings.Index(forwardedFor, ","); commaIndex != -1 {
					return strings.TrimSpace(forwardedFor[:commaIndex])
				}
				return strings.TrimSpace(forwardedFor)
			}
			if realIP := c.Get("X-Real-IP"); realIP != "" {
				return realIP
			}
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return common.ProblemDetailsJSON(
				c,
				"Too Many Requests",
				errors.New("rate limit exceeded"),
				fiber.StatusTooManyRequests,
			)
		},
	}))
	fiberApp.Use(recover.New())
	fiberApp.Use(logger.New())

	// Health check endpoint
	fiberApp.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("Budgee API is running!")
	})

	sourceweb.Routes(fiberApp, a.Lifecycle, cfg)
	oneoffweb.Routes(fiberApp, a.Lifecycle, cfg)
	ledgerweb.Routes(fiberApp, a.Balance, a.Lifecycle, cfg)
	return fiberApp
}
