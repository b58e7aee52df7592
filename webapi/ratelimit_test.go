package webapi_test

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/budgee/family/infra/repository/memory"
	"github.com/budgee/family/pkg/app"
	"github.com/budgee/family/pkg/config"
	"github.com/budgee/family/webapi"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimit(t *testing.T) {
	a := app.New(config.Deps{
		Uow: memory.NewUoW(memory.NewStore()),
		Config: &config.App{
			Auth:      &config.Auth{Jwt: &config.Jwt{Secret: secret}},
			RateLimit: &config.RateLimit{MaxRequests: 5, Window: time.Second},
			Ledger:    config.DefaultLedger(),
		},
	})
	fiberApp := webapi.SetupApp(a)

	for i := range [6]int{} {
		req := httptest.NewRequest(fiber.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		resp, err := fiberApp.Test(req)
		require.NoError(t, err)
		if i < 5 {
			assert.Equal(t, fiber.StatusOK, resp.StatusCode, "request %d", i+1)
		} else {
			assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode, "request %d", i+1)
		}
	}

	req := httptest.NewRequest(fiber.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "198.51.100.1")
	resp, err := fiberApp.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode, "other clients keep their own budget")
}
