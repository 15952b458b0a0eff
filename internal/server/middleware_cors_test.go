package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Kellia855/mindbridge/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const frontendOrigin = "http://localhost:5173"

func withOrigins(origins string) envOption {
	return func(cfg *config.Config) { cfg.AllowedOrigins = origins }
}

// exhaustLimiter spends the per-IP budget on anonymous booking lookups.
func (e *testEnv) exhaustLimiter() {
	e.t.Helper()
	for i := 0; i < 100; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/bookings", nil)
		req.Header.Set("Origin", frontendOrigin)
		resp, err := e.app.Test(req, -1)
		require.NoError(e.t, err)
		require.Equal(e.t, fiber.StatusUnauthorized, resp.StatusCode)
		_ = resp.Body.Close()
	}
}

func TestRateLimitedBookingRequestKeepsCORSHeaders(t *testing.T) {
	e := newTestEnv(t, withOrigins(frontendOrigin))
	e.exhaustLimiter()

	req := httptest.NewRequest(http.MethodPost, "/api/bookings", nil)
	req.Header.Set("Origin", frontendOrigin)
	req.Header.Set("Authorization", "Bearer "+e.token(e.student))
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, frontendOrigin, resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "Too many requests")
}

func TestBookingPreflightBypassesLimiter(t *testing.T) {
	e := newTestEnv(t, withOrigins(frontendOrigin))
	e.exhaustLimiter()

	req := httptest.NewRequest(http.MethodOptions, "/api/bookings/1/approve", nil)
	req.Header.Set("Origin", frontendOrigin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "authorization,content-type")
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Equal(t, frontendOrigin, resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), http.MethodPost)
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestCORSIgnoresUnknownOrigin(t *testing.T) {
	e := newTestEnv(t, withOrigins(frontendOrigin))

	req := httptest.NewRequest(http.MethodGet, "/api/library", nil)
	req.Header.Set("Origin", "https://evil.example")
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}
