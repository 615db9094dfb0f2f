package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"movie-discovery/internal/config"
)

func okApp(handlers ...fiber.Handler) *fiber.App {
	app := fiber.New()
	for _, h := range handlers {
		app.Use(h)
	}
	app.Get("/*", func(c fiber.Ctx) error {
		token, _ := c.Locals("auth_token").(string)
		return c.SendString("ok:" + token)
	})
	return app
}

func TestAuthMiddleware(t *testing.T) {
	app := okApp(AuthMiddleware("/health", "/api/v1/movies"))

	tests := []struct {
		name   string
		path   string
		header string
		code   int
		body   string
	}{
		{"public path", "/api/v1/movies/popular", "", http.StatusOK, "ok:"},
		{"health", "/health", "", http.StatusOK, "ok:"},
		{"missing header", "/api/v1/users/1", "", http.StatusUnauthorized, "missing Authorization header"},
		{"blank header", "/api/v1/users/1", "   ", http.StatusUnauthorized, "missing Authorization header"},
		{"wrong scheme", "/api/v1/users/1", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, "invalid Authorization header format, expected 'Bearer <token>'"},
		{"empty token", "/api/v1/users/1", "Bearer    ", http.StatusUnauthorized, "empty bearer token"},
		{"bare scheme", "/api/v1/users/1", "Bearer", http.StatusUnauthorized, "empty bearer token"},
		{"valid token", "/api/v1/users/1", "Bearer abc123", http.StatusOK, "ok:abc123"},
		{"padded token", "/api/v1/users/1", "  Bearer abc123  ", http.StatusOK, "ok:abc123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.code, resp.StatusCode)

			raw, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			if tt.code == http.StatusOK {
				assert.Equal(t, tt.body, string(raw))
				return
			}
			var body map[string]string
			require.NoError(t, json.Unmarshal(raw, &body))
			assert.Equal(t, tt.body, body["error"])
		})
	}
}

func TestRateLimiter_NilClientPassesThrough(t *testing.T) {
	app := okApp(NewRateLimiter(nil, config.RateLimitConfig{Max: 1, WindowSeconds: 60}).Handler())

	for range 3 {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/x", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Empty(t, resp.Header.Get("X-RateLimit-Limit"))
	}
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })

	app := okApp(NewRateLimiter(rdb, config.RateLimitConfig{Max: 1, WindowSeconds: 60}).Handler())

	for range 2 {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/x", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
}

func TestRateLimiter_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()
	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp"),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start redis container")
	t.Cleanup(func() { _ = redisC.Terminate(ctx) })

	endpoint, err := redisC.Endpoint(ctx, "")
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = rdb.Close() })

	app := okApp(NewRateLimiter(rdb, config.RateLimitConfig{Max: 2, WindowSeconds: 60}).Handler())

	for i, want := range []string{"1", "0"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/x", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode, "request %d", i+1)
		assert.Equal(t, "2", resp.Header.Get("X-RateLimit-Limit"))
		assert.Equal(t, want, resp.Header.Get("X-RateLimit-Remaining"))
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/x", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	keys, err := rdb.Keys(ctx, rateLimitPrefix+"*").Result()
	require.NoError(t, err)
	require.Len(t, keys, 1)
	ttl, err := rdb.TTL(ctx, keys[0]).Result()
	require.NoError(t, err)
	assert.InDelta(t, 60, ttl.Seconds(), 5)
}
