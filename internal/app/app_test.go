package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mortisplay.ru/qa/internal/config"
	"mortisplay.ru/qa/internal/pkg/logger"
)

func init() {
	_ = logger.Init("error", "json")
}

func testConfig() *config.Config {
	return &config.Config{
		Store:     config.StoreConfig{Driver: "memory"},
		RateLimit: config.RateLimitConfig{Backend: "memory", Cooldown: 60 * time.Second},
		Flood:     config.FloodConfig{Enabled: true, RPS: 100, Burst: 100},
		CORS:      config.CORSConfig{AllowedOrigins: []string{"*"}},
		Log:       config.LogConfig{Level: "info", Format: "json"},
		Security: config.SecurityConfig{
			JWTSecret:     "0123456789abcdef0123456789abcdef",
			JWTIssuer:     "test",
			TokenLifetime: time.Hour,
		},
		Worker: config.WorkerConfig{PoolSize: 4},
	}
}

func get(t *testing.T, app *Application, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	app.Router.ServeHTTP(w, req)
	return w
}

func TestNew_PublicSurface(t *testing.T) {
	ctx := context.Background()

	application, err := New(ctx, testConfig())
	require.NoError(t, err)
	defer application.Shutdown(ctx)

	require.Equal(t, http.StatusOK, get(t, application, "/api/v1/health/live").Code)
	require.Equal(t, http.StatusOK, get(t, application, "/api/v1/health/ready").Code)
	require.Equal(t, http.StatusOK, get(t, application, "/api/v1/questions").Code)
}

func TestNew_AdminDisabledWithoutCredentials(t *testing.T) {
	ctx := context.Background()

	application, err := New(ctx, testConfig())
	require.NoError(t, err)
	defer application.Shutdown(ctx)

	// No credentials configured, so neither the login route nor the admin
	// group exists.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	w := httptest.NewRecorder()
	application.Router.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)

	require.Equal(t, http.StatusNotFound, get(t, application, "/api/v1/admin/questions").Code)
}

func TestNew_AdminRoutesWired(t *testing.T) {
	ctx := context.Background()

	cfg := testConfig()
	cfg.Security.AdminUser = "mortis"
	cfg.Security.AdminPasswordHash = "$2a$10$xxxxxxxxxxxxxxxxxxxxxx"

	application, err := New(ctx, cfg)
	require.NoError(t, err)
	defer application.Shutdown(ctx)

	// Route exists and is guarded.
	require.Equal(t, http.StatusUnauthorized, get(t, application, "/api/v1/admin/questions").Code)
}

func TestNew_RejectsUnknownDriver(t *testing.T) {
	cfg := testConfig()
	cfg.Store.Driver = "mysql"

	_, err := New(context.Background(), cfg)
	require.Error(t, err)
}
