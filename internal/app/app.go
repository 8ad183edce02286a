// Package app wires configuration, storage, rate limiting and the HTTP
// surface into a runnable application.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"mortisplay.ru/qa/internal/api/handlers"
	"mortisplay.ru/qa/internal/api/middleware"
	"mortisplay.ru/qa/internal/config"
	"mortisplay.ru/qa/internal/pkg/logger"
	"mortisplay.ru/qa/internal/pkg/worker"
	"mortisplay.ru/qa/internal/ratelimit"
	"mortisplay.ru/qa/internal/service"
	"mortisplay.ru/qa/internal/store"
)

// Application holds every long-lived component. Built once at startup,
// torn down in reverse order on Shutdown.
type Application struct {
	cfg    *config.Config
	Router *gin.Engine

	store       store.Store
	pool        *worker.Pool
	memLimiter  *ratelimit.MemoryLimiter
	redisClient *redis.Client
	flood       *middleware.Flood
}

// New builds the full application from configuration. Components are
// constructed bottom-up: store, limiter, pool, services, handlers, router.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	st, err := NewStore(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	app := &Application{cfg: cfg, store: st}

	limiter, err := app.newLimiter(cfg.RateLimit)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("init rate limiter: %w", err)
	}

	pool, err := worker.NewPool(ctx, cfg.Worker.PoolSize)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("init worker pool: %w", err)
	}
	app.pool = pool

	submissions := service.NewSubmissionService(st, limiter, nil)
	moderation := service.NewModerationService(st, pool)

	srv := handlers.NewServer(handlers.ServerDeps{
		Submissions: submissions,
		Moderation:  moderation,
		Store:       st,
		JWTCfg: middleware.JWTConfig{
			SigningKey: []byte(cfg.Security.JWTSecret),
			Issuer:     cfg.Security.JWTIssuer,
			ExpiresIn:  cfg.Security.TokenLifetime,
		},
		AdminUser:         cfg.Security.AdminUser,
		AdminPasswordHash: cfg.Security.AdminPasswordHash,
	})

	if cfg.Flood.Enabled {
		app.flood = middleware.NewFlood(cfg.Flood.RPS, cfg.Flood.Burst)
	}

	router, err := newRouter(cfg, srv, app.flood)
	if err != nil {
		app.Shutdown(context.Background())
		return nil, fmt.Errorf("init router: %w", err)
	}
	app.Router = router

	logger.Info("Application initialized",
		zap.String("store_driver", cfg.Store.Driver),
		zap.String("ratelimit_backend", cfg.RateLimit.Backend),
		zap.Bool("admin_enabled", cfg.AdminEnabled()),
		zap.Bool("flood_enabled", cfg.Flood.Enabled),
	)
	return app, nil
}

// Start launches background maintenance. Idle limiter and flood entries
// accumulate per client address; a periodic sweep keeps both maps bounded.
func (a *Application) Start() {
	interval := a.cfg.RateLimit.CleanupInterval
	if interval <= 0 {
		interval = 2 * time.Minute
	}

	err := a.pool.SubmitDetached(func(ctx context.Context) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if a.memLimiter != nil {
					a.memLimiter.Cleanup()
				}
				if a.flood != nil {
					a.flood.Cleanup()
				}
			}
		}
	})
	if err != nil {
		logger.Warn("Failed to start cleanup janitor", zap.Error(err))
	}
}

// Shutdown stops background work and closes external connections.
func (a *Application) Shutdown(ctx context.Context) {
	if a.pool != nil {
		a.pool.Shutdown()
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			logger.Warn("Redis close failed", zap.Error(err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logger.Warn("Store close failed", zap.Error(err))
		}
	}
}

// Store exposes the submission store, mainly for readiness probes and
// the seed tool.
func (a *Application) Store() store.Store {
	return a.store
}

// NewStore opens the submission store selected by configuration. Shared
// with the seed tool so fixtures land in the same backend the server uses.
func NewStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case "postgres":
		return store.NewPostgres(ctx, store.PostgresConfig{
			DSN:             cfg.Postgres.DSN(),
			MaxConns:        cfg.Postgres.MaxConns,
			MinConns:        cfg.Postgres.MinConns,
			MaxConnLifetime: cfg.Postgres.MaxConnLifetime,
			MaxConnIdleTime: cfg.Postgres.MaxConnIdleTime,
		})
	case "sqlite":
		return store.NewSQLite(cfg.SQLitePath)
	case "file":
		return store.NewFile(cfg.FilePath)
	case "memory":
		return store.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func (a *Application) newLimiter(cfg config.RateLimitConfig) (ratelimit.Limiter, error) {
	switch cfg.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		a.redisClient = client
		return ratelimit.NewRedisLimiter(client, cfg.Cooldown), nil
	case "memory":
		lim := ratelimit.NewMemoryLimiter(cfg.Cooldown)
		a.memLimiter = lim
		return lim, nil
	default:
		return nil, fmt.Errorf("unknown ratelimit backend %q", cfg.Backend)
	}
}
