// Package config provides configuration management for the Q&A backend.
//
// Configuration is loaded from:
// 1. config.yaml file (optional)
// 2. Environment variables (standard names like SERVER_PORT, STORE_DRIVER)
// 3. Default values
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config is the root configuration structure.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Flood     FloodConfig     `mapstructure:"flood"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Log       LogConfig       `mapstructure:"log"`
	Security  SecurityConfig  `mapstructure:"security"`
	Worker    WorkerConfig    `mapstructure:"worker"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// TrustedProxies feed gin's ClientIP resolution; the requester
	// identity for rate limiting comes from there.
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

// StoreConfig selects and configures the submission store backing medium.
type StoreConfig struct {
	// Driver is one of: sqlite, postgres, file, memory.
	Driver string `mapstructure:"driver"`

	// SQLitePath is the database file for the sqlite driver.
	SQLitePath string `mapstructure:"sqlite_path"`

	// FilePath is the JSON document for the file driver.
	FilePath string `mapstructure:"file_path"`

	Postgres PostgresConfig `mapstructure:"postgres"`
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	URL string `mapstructure:"url"`

	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`

	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// DSN returns the PostgreSQL connection string.
// Priority: URL > constructed from individual fields.
func (c PostgresConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, sslmode,
	)
}

// RateLimitConfig configures the submission cooldown.
type RateLimitConfig struct {
	// Backend is one of: memory, redis.
	Backend string `mapstructure:"backend"`

	// Cooldown is the minimum interval between two accepted submissions
	// from one requester identity.
	Cooldown time.Duration `mapstructure:"cooldown"`

	// CleanupInterval is how often the memory backend evicts idle entries.
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`

	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig contains Redis connection settings for the redis backend.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// FloodConfig configures the coarse per-IP request limiter.
type FloodConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
}

// CORSConfig contains cross-origin settings for the public endpoints.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// SecurityConfig contains the moderation surface's auth settings.
type SecurityConfig struct {
	// JWTSecret signs moderator tokens. Auto-generated on first boot if
	// missing; set SECURITY_JWT_SECRET to persist sessions across restarts.
	JWTSecret     string        `mapstructure:"jwt_secret"`
	JWTIssuer     string        `mapstructure:"jwt_issuer"`
	TokenLifetime time.Duration `mapstructure:"token_lifetime"`

	// AdminUser/AdminPasswordHash gate the moderation endpoints. The hash
	// is bcrypt; with no hash configured the admin surface stays disabled.
	AdminUser         string `mapstructure:"admin_user"`
	AdminPasswordHash string `mapstructure:"admin_password_hash"`
}

// WorkerConfig contains worker pool settings.
type WorkerConfig struct {
	PoolSize int `mapstructure:"pool_size"`
}

var (
	bootstrapLoggerOnce sync.Once
	bootstrapLogger     *zap.Logger
)

// Load reads configuration from file and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/mortisplay-qa")

	// No prefix: standard names like SERVER_PORT, STORE_DRIVER,
	// RATELIMIT_COOLDOWN. Nested keys map dots to underscores.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file is optional, use defaults and env vars.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.ensureSecrets(); err != nil {
		return nil, fmt.Errorf("ensure secrets: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Validate checks for critical configuration errors.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite", "postgres", "file", "memory":
	default:
		return fmt.Errorf("store.driver must be one of sqlite, postgres, file, memory (got %q)", c.Store.Driver)
	}

	switch c.RateLimit.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("ratelimit.backend must be memory or redis (got %q)", c.RateLimit.Backend)
	}
	if c.RateLimit.Cooldown < 0 {
		return fmt.Errorf("ratelimit.cooldown must not be negative")
	}

	if len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("security.jwt_secret must be at least 32 characters")
	}
	return nil
}

// AdminEnabled reports whether the moderation surface is configured.
func (c *Config) AdminEnabled() bool {
	return c.Security.AdminUser != "" && c.Security.AdminPasswordHash != ""
}

// ensureSecrets auto-generates missing secrets on first boot.
func (c *Config) ensureSecrets() error {
	if c.Security.JWTSecret == "" {
		secret, err := generateSecureRandomHex(32)
		if err != nil {
			return fmt.Errorf("auto-generate jwt secret: %w", err)
		}
		c.Security.JWTSecret = secret
		logBootstrapWarn(
			"auto-generated jwt_secret; set SECURITY_JWT_SECRET env var so moderator sessions survive restarts",
			zap.Int("length", len(secret)),
		)
	}
	return nil
}

func logBootstrapWarn(msg string, fields ...zap.Field) {
	bootstrapLoggerOnce.Do(func() {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)

		l, err := cfg.Build()
		if err != nil {
			bootstrapLogger = zap.NewNop()
			return
		}
		bootstrapLogger = l
	})

	bootstrapLogger.Warn(msg, fields...)
}

// generateSecureRandomHex produces a hex-encoded string of n random bytes.
func generateSecureRandomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("crypto/rand: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.trusted_proxies", []string{})

	// Store
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "data/questions.db")
	v.SetDefault("store.file_path", "data/questions.json")
	v.SetDefault("store.postgres.host", "localhost")
	v.SetDefault("store.postgres.port", 5432)
	v.SetDefault("store.postgres.user", "qa")
	v.SetDefault("store.postgres.password", "")
	v.SetDefault("store.postgres.database", "qa")
	v.SetDefault("store.postgres.sslmode", "disable")
	v.SetDefault("store.postgres.max_conns", 10)
	v.SetDefault("store.postgres.min_conns", 2)
	v.SetDefault("store.postgres.max_conn_lifetime", "1h")
	v.SetDefault("store.postgres.max_conn_idle_time", "10m")

	// Rate limit: one accepted question per minute per address, matching
	// the strictest of the site's historical variants.
	v.SetDefault("ratelimit.backend", "memory")
	v.SetDefault("ratelimit.cooldown", "60s")
	v.SetDefault("ratelimit.cleanup_interval", "2m")
	v.SetDefault("ratelimit.redis.addr", "localhost:6379")
	v.SetDefault("ratelimit.redis.db", 0)

	// Flood protection
	v.SetDefault("flood.enabled", true)
	v.SetDefault("flood.rps", 10)
	v.SetDefault("flood.burst", 20)

	// CORS: the original site served Access-Control-Allow-Origin: *.
	v.SetDefault("cors.allowed_origins", []string{"*"})

	// Log
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Security
	v.SetDefault("security.jwt_issuer", "mortisplay-qa")
	v.SetDefault("security.token_lifetime", "12h")

	// Worker pool
	v.SetDefault("worker.pool_size", 32)
}
