package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the movie discovery server.
type Config struct {
	DB        DBConfig        `envconfig:"DB"`
	Redis     RedisConfig     `envconfig:"REDIS"`
	TMDB      TMDBConfig      `envconfig:"TMDB"`
	Cache     CacheConfig     `envconfig:"CACHE"`
	RateLimit RateLimitConfig `envconfig:"RATE_LIMIT"`
	Auth      AuthConfig      `envconfig:"AUTH"`
	Scheduler SchedulerConfig `envconfig:"SCHEDULER"`
	Log       LogConfig       `envconfig:"LOG"`
	Port      string          `envconfig:"SERVER_PORT" default:"8081"`
}

// DBConfig holds PostgreSQL configuration.
type DBConfig struct {
	Host        string `envconfig:"HOST" default:"localhost"`
	Port        int    `envconfig:"PORT" default:"5432"`
	User        string `envconfig:"USER" default:"postgres"`
	Password    string `envconfig:"PASSWORD" default:"postgres"`
	DBName      string `envconfig:"NAME" default:"movie_discovery"`
	SSLMode     string `envconfig:"SSLMODE" default:"disable"`
	SSLRootCert string `envconfig:"SSLROOTCERT"`
}

// DSN returns the PostgreSQL connection string.
func (d DBConfig) DSN() string {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
	if d.SSLRootCert != "" {
		dsn += fmt.Sprintf(" sslrootcert=%s", d.SSLRootCert)
	}
	return dsn
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string `envconfig:"ADDR" default:"127.0.0.1:6379"`
	Password string `envconfig:"PASSWORD"`
	DB       int    `envconfig:"DB" default:"0"`
}

// TMDBConfig holds upstream catalog API configuration.
type TMDBConfig struct {
	APIKey  string        `envconfig:"API_KEY"`
	BaseURL string        `envconfig:"BASE_URL" default:"https://api.themoviedb.org/3"`
	Timeout time.Duration `envconfig:"TIMEOUT" default:"10s"`

	// Outbound request budget shared by all handlers.
	RequestsPerSecond float64       `envconfig:"RPS" default:"20"`
	Burst             int           `envconfig:"BURST" default:"10"`
	MaxRetries        uint64        `envconfig:"MAX_RETRIES" default:"3"`
	RetryInterval     time.Duration `envconfig:"RETRY_INTERVAL" default:"1s"`
}

// CacheConfig selects the cache backend: redis, memory or none.
type CacheConfig struct {
	Backend string `envconfig:"BACKEND" default:"redis"`
}

// RateLimitConfig configures the inbound per-IP limiter.
type RateLimitConfig struct {
	Enabled       bool `envconfig:"ENABLED" default:"true"`
	Max           int  `envconfig:"MAX" default:"100"`
	WindowSeconds int  `envconfig:"WINDOW_SECONDS" default:"60"`
}

// AuthConfig configures the bearer-token check on user and admin routes.
type AuthConfig struct {
	Enabled bool `envconfig:"ENABLED" default:"true"`
}

// SchedulerConfig configures background catalog jobs.
type SchedulerConfig struct {
	Enabled      bool   `envconfig:"ENABLED" default:"false"`
	SyncSchedule string `envconfig:"SYNC_SCHEDULE" default:"@every 6h"`
	SyncPages    int    `envconfig:"SYNC_PAGES" default:"5"`
	WarmSchedule string `envconfig:"WARM_SCHEDULE" default:"@every 25m"`
	WarmPages    int    `envconfig:"WARM_PAGES" default:"3"`

	// Daily batch refresh of cached personalized recommendations.
	RecommendationSchedule string `envconfig:"RECOMMENDATION_SCHEDULE" default:"0 3 * * *"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `envconfig:"LEVEL" default:"info"`
	Format string `envconfig:"FORMAT" default:"json"`
}

// Load reads configuration from the environment, after applying an optional .env file.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c.TMDB.APIKey == "" {
		return fmt.Errorf("TMDB_API_KEY is required")
	}
	if c.TMDB.Timeout <= 0 {
		return fmt.Errorf("TMDB_TIMEOUT must be positive")
	}
	switch c.Cache.Backend {
	case "redis", "memory", "none":
	default:
		return fmt.Errorf("unsupported CACHE_BACKEND: %s", c.Cache.Backend)
	}
	if c.Scheduler.SyncPages < 1 || c.Scheduler.WarmPages < 1 {
		return fmt.Errorf("scheduler page counts must be at least 1")
	}
	return nil
}
