package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	// Sleeper API
	SleeperBaseURL string        `envconfig:"SLEEPER_BASE_URL" default:"https://api.sleeper.app/v1"`
	SleeperTimeout time.Duration `envconfig:"SLEEPER_TIMEOUT" default:"30s"`
	Sport          string        `envconfig:"SPORT" default:"nfl"`
	SeasonSegment  string        `envconfig:"SEASON_SEGMENT" default:"regular"`

	// Database
	DatabaseHost     string `envconfig:"DATABASE_HOST" default:"localhost"`
	DatabasePort     int    `envconfig:"DATABASE_PORT" default:"5432"`
	DatabaseName     string `envconfig:"DATABASE_NAME" default:"bfb"`
	DatabaseUser     string `envconfig:"DATABASE_USER" default:"postgres"`
	DatabasePassword string `envconfig:"DATABASE_PASSWORD" required:"true"`
	DatabaseSSLMode  string `envconfig:"DATABASE_SSL_MODE" default:"disable"`
	// Isolation level for snapshot replaces: "read committed", "repeatable read" or "serializable"
	ReplaceIsolation string `envconfig:"REPLACE_ISOLATION" default:"read committed"`

	// Redis
	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// Application
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	HTTPPort int    `envconfig:"HTTP_PORT" default:"5000"`

	// Scheduler
	EnableScheduler    bool   `envconfig:"ENABLE_SCHEDULER" default:"true"`
	InitialSyncEnabled bool   `envconfig:"INITIAL_SYNC_ENABLED" default:"false"`
	NightlySyncCron    string `envconfig:"NIGHTLY_SYNC_CRON" default:"0 4 * * *"`
	DefaultSeason      string `envconfig:"DEFAULT_SEASON" default:"2024"`

	// Secondary ranking (dynasty values scraper)
	SecondaryRankingEnabled bool          `envconfig:"SECONDARY_RANKING_ENABLED" default:"false"`
	SecondaryRankingScript  string        `envconfig:"SECONDARY_RANKING_SCRIPT" default:"scripts/ktc_scraper.py"`
	SecondaryRankingCommand string        `envconfig:"SECONDARY_RANKING_COMMAND" default:"python3"`
	SecondaryRankingTimeout time.Duration `envconfig:"SECONDARY_RANKING_TIMEOUT" default:"10m"`

	// Caching TTL (in seconds)
	CacheTTLRankings int `envconfig:"CACHE_TTL_RANKINGS" default:"3600"`

	// Monitoring
	EnableMetrics bool `envconfig:"ENABLE_METRICS" default:"true"`
}

// Load loads configuration from environment variables
// It first attempts to load from .env file if in development mode
func Load() (*Config, error) {
	// Try to load .env file (ignore error if doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.DatabasePassword == "" {
		return fmt.Errorf("DATABASE_PASSWORD is required")
	}

	if c.SleeperTimeout <= 0 {
		return fmt.Errorf("SLEEPER_TIMEOUT must be positive")
	}

	switch c.ReplaceIsolation {
	case "read committed", "repeatable read", "serializable":
	default:
		return fmt.Errorf("REPLACE_ISOLATION %q is not supported", c.ReplaceIsolation)
	}

	if c.SecondaryRankingEnabled && c.SecondaryRankingScript == "" {
		return fmt.Errorf("SECONDARY_RANKING_SCRIPT is required when secondary ranking is enabled")
	}

	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DatabaseHost,
		c.DatabasePort,
		c.DatabaseUser,
		c.DatabasePassword,
		c.DatabaseName,
		c.DatabaseSSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// RankingsTTL returns the ranking cache TTL as a duration
func (c *Config) RankingsTTL() time.Duration {
	return time.Duration(c.CacheTTLRankings) * time.Second
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// MustLoad loads configuration or panics on error
// Use this in main() where we want to fail fast
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
