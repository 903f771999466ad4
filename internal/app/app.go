// Package app wires configuration into the store, feed client, cache,
// pipeline and ranking service shared by the binaries.
package app

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"bfb/ingestion/internal/cache"
	"bfb/ingestion/internal/client"
	"bfb/ingestion/internal/config"
	"bfb/ingestion/internal/pipeline"
	"bfb/ingestion/internal/ranking"
	"bfb/ingestion/internal/repository"
	"bfb/ingestion/internal/scoring"
	"bfb/ingestion/internal/secondary"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// App holds the long-lived components. Cache is nil when Redis is unreachable.
type App struct {
	Config   *config.Config
	DB       *repository.Database
	Cache    *cache.RedisCache
	Sleeper  *client.Client
	Pipeline *pipeline.Orchestrator
	Rankings *ranking.Service
}

// SetupLogger configures the global zerolog logger
func SetupLogger(cfg *config.Config) {
	// Pretty console logging in development
	if cfg.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("level", level.String()).
		Msg("Logger initialized")
}

// New connects to the database and Redis and builds the pipeline.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := repository.NewDatabase(ctx, repository.Config{
		URL:       cfg.DatabaseDSN(),
		Isolation: cfg.ReplaceIsolation,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	a := &App{
		Config: cfg,
		DB:     db,
		Sleeper: client.NewClient(
			cfg.SleeperBaseURL,
			cfg.SleeperTimeout,
			client.WithSport(cfg.Sport),
			client.WithSeasonSegment(cfg.SeasonSegment),
		),
	}

	redisCache, err := cache.NewRedisCache(cache.Config{
		Host:     cfg.RedisHost,
		Port:     strconv.Itoa(cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		TTL:      cfg.RankingsTTL(),
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to connect to Redis - continuing without cache")
	} else {
		a.Cache = redisCache
		log.Info().Str("addr", cfg.RedisAddr()).Msg("Redis cache connected")
	}

	deps := pipeline.Deps{
		Stats:      a.Sleeper,
		Roster:     a.Sleeper,
		StatsStore: db.Stats,
		Players:    db.Players,
	}
	if cfg.SecondaryRankingEnabled {
		deps.Secondary = secondary.NewScriptRunner(
			cfg.SecondaryRankingCommand,
			cfg.SecondaryRankingScript,
			"",
			cfg.SecondaryRankingTimeout,
		)
	}

	var rankingCache ranking.Cache
	if a.Cache != nil {
		deps.Cache = a.Cache
		rankingCache = a.Cache
	}

	a.Pipeline = pipeline.New(deps, pipeline.Options{TriggerSecondary: cfg.SecondaryRankingEnabled})
	a.Rankings = ranking.NewService(db.Rankings, rankingCache, scoring.NewScorer())

	return a, nil
}

// Close releases the cache and database connections
func (a *App) Close() {
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Redis connection")
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
