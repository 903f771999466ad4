// Package cache holds scored ranking lists in Redis between syncs.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"bfb/ingestion/internal/metrics"
	"bfb/ingestion/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	keyPrefix   = "bfb:rankings:"
	genPrefix   = "bfb:rankgen:"
	epochKey    = genPrefix + "all"
	defaultTTL  = time.Hour
	pingTimeout = 5 * time.Second
	scanCount   = 100
)

// Config holds Redis connection settings
type Config struct {
	Host     string
	Port     string
	Password string
	DB       int

	// TTL applies to every cached ranking list
	TTL time.Duration
}

// ErrStaleGeneration is returned by SetRankings when the season was
// invalidated after the caller read its generation.
var ErrStaleGeneration = errors.New("ranking cache generation changed")

// RedisCache caches a season's full scored ranking list.
//
// Each season has a generation counter, and a global epoch covers
// InvalidateAll. Writers pass the generation they saw before reading the
// database; a write is dropped if an invalidation happened in between.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(cfg Config) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}

	return &RedisCache{client: client, ttl: ttl}, nil
}

func rankingsKey(year int) string {
	return fmt.Sprintf("%s%d", keyPrefix, year)
}

func generationKey(year int) string {
	return fmt.Sprintf("%s%d", genPrefix, year)
}

// Generation returns an opaque token for year's current cache generation.
func (c *RedisCache) Generation(ctx context.Context, year int) (string, error) {
	token, err := readGeneration(ctx, c.client, year)
	if err != nil {
		return "", fmt.Errorf("failed to read ranking generation: %w", err)
	}
	return token, nil
}

// mgetter is satisfied by both *redis.Client and *redis.Tx
type mgetter interface {
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
}

func readGeneration(ctx context.Context, cmd mgetter, year int) (string, error) {
	vals, err := cmd.MGet(ctx, epochKey, generationKey(year)).Result()
	if err != nil {
		return "", err
	}
	parts := make([]string, len(vals))
	for i, v := range vals {
		if s, ok := v.(string); ok {
			parts[i] = s
		} else {
			parts[i] = "0"
		}
	}
	return parts[0] + "." + parts[1], nil
}

// GetRankings returns the cached list for year. ok is false on a miss.
func (c *RedisCache) GetRankings(ctx context.Context, year int) ([]*models.RankedPlayer, bool, error) {
	start := time.Now()
	defer func() { metrics.RecordCacheOperation("get", time.Since(start).Seconds()) }()

	data, err := c.client.Get(ctx, rankingsKey(year)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.RecordCacheMiss()
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get rankings: %w", err)
	}

	var players []*models.RankedPlayer
	if err := json.Unmarshal(data, &players); err != nil {
		// Treat a corrupt entry as a miss; the next write replaces it.
		log.Warn().Err(err).Int("year", year).Msg("Discarding undecodable cached rankings")
		metrics.RecordCacheMiss()
		return nil, false, nil
	}

	metrics.RecordCacheHit()
	return players, true, nil
}

// SetRankings stores the list for year with the configured TTL, provided the
// season is still at generation. Otherwise it returns ErrStaleGeneration and
// leaves the cache untouched.
func (c *RedisCache) SetRankings(ctx context.Context, year int, generation string, players []*models.RankedPlayer) error {
	start := time.Now()
	defer func() { metrics.RecordCacheOperation("set", time.Since(start).Seconds()) }()

	data, err := json.Marshal(players)
	if err != nil {
		return fmt.Errorf("failed to encode rankings: %w", err)
	}

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := readGeneration(ctx, tx, year)
		if err != nil {
			return err
		}
		if current != generation {
			return ErrStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, rankingsKey(year), data, c.ttl)
			return nil
		})
		return err
	}, epochKey, generationKey(year))

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrStaleGeneration), errors.Is(err, redis.TxFailedErr):
		return ErrStaleGeneration
	default:
		return fmt.Errorf("failed to set rankings: %w", err)
	}
}

// Invalidate bumps year's generation and drops its cached list
func (c *RedisCache) Invalidate(ctx context.Context, year int) error {
	if err := c.client.Incr(ctx, generationKey(year)).Err(); err != nil {
		return fmt.Errorf("failed to bump ranking generation for %d: %w", year, err)
	}
	if err := c.client.Del(ctx, rankingsKey(year)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate rankings for %d: %w", year, err)
	}
	log.Debug().Int("year", year).Msg("Ranking cache invalidated")
	return nil
}

// InvalidateAll bumps the global epoch and drops every cached ranking list
func (c *RedisCache) InvalidateAll(ctx context.Context) error {
	if err := c.client.Incr(ctx, epochKey).Err(); err != nil {
		return fmt.Errorf("failed to bump ranking epoch: %w", err)
	}

	var cursor uint64
	deleted := 0
	for {
		keys, next, err := c.client.Scan(ctx, cursor, keyPrefix+"*", scanCount).Result()
		if err != nil {
			return fmt.Errorf("failed to scan ranking keys: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete ranking keys: %w", err)
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	log.Debug().Int("keys", deleted).Msg("Ranking cache cleared")
	return nil
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}
