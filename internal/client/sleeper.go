package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bfb/ingestion/internal/metrics"
	"bfb/ingestion/internal/models"

	"github.com/rs/zerolog/log"
)

var (
	// ErrUpstreamUnavailable covers transport failures, timeouts and non-2xx responses
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrMalformedPayload is returned when the body is not an object keyed by player id
	ErrMalformedPayload = errors.New("malformed payload")
)

const (
	defaultSport         = "nfl"
	defaultSeasonSegment = "regular"
	maxConcurrent        = 4
	maxErrorBodyBytes    = 512
)

// Client is the Sleeper API client. It never retries; retry policy belongs to
// the caller.
type Client struct {
	baseURL       string
	sport         string
	seasonSegment string
	httpClient    *http.Client
	rateLimiter   chan struct{}
}

// Option configures a Client
type Option func(*Client)

// WithSport overrides the sport path segment (default "nfl")
func WithSport(sport string) Option {
	return func(c *Client) {
		if sport != "" {
			c.sport = sport
		}
	}
}

// WithSeasonSegment overrides the season segment (default "regular")
func WithSeasonSegment(segment string) Option {
	return func(c *Client) {
		if segment != "" {
			c.seasonSegment = segment
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a new Sleeper API client. timeout bounds every request
// end to end.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	rateLimiter := make(chan struct{}, maxConcurrent)
	for i := 0; i < maxConcurrent; i++ {
		rateLimiter <- struct{}{}
	}

	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		sport:         defaultSport,
		seasonSegment: defaultSeasonSegment,
		rateLimiter:   rateLimiter,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// get performs a single GET request and returns the body of a 2xx response
func (c *Client) get(ctx context.Context, endpoint, path string) ([]byte, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, path)
	start := time.Now()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, ctx.Err())
	case <-c.rateLimiter:
		defer func() { c.rateLimiter <- struct{}{} }()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "bfb-ingestion/1.0")

	log.Debug().
		Str("url", url).
		Str("method", req.Method).
		Msg("Making API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordAPICall(endpoint, "error", time.Since(start).Seconds())
		return nil, fmt.Errorf("%w: request %s: %v", ErrUpstreamUnavailable, url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.RecordAPICall(endpoint, "error", time.Since(start).Seconds())
		return nil, fmt.Errorf("%w: read body: %v", ErrUpstreamUnavailable, err)
	}

	metrics.RecordAPICall(endpoint, strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(body) > maxErrorBodyBytes {
			body = body[:maxErrorBodyBytes]
		}
		return nil, fmt.Errorf("%w: %s returned status %d: %s", ErrUpstreamUnavailable, url, resp.StatusCode, string(body))
	}

	log.Debug().
		Str("url", url).
		Int("status", resp.StatusCode).
		Int("size", len(body)).
		Dur("duration", time.Since(start)).
		Msg("API request successful")

	return body, nil
}

// decodeKeyed parses a JSON object keyed by provider player id. A top-level
// null, array or scalar is malformed, as is any entry that is not an object.
func decodeKeyed[T any](body []byte) (map[string]*T, error) {
	trimmed := strings.TrimSpace(string(body))
	if !strings.HasPrefix(trimmed, "{") {
		return nil, fmt.Errorf("%w: expected JSON object", ErrMalformedPayload)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	out := make(map[string]*T, len(raw))
	for id, msg := range raw {
		if !strings.HasPrefix(strings.TrimSpace(string(msg)), "{") {
			return nil, fmt.Errorf("%w: entry %q is not an object", ErrMalformedPayload, id)
		}
		var v T
		if err := json.Unmarshal(msg, &v); err != nil {
			return nil, fmt.Errorf("%w: entry %q: %v", ErrMalformedPayload, id, err)
		}
		out[id] = &v
	}

	return out, nil
}

// FetchStats fetches a season's per-player statistics keyed by player id
func (c *Client) FetchStats(ctx context.Context, season string) (map[string]*models.StatsInput, error) {
	year, err := models.ParseSeason(season)
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("stats/%s/%s/%d", c.sport, c.seasonSegment, year)
	body, err := c.get(ctx, "stats", path)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stats: %w", err)
	}

	stats, err := decodeKeyed[models.StatsInput](body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode stats: %w", err)
	}

	log.Info().
		Int("season", year).
		Int("count", len(stats)).
		Msg("Stats fetched")

	return stats, nil
}

// FetchPlayers fetches the full roster keyed by player id
func (c *Client) FetchPlayers(ctx context.Context) (map[string]*models.PlayerInput, error) {
	path := fmt.Sprintf("players/%s", c.sport)
	body, err := c.get(ctx, "players", path)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch players: %w", err)
	}

	players, err := decodeKeyed[models.PlayerInput](body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode players: %w", err)
	}

	log.Info().Int("count", len(players)).Msg("Players fetched")

	return players, nil
}
