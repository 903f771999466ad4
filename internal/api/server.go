// Package api exposes health, metrics, sync triggers, ranking reads and raw
// snapshot reads over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"bfb/ingestion/internal/models"
	"bfb/ingestion/internal/pipeline"
	"bfb/ingestion/internal/ranking"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Syncer triggers pipeline runs
type Syncer interface {
	Run(ctx context.Context, season string) (*pipeline.Result, error)
	RunStats(ctx context.Context, season string) (*pipeline.Result, error)
	RunPlayers(ctx context.Context) (*pipeline.Result, error)
}

// Ranker serves scored rankings
type Ranker interface {
	Rank(ctx context.Context, year int, filter ranking.Filter) ([]*models.RankedPlayer, error)
}

// HealthChecker reports store health
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Server wires HTTP routes to the pipeline and ranking service
type Server struct {
	syncer  Syncer
	ranker  Ranker
	health  HealthChecker
	metrics bool

	// optional snapshot readers, see WithSnapshots
	stats   StatsReader
	players PlayerReader
}

// NewServer creates a Server. metrics toggles the /metrics route.
func NewServer(syncer Syncer, ranker Ranker, health HealthChecker, metrics bool) *Server {
	return &Server{syncer: syncer, ranker: ranker, health: health, metrics: metrics}
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	if s.metrics {
		mux.Handle("GET /metrics", promhttp.Handler())
	}
	mux.HandleFunc("POST /sync/players", s.handleSyncPlayers)
	mux.HandleFunc("POST /sync/{year}", s.handleSync)
	mux.HandleFunc("POST /sync/{year}/stats", s.handleSyncStats)
	mux.HandleFunc("GET /rankings/{year}", s.handleRankings)
	s.registerSnapshotRoutes(mux)

	return logRequests(mux)
}

type syncResponse struct {
	Season            int      `json:"season,omitempty"`
	State             string   `json:"state"`
	History           []string `json:"history"`
	StatsRows         int64    `json:"statsRows"`
	PlayerRows        int64    `json:"playerRows"`
	SecondaryExitCode *int     `json:"secondaryExitCode,omitempty"`
	DurationMS        int64    `json:"durationMs"`
	Error             string   `json:"error,omitempty"`
	FailedStep        string   `json:"failedStep,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.health.Health(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	result, err := s.syncer.Run(r.Context(), r.PathValue("year"))
	writeSyncResult(w, result, err)
}

func (s *Server) handleSyncStats(w http.ResponseWriter, r *http.Request) {
	result, err := s.syncer.RunStats(r.Context(), r.PathValue("year"))
	writeSyncResult(w, result, err)
}

func (s *Server) handleSyncPlayers(w http.ResponseWriter, r *http.Request) {
	result, err := s.syncer.RunPlayers(r.Context())
	writeSyncResult(w, result, err)
}

func (s *Server) handleRankings(w http.ResponseWriter, r *http.Request) {
	year, err := models.ParseSeason(r.PathValue("year"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	filter, err := parseFilter(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	players, err := s.ranker.Rank(r.Context(), year, filter)
	if err != nil {
		log.Error().Err(err).Int("year", year).Msg("Failed to rank players")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load rankings"})
		return
	}

	out := make([]rankingEntry, 0, len(players))
	for _, p := range players {
		out = append(out, newRankingEntry(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func parseFilter(r *http.Request) (ranking.Filter, error) {
	q := r.URL.Query()
	var filter ranking.Filter

	if pos := q.Get("position"); pos != "" {
		filter.Position = models.ParsePosition(pos)
	}
	if v := q.Get("rookies"); v != "" {
		rookies, err := strconv.ParseBool(v)
		if err != nil {
			return filter, errors.New("rookies must be a boolean")
		}
		filter.Rookies = rookies
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return filter, errors.New("limit must be a non-negative integer")
		}
		filter.Limit = limit
	}
	return filter, nil
}

func writeSyncResult(w http.ResponseWriter, result *pipeline.Result, err error) {
	if err != nil && errors.Is(err, models.ErrInvalidSeason) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if result == nil {
		status := http.StatusInternalServerError
		if err == nil {
			err = errors.New("no result")
		}
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	resp := syncResponse{
		Season:            result.Season,
		State:             result.State.String(),
		StatsRows:         result.StatsRows,
		PlayerRows:        result.PlayerRows,
		SecondaryExitCode: result.SecondaryExitCode,
		DurationMS:        result.Duration.Milliseconds(),
	}
	for _, st := range result.History {
		resp.History = append(resp.History, st.String())
	}

	status := http.StatusOK
	if err != nil {
		resp.Error = err.Error()
		status = http.StatusInternalServerError

		var stepErr *pipeline.StepError
		if errors.As(err, &stepErr) {
			resp.FailedStep = stepErr.Step.String()
			status = http.StatusBadGateway
		}
	}

	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to write response")
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}
