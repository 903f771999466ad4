package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"bfb/ingestion/internal/models"
	"bfb/ingestion/internal/repository"

	"github.com/rs/zerolog/log"
)

// StatsReader reads the stored stats snapshot
type StatsReader interface {
	GetBySeason(ctx context.Context, year int) ([]*models.PlayerStats, error)
	GetByPlayerAndSeason(ctx context.Context, playerID string, year int) (*models.PlayerStats, error)
	CountBySeason(ctx context.Context, year int) (int, error)
}

// PlayerReader reads the stored roster snapshot
type PlayerReader interface {
	GetByID(ctx context.Context, id string) (*models.Player, error)
	Count(ctx context.Context) (int, error)
}

// WithSnapshots enables the raw snapshot read routes
func (s *Server) WithSnapshots(stats StatsReader, players PlayerReader) *Server {
	s.stats = stats
	s.players = players
	return s
}

func (s *Server) registerSnapshotRoutes(mux *http.ServeMux) {
	if s.stats == nil || s.players == nil {
		return
	}
	mux.HandleFunc("GET /stats/{year}", s.handleSeasonStats)
	mux.HandleFunc("GET /stats/{year}/{playerID}", s.handlePlayerStats)
	mux.HandleFunc("GET /players/{id}", s.handlePlayer)
	mux.HandleFunc("GET /snapshots/{year}", s.handleSnapshotSummary)
}

type statsEntry struct {
	PlayerID       string   `json:"player_id"`
	Year           int      `json:"year"`
	PosRankHalfPPR *int32   `json:"pos_rank_half_ppr"`
	GmsActive      *int32   `json:"gms_active"`
	PtsHalfPPR     *float64 `json:"pts_half_ppr"`
}

func newStatsEntry(st *models.PlayerStats) statsEntry {
	return statsEntry{
		PlayerID:       st.PlayerID,
		Year:           st.Year,
		PosRankHalfPPR: nullInt(st.PosRankHalfPPR),
		GmsActive:      nullInt(st.GmsActive),
		PtsHalfPPR:     nullFloat(st.PtsHalfPPR),
	}
}

type playerEntry struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Position  string    `json:"position"`
	Team      *string   `json:"team"`
	Active    bool      `json:"active"`
	YearsExp  *int32    `json:"years_exp"`
	SyncedAt  time.Time `json:"synced_at"`
}

type snapshotSummary struct {
	Season    int `json:"season"`
	StatsRows int `json:"statsRows"`
	Players   int `json:"players"`
}

func (s *Server) handleSeasonStats(w http.ResponseWriter, r *http.Request) {
	year, err := models.ParseSeason(r.PathValue("year"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	stats, err := s.stats.GetBySeason(r.Context(), year)
	if err != nil {
		writeReadError(w, err, "failed to load stats")
		return
	}

	out := make([]statsEntry, 0, len(stats))
	for _, st := range stats {
		out = append(out, newStatsEntry(st))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePlayerStats(w http.ResponseWriter, r *http.Request) {
	year, err := models.ParseSeason(r.PathValue("year"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	st, err := s.stats.GetByPlayerAndSeason(r.Context(), r.PathValue("playerID"), year)
	if err != nil {
		writeReadError(w, err, "failed to load stats")
		return
	}
	writeJSON(w, http.StatusOK, newStatsEntry(st))
}

func (s *Server) handlePlayer(w http.ResponseWriter, r *http.Request) {
	p, err := s.players.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeReadError(w, err, "failed to load player")
		return
	}

	writeJSON(w, http.StatusOK, playerEntry{
		ID:        p.ID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Position:  p.Position,
		Team:      nullString(p.Team),
		Active:    p.Active,
		YearsExp:  nullInt(p.YearsExp),
		SyncedAt:  p.SyncedAt,
	})
}

func (s *Server) handleSnapshotSummary(w http.ResponseWriter, r *http.Request) {
	year, err := models.ParseSeason(r.PathValue("year"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	statsRows, err := s.stats.CountBySeason(r.Context(), year)
	if err != nil {
		writeReadError(w, err, "failed to count stats")
		return
	}
	players, err := s.players.Count(r.Context())
	if err != nil {
		writeReadError(w, err, "failed to count players")
		return
	}

	writeJSON(w, http.StatusOK, snapshotSummary{Season: year, StatsRows: statsRows, Players: players})
}

func writeReadError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
		return
	}
	log.Error().Err(err).Msg(msg)
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msg})
}
