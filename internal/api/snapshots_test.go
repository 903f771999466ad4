package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"bfb/ingestion/internal/models"
	"bfb/ingestion/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStats struct {
	rows []*models.PlayerStats
	err  error
}

func (f *fakeStats) GetBySeason(_ context.Context, year int) ([]*models.PlayerStats, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*models.PlayerStats
	for _, r := range f.rows {
		if r.Year == year {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStats) GetByPlayerAndSeason(ctx context.Context, playerID string, year int) (*models.PlayerStats, error) {
	rows, err := f.GetBySeason(ctx, year)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		if r.PlayerID == playerID {
			return r, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeStats) CountBySeason(ctx context.Context, year int) (int, error) {
	rows, err := f.GetBySeason(ctx, year)
	return len(rows), err
}

type fakePlayers struct {
	players map[string]*models.Player
}

func (f *fakePlayers) GetByID(_ context.Context, id string) (*models.Player, error) {
	p, ok := f.players[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

func (f *fakePlayers) Count(context.Context) (int, error) {
	return len(f.players), nil
}

func snapshotHandler(stats *fakeStats) http.Handler {
	players := &fakePlayers{players: map[string]*models.Player{
		"4046": {ID: "4046", FirstName: "Patrick", LastName: "Mahomes", Position: "QB", Team: sql.NullString{String: "KC", Valid: true}, Active: true},
		"100":  {ID: "100", FirstName: "Some", LastName: "Rookie", Position: "WR"},
	}}
	return NewServer(&fakeSyncer{}, &fakeRanker{}, fakeHealth{}, false).
		WithSnapshots(stats, players).
		Handler()
}

func sampleStats() *fakeStats {
	return &fakeStats{rows: []*models.PlayerStats{
		{PlayerID: "100", Year: 2024, PosRankHalfPPR: sql.NullInt32{Int32: 3, Valid: true}},
		{PlayerID: "4046", Year: 2024, GmsActive: sql.NullInt32{Int32: 0, Valid: true}, PtsHalfPPR: sql.NullFloat64{Float64: 0, Valid: true}},
		{PlayerID: "4046", Year: 2023, GmsActive: sql.NullInt32{Int32: 17, Valid: true}},
	}}
}

func TestSeasonStats(t *testing.T) {
	rec := doRequest(t, snapshotHandler(sampleStats()), http.MethodGet, "/stats/2024")
	require.Equal(t, http.StatusOK, rec.Code)

	var body []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 2)

	assert.Equal(t, "100", body[0]["player_id"])
	assert.Nil(t, body[0]["gms_active"], "Null stays null on the wire")
	assert.Equal(t, float64(0), body[1]["gms_active"], "Zero stays zero on the wire")
}

func TestPlayerStats(t *testing.T) {
	h := snapshotHandler(sampleStats())

	rec := doRequest(t, h, http.MethodGet, "/stats/2023/4046")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"gms_active":17`)

	rec = doRequest(t, h, http.MethodGet, "/stats/2023/100")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, h, http.MethodGet, "/stats/soon/100")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlayer(t *testing.T) {
	h := snapshotHandler(sampleStats())

	rec := doRequest(t, h, http.MethodGet, "/players/4046")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"last_name":"Mahomes"`)
	assert.Contains(t, rec.Body.String(), `"team":"KC"`)

	rec = doRequest(t, h, http.MethodGet, "/players/100")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"team":null`)

	rec = doRequest(t, h, http.MethodGet, "/players/nobody")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSnapshotSummary(t *testing.T) {
	rec := doRequest(t, snapshotHandler(sampleStats()), http.MethodGet, "/snapshots/2024")
	require.Equal(t, http.StatusOK, rec.Code)

	var body snapshotSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, snapshotSummary{Season: 2024, StatsRows: 2, Players: 2}, body)
}

func TestSnapshotReadError(t *testing.T) {
	rec := doRequest(t, snapshotHandler(&fakeStats{err: errors.New("db down")}), http.MethodGet, "/stats/2024")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSnapshotRoutesDisabledByDefault(t *testing.T) {
	h := NewServer(&fakeSyncer{}, &fakeRanker{}, fakeHealth{}, false).Handler()

	rec := doRequest(t, h, http.MethodGet, "/stats/2024")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
