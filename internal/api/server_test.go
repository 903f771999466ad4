package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"bfb/ingestion/internal/client"
	"bfb/ingestion/internal/models"
	"bfb/ingestion/internal/pipeline"
	"bfb/ingestion/internal/ranking"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSyncer struct {
	result  *pipeline.Result
	err     error
	seasons []string
	players int
}

func (f *fakeSyncer) Run(_ context.Context, season string) (*pipeline.Result, error) {
	f.seasons = append(f.seasons, season)
	if _, err := models.ParseSeason(season); err != nil {
		return nil, err
	}
	return f.result, f.err
}

func (f *fakeSyncer) RunStats(ctx context.Context, season string) (*pipeline.Result, error) {
	return f.Run(ctx, season)
}

func (f *fakeSyncer) RunPlayers(context.Context) (*pipeline.Result, error) {
	f.players++
	return f.result, f.err
}

type fakeRanker struct {
	players []*models.RankedPlayer
	err     error
	filter  ranking.Filter
	year    int
}

func (f *fakeRanker) Rank(_ context.Context, year int, filter ranking.Filter) ([]*models.RankedPlayer, error) {
	f.year, f.filter = year, filter
	return f.players, f.err
}

type fakeHealth struct{ err error }

func (f fakeHealth) Health(context.Context) error { return f.err }

func doRequest(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	ok := NewServer(&fakeSyncer{}, &fakeRanker{}, fakeHealth{}, false).Handler()
	rec := doRequest(t, ok, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")

	down := NewServer(&fakeSyncer{}, &fakeRanker{}, fakeHealth{err: errors.New("db down")}, false).Handler()
	rec = doRequest(t, down, http.MethodGet, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsRouteToggle(t *testing.T) {
	on := NewServer(&fakeSyncer{}, &fakeRanker{}, fakeHealth{}, true).Handler()
	assert.Equal(t, http.StatusOK, doRequest(t, on, http.MethodGet, "/metrics").Code)

	off := NewServer(&fakeSyncer{}, &fakeRanker{}, fakeHealth{}, false).Handler()
	assert.Equal(t, http.StatusNotFound, doRequest(t, off, http.MethodGet, "/metrics").Code)
}

func TestSync_Success(t *testing.T) {
	syncer := &fakeSyncer{result: &pipeline.Result{
		Season:     2024,
		State:      pipeline.Done,
		History:    []pipeline.State{pipeline.Idle, pipeline.FetchingStats, pipeline.Done},
		StatsRows:  12,
		PlayerRows: 30,
	}}
	h := NewServer(syncer, &fakeRanker{}, fakeHealth{}, false).Handler()

	rec := doRequest(t, h, http.MethodPost, "/sync/2024")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp syncResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "done", resp.State)
	assert.Equal(t, int64(12), resp.StatsRows)
	assert.Equal(t, []string{"idle", "fetching_stats", "done"}, resp.History)
	assert.Equal(t, []string{"2024"}, syncer.seasons)
}

func TestSync_InvalidSeason(t *testing.T) {
	h := NewServer(&fakeSyncer{}, &fakeRanker{}, fakeHealth{}, false).Handler()

	rec := doRequest(t, h, http.MethodPost, "/sync/nineteen")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSync_StepFailure(t *testing.T) {
	syncer := &fakeSyncer{
		result: &pipeline.Result{Season: 2024, State: pipeline.Failed},
		err:    &pipeline.StepError{Step: pipeline.FetchingStats, Err: client.ErrUpstreamUnavailable},
	}
	h := NewServer(syncer, &fakeRanker{}, fakeHealth{}, false).Handler()

	rec := doRequest(t, h, http.MethodPost, "/sync/2024/stats")
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var resp syncResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "fetching_stats", resp.FailedStep)
	assert.Equal(t, "failed", resp.State)
}

func TestSync_LockTimeout(t *testing.T) {
	syncer := &fakeSyncer{err: fmt.Errorf("waiting for pipeline lock: %w", context.Canceled)}
	h := NewServer(syncer, &fakeRanker{}, fakeHealth{}, false).Handler()

	rec := doRequest(t, h, http.MethodPost, "/sync/2024")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSyncPlayers(t *testing.T) {
	syncer := &fakeSyncer{result: &pipeline.Result{State: pipeline.Done, PlayerRows: 3}}
	h := NewServer(syncer, &fakeRanker{}, fakeHealth{}, false).Handler()

	rec := doRequest(t, h, http.MethodPost, "/sync/players")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, syncer.players)
	assert.Empty(t, syncer.seasons, "players route must not hit the season route")
}

func TestRankings(t *testing.T) {
	value := 700
	p := &models.RankedPlayer{BFBValue: &value}
	p.Player.ID = "100"
	p.Player.Position = "WR"
	p.PlayerStats.Year = 2024

	ranker := &fakeRanker{players: []*models.RankedPlayer{p}}
	h := NewServer(&fakeSyncer{}, ranker, fakeHealth{}, false).Handler()

	rec := doRequest(t, h, http.MethodGet, "/rankings/2024?position=wr&rookies=true&limit=10")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 2024, ranker.year)
	assert.Equal(t, ranking.Filter{Position: models.PositionWR, Rookies: true, Limit: 10}, ranker.filter)

	var entries []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "100", entries[0]["id"])
	assert.Equal(t, float64(700), entries[0]["bfbValue"])
	assert.Nil(t, entries[0]["gms_active"], "Null games stays null on the wire")
	assert.Nil(t, entries[0]["team"])
}

func TestRankings_BadQuery(t *testing.T) {
	h := NewServer(&fakeSyncer{}, &fakeRanker{}, fakeHealth{}, false).Handler()

	for _, path := range []string{
		"/rankings/abc",
		"/rankings/2024?limit=-1",
		"/rankings/2024?limit=ten",
		"/rankings/2024?rookies=maybe",
	} {
		rec := doRequest(t, h, http.MethodGet, path)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestRankings_RankerError(t *testing.T) {
	h := NewServer(&fakeSyncer{}, &fakeRanker{err: errors.New("db down")}, fakeHealth{}, false).Handler()

	rec := doRequest(t, h, http.MethodGet, "/rankings/2024")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
