package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bfb/ingestion/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 2*time.Second)
}

func TestFetchStats(t *testing.T) {
	var gotPath string
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"100": {"pos_rank_half_ppr": 3, "gms_active": null, "pts_half_ppr": null},
			"200": {"pos_rank_half_ppr": 1, "gp": 17, "pts_half_ppr": 301.5}
		}`))
	})

	stats, err := c.FetchStats(context.Background(), "2024")
	require.NoError(t, err)
	assert.Equal(t, "/stats/nfl/regular/2024", gotPath)
	require.Len(t, stats, 2)

	s100 := stats["100"].ToPlayerStats("100", 2024)
	assert.False(t, s100.GmsActive.Valid, "null gms_active must stay null")
	assert.False(t, s100.PtsHalfPPR.Valid)
	assert.Equal(t, int32(3), s100.PosRankHalfPPR.Int32)

	s200 := stats["200"].ToPlayerStats("200", 2024)
	assert.Equal(t, int32(17), s200.GmsActive.Int32)
	assert.Equal(t, 301.5, s200.PtsHalfPPR.Float64)
}

func TestFetchStats_CustomSegment(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Second, WithSport("nfl"), WithSeasonSegment("post"))
	stats, err := c.FetchStats(context.Background(), "2023")
	require.NoError(t, err)
	assert.Empty(t, stats)
	assert.Equal(t, "/stats/nfl/post/2023", gotPath)
}

func TestFetchStats_InvalidSeason(t *testing.T) {
	called := false
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := c.FetchStats(context.Background(), "next-year")
	assert.True(t, errors.Is(err, models.ErrInvalidSeason))
	assert.False(t, called, "no request should be made for an invalid season")
}

func TestFetchStats_Non2xxIsUpstreamUnavailable(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusServiceUnavailable)
	})

	_, err := c.FetchStats(context.Background(), "2024")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUpstreamUnavailable))
}

func TestFetchStats_NoRetry(t *testing.T) {
	calls := 0
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.FetchStats(context.Background(), "2024")
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestFetchStats_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 50*time.Millisecond)
	_, err := c.FetchStats(context.Background(), "2024")
	assert.True(t, errors.Is(err, ErrUpstreamUnavailable))
}

func TestFetchStats_MalformedPayload(t *testing.T) {
	bodies := map[string]string{
		"array":         `[{"pos_rank_half_ppr": 1}]`,
		"null":          `null`,
		"truncated":     `{"100": {"gp": 1`,
		"scalar entry":  `{"100": 5}`,
		"wrong type":    `{"100": {"gp": "seventeen"}}`,
		"html response": `<html>maintenance</html>`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			})

			_, err := c.FetchStats(context.Background(), "2024")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedPayload), "got %v", err)
		})
	}
}

func TestFetchPlayers(t *testing.T) {
	var gotPath string
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{
			"4984": {"first_name": "Josh", "last_name": "Allen", "position": "QB", "team": "BUF", "active": true, "years_exp": 6},
			"BUF": {"first_name": "Buffalo", "last_name": "Bills", "position": "DEF", "team": "BUF", "active": true}
		}`))
	})

	players, err := c.FetchPlayers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/players/nfl", gotPath)
	require.Len(t, players, 2)
	assert.Equal(t, "Allen", players["4984"].LastName)
	assert.Nil(t, players["BUF"].YearsExp)
}

func TestFetchPlayers_CancelledContext(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.FetchPlayers(ctx)
	assert.True(t, errors.Is(err, ErrUpstreamUnavailable))
}
