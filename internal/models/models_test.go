package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsInput_GamesActiveFirstNonNullWins(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    *int32
	}{
		{"gms_active beats gp and gs", `{"gms_active": 12, "gp": 14, "gs": 10}`, ptr(int32(12))},
		{"key order in payload is irrelevant", `{"gs": 10, "gp": 14, "gms_active": 12}`, ptr(int32(12))},
		{"gms_active null falls through to gp", `{"gms_active": null, "gp": 14, "gs": 10}`, ptr(int32(14))},
		{"gp beats gs", `{"gp": 14, "gs": 10}`, ptr(int32(14))},
		{"only gs", `{"gs": 9}`, ptr(int32(9))},
		{"zero is kept", `{"gms_active": 0, "gp": 14}`, ptr(int32(0))},
		{"fractional number", `{"gp": 17.0}`, ptr(int32(17))},
		{"negative is not dropped", `{"gms_active": -1, "gp": 14}`, ptr(int32(-1))},
		{"all null", `{"gms_active": null, "gp": null, "gs": null}`, nil},
		{"all absent", `{}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var in StatsInput
			require.NoError(t, json.Unmarshal([]byte(tt.payload), &in))

			stats := in.ToPlayerStats("100", 2024)
			if tt.want == nil {
				assert.False(t, stats.GmsActive.Valid, "games active should stay null")
				return
			}
			require.True(t, stats.GmsActive.Valid)
			assert.Equal(t, *tt.want, stats.GmsActive.Int32)
		})
	}
}

func TestStatsInput_ToPlayerStatsPreservesNulls(t *testing.T) {
	var in StatsInput
	require.NoError(t, json.Unmarshal([]byte(`{"pos_rank_half_ppr": 3, "gms_active": null, "pts_half_ppr": null}`), &in))

	stats := in.ToPlayerStats("100", 2024)
	assert.Equal(t, "100", stats.PlayerID)
	assert.Equal(t, 2024, stats.Year)
	assert.True(t, stats.PosRankHalfPPR.Valid)
	assert.Equal(t, int32(3), stats.PosRankHalfPPR.Int32)
	assert.False(t, stats.GmsActive.Valid)
	assert.False(t, stats.PtsHalfPPR.Valid)
}

func TestPlayerInput_ToPlayer(t *testing.T) {
	payload := `{"first_name": "Josh", "last_name": "Allen", "position": "QB", "team": "BUF", "active": true, "years_exp": 6}`
	var in PlayerInput
	require.NoError(t, json.Unmarshal([]byte(payload), &in))

	p := in.ToPlayer("4984")
	assert.Equal(t, "4984", p.ID)
	assert.Equal(t, "Josh", p.FirstName)
	assert.Equal(t, "Allen", p.LastName)
	assert.Equal(t, "QB", p.Position)
	assert.Equal(t, "BUF", p.Team.String)
	assert.True(t, p.Active)
	assert.Equal(t, int32(6), p.YearsExp.Int32)
}

func TestPlayerInput_ToPlayerFreeAgent(t *testing.T) {
	var in PlayerInput
	require.NoError(t, json.Unmarshal([]byte(`{"first_name": "A", "last_name": "B", "position": null, "team": null, "active": false}`), &in))

	p := in.ToPlayer("1")
	assert.Equal(t, "", p.Position)
	assert.False(t, p.Team.Valid)
	assert.False(t, p.YearsExp.Valid)
}

func TestParsePosition(t *testing.T) {
	assert.Equal(t, PositionQB, ParsePosition("qb"))
	assert.Equal(t, PositionDEF, ParsePosition(" DEF "))
	assert.Equal(t, PositionOther, ParsePosition("LS"))
	assert.Equal(t, PositionOther, ParsePosition(""))
}

func TestParseSeason(t *testing.T) {
	year, err := ParseSeason("2024")
	require.NoError(t, err)
	assert.Equal(t, 2024, year)

	year, err = ParseSeason(" 2023 ")
	require.NoError(t, err)
	assert.Equal(t, 2023, year)

	for _, bad := range []string{"", "twenty", "24", "99999"} {
		_, err := ParseSeason(bad)
		assert.True(t, errors.Is(err, ErrInvalidSeason), "season %q", bad)
	}
}

func ptr[T any](v T) *T {
	return &v
}
