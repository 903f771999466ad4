package models

import (
	"database/sql"
	"math"
)

// PlayerStats represents one player's season statistics in half-PPR scoring
type PlayerStats struct {
	PlayerID       string          `db:"player_id"`
	Year           int             `db:"year"`
	PosRankHalfPPR sql.NullInt32   `db:"pos_rank_half_ppr"`
	GmsActive      sql.NullInt32   `db:"gms_active"`
	PtsHalfPPR     sql.NullFloat64 `db:"pts_half_ppr"`
}

// StatsInput is a single stats entry as returned by the provider.
// Numeric fields arrive as JSON numbers that may carry a fractional part
// ("gp": 17.0), so they are decoded as floats.
type StatsInput struct {
	PosRankHalfPPR *float64 `json:"pos_rank_half_ppr"`
	GmsActive      *float64 `json:"gms_active"`
	GP             *float64 `json:"gp"`
	GS             *float64 `json:"gs"`
	PtsHalfPPR     *float64 `json:"pts_half_ppr"`
}

// GamesActive picks the first non-null of gms_active, gp, gs.
// All null or absent yields nil; zero is a real value and wins.
func (si *StatsInput) GamesActive() *float64 {
	for _, v := range []*float64{si.GmsActive, si.GP, si.GS} {
		if v != nil {
			return v
		}
	}
	return nil
}

// ToPlayerStats converts StatsInput (from API) to PlayerStats model
func (si *StatsInput) ToPlayerStats(playerID string, year int) *PlayerStats {
	stats := &PlayerStats{
		PlayerID: playerID,
		Year:     year,
	}

	if si.PosRankHalfPPR != nil {
		stats.PosRankHalfPPR = sql.NullInt32{Int32: int32(math.Round(*si.PosRankHalfPPR)), Valid: true}
	}
	// Negative counts pass through; the store rejects them.
	if g := si.GamesActive(); g != nil {
		stats.GmsActive = sql.NullInt32{Int32: int32(math.Round(*g)), Valid: true}
	}
	if si.PtsHalfPPR != nil {
		stats.PtsHalfPPR = sql.NullFloat64{Float64: *si.PtsHalfPPR, Valid: true}
	}

	return stats
}
