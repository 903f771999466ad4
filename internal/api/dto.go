package api

import (
	"database/sql"

	"bfb/ingestion/internal/models"
)

// rankingEntry is the wire form of a ranked player. Nullable columns
// become JSON null.
type rankingEntry struct {
	ID              string   `json:"id"`
	FirstName       string   `json:"first_name"`
	LastName        string   `json:"last_name"`
	Position        string   `json:"position"`
	Team            *string  `json:"team"`
	Active          bool     `json:"active"`
	YearsExp        *int32   `json:"years_exp"`
	Year            int      `json:"year"`
	PosRankHalfPPR  *int32   `json:"pos_rank_half_ppr"`
	GmsActive       *int32   `json:"gms_active"`
	PtsHalfPPR      *float64 `json:"pts_half_ppr"`
	PPG             *float64 `json:"ppg"`
	Value           *int32   `json:"value"`
	ValuePercentile float64  `json:"value_percentile"`
	PPGPercentile   float64  `json:"ppg_percentile"`
	BFBValue        *int     `json:"bfbValue"`
}

func newRankingEntry(p *models.RankedPlayer) rankingEntry {
	return rankingEntry{
		ID:              p.Player.ID,
		FirstName:       p.FirstName,
		LastName:        p.LastName,
		Position:        p.Player.Position,
		Team:            nullString(p.Team),
		Active:          p.Active,
		YearsExp:        nullInt(p.YearsExp),
		Year:            p.PlayerStats.Year,
		PosRankHalfPPR:  nullInt(p.PosRankHalfPPR),
		GmsActive:       nullInt(p.GmsActive),
		PtsHalfPPR:      nullFloat(p.PtsHalfPPR),
		PPG:             nullFloat(p.PPG),
		Value:           nullInt(p.DynastyValue),
		ValuePercentile: p.ValuePercentile,
		PPGPercentile:   p.PPGPercentile,
		BFBValue:        p.BFBValue,
	}
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullInt(v sql.NullInt32) *int32 {
	if !v.Valid {
		return nil
	}
	return &v.Int32
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}
