package models

import "database/sql"

// AnnotatedPlayer is a season stat line joined with its roster entry and
// the two percentiles computed by the read query. It is never persisted.
type AnnotatedPlayer struct {
	Player
	PlayerStats

	DynastyValue    sql.NullInt32   `db:"value"`
	PPG             sql.NullFloat64 `db:"ppg"`
	ValuePercentile float64         `db:"value_percentile"`
	PPGPercentile   float64         `db:"ppg_percentile"`
}

// RankedPlayer is an AnnotatedPlayer with its derived score.
// BFBValue is nil when the position has no configured weighting.
type RankedPlayer struct {
	AnnotatedPlayer
	BFBValue *int `json:"bfbValue"`
}
