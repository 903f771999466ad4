package repository

import (
	"context"
	"fmt"

	"bfb/ingestion/internal/models"
)

// RankingRepository reads season stat lines annotated with per-position percentiles
type RankingRepository struct {
	db *Database
}

// Percentiles are computed within each position group. Nulls sort first, so a
// player without a dynasty value or without games sits at the bottom.
const annotatedQuery = `
	WITH season AS (
		SELECT
			s.player_id, s.year, s.pos_rank_half_ppr, s.gms_active, s.pts_half_ppr,
			p.first_name, p.last_name, p.position, p.team, p.active, p.years_exp, p.synced_at,
			d.value,
			CASE WHEN s.gms_active > 0 THEN s.pts_half_ppr / s.gms_active END AS ppg
		FROM player_stats s
		JOIN nfl_players p ON p.id = s.player_id
		LEFT JOIN dynasty_values d ON d.player_id = s.player_id
		WHERE s.year = $1
	)
	SELECT
		player_id, year, pos_rank_half_ppr, gms_active, pts_half_ppr,
		first_name, last_name, position, team, active, years_exp, synced_at,
		value, ppg,
		percent_rank() OVER (PARTITION BY position ORDER BY value ASC NULLS FIRST) AS value_percentile,
		percent_rank() OVER (PARTITION BY position ORDER BY ppg ASC NULLS FIRST) AS ppg_percentile
	FROM season
	ORDER BY position, player_id
`

// ListAnnotated returns every stat line for year joined with its roster
// entry, dynasty value and both percentiles.
func (r *RankingRepository) ListAnnotated(ctx context.Context, year int) ([]*models.AnnotatedPlayer, error) {
	rows, err := r.db.Pool.Query(ctx, annotatedQuery, year)
	if err != nil {
		return nil, fmt.Errorf("failed to query annotated players: %w", err)
	}
	defer rows.Close()

	var result []*models.AnnotatedPlayer
	for rows.Next() {
		var a models.AnnotatedPlayer
		if err := rows.Scan(
			&a.PlayerStats.PlayerID, &a.PlayerStats.Year, &a.PosRankHalfPPR, &a.GmsActive, &a.PtsHalfPPR,
			&a.FirstName, &a.LastName, &a.Position, &a.Team, &a.Active, &a.YearsExp, &a.SyncedAt,
			&a.DynastyValue, &a.PPG,
			&a.ValuePercentile, &a.PPGPercentile,
		); err != nil {
			return nil, fmt.Errorf("failed to scan annotated player: %w", err)
		}
		a.Player.ID = a.PlayerStats.PlayerID
		result = append(result, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating annotated players: %w", err)
	}

	return result, nil
}
