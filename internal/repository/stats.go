package repository

import (
	"context"
	"fmt"

	"bfb/ingestion/internal/models"

	"github.com/rs/zerolog/log"
)

// statsTable is the per-season stats snapshot. Column order is fixed and
// matches the row layout built in ReplaceSeason.
var statsTable = Table{
	Name:        "player_stats",
	Columns:     []string{"player_id", "pos_rank_half_ppr", "gms_active", "pts_half_ppr", "year"},
	KeyColumns:  []string{"player_id", "year"},
	ScopeColumn: "year",
}

// StatsRepository handles player season stats database operations
type StatsRepository struct {
	db *Database
}

// ReplaceSeason swaps the stored stats for year with the given snapshot.
// Every entry must carry the same year.
func (r *StatsRepository) ReplaceSeason(ctx context.Context, year int, stats []*models.PlayerStats) (int64, error) {
	rows := make([][]any, 0, len(stats))
	for _, s := range stats {
		if s.Year != year {
			return 0, fmt.Errorf("stats for player %s carry year %d, want %d", s.PlayerID, s.Year, year)
		}
		rows = append(rows, []any{s.PlayerID, s.PosRankHalfPPR, s.GmsActive, s.PtsHalfPPR, s.Year})
	}

	count, err := r.db.Snapshots.Replace(ctx, statsTable, &year, rows)
	if err != nil {
		return 0, fmt.Errorf("failed to replace stats for %d: %w", year, err)
	}

	log.Info().
		Int("year", year).
		Int64("rows", count).
		Msg("Player stats replaced")

	return count, nil
}

// GetByPlayerAndSeason retrieves one player's stat line for a season
func (r *StatsRepository) GetByPlayerAndSeason(ctx context.Context, playerID string, year int) (*models.PlayerStats, error) {
	query := `
		SELECT player_id, year, pos_rank_half_ppr, gms_active, pts_half_ppr
		FROM player_stats
		WHERE player_id = $1 AND year = $2
	`

	var stats models.PlayerStats
	err := r.db.Pool.QueryRow(ctx, query, playerID, year).Scan(
		&stats.PlayerID, &stats.Year, &stats.PosRankHalfPPR, &stats.GmsActive, &stats.PtsHalfPPR,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, fmt.Errorf("stats for player %s in %d: %w", playerID, year, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}

	return &stats, nil
}

// GetBySeason retrieves all stat lines for a season
func (r *StatsRepository) GetBySeason(ctx context.Context, year int) ([]*models.PlayerStats, error) {
	query := `
		SELECT player_id, year, pos_rank_half_ppr, gms_active, pts_half_ppr
		FROM player_stats
		WHERE year = $1
		ORDER BY player_id
	`

	rows, err := r.db.Pool.Query(ctx, query, year)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	var result []*models.PlayerStats
	for rows.Next() {
		var stats models.PlayerStats
		if err := rows.Scan(
			&stats.PlayerID, &stats.Year, &stats.PosRankHalfPPR, &stats.GmsActive, &stats.PtsHalfPPR,
		); err != nil {
			return nil, fmt.Errorf("failed to scan stats: %w", err)
		}
		result = append(result, &stats)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stats: %w", err)
	}

	return result, nil
}

// CountBySeason returns the number of stat lines stored for a season
func (r *StatsRepository) CountBySeason(ctx context.Context, year int) (int, error) {
	var count int
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM player_stats WHERE year = $1`, year).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count stats: %w", err)
	}
	return count, nil
}
