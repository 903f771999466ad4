package repository

import (
	"context"
	"fmt"

	"bfb/ingestion/internal/models"

	"github.com/rs/zerolog/log"
)

var playersTable = Table{
	Name:       "nfl_players",
	Columns:    []string{"id", "first_name", "last_name", "position", "team", "active", "years_exp"},
	KeyColumns: []string{"id"},
}

const playerColumns = `id, first_name, last_name, position, team, active, years_exp, synced_at`

// PlayerRepository handles roster database operations
type PlayerRepository struct {
	db *Database
}

// ReplaceAll swaps the whole roster with the given snapshot
func (r *PlayerRepository) ReplaceAll(ctx context.Context, players []*models.Player) (int64, error) {
	rows := make([][]any, 0, len(players))
	for _, p := range players {
		rows = append(rows, []any{p.ID, p.FirstName, p.LastName, p.Position, p.Team, p.Active, p.YearsExp})
	}

	count, err := r.db.Snapshots.Replace(ctx, playersTable, nil, rows)
	if err != nil {
		return 0, fmt.Errorf("failed to replace roster: %w", err)
	}

	log.Info().Int64("rows", count).Msg("Roster replaced")

	return count, nil
}

// GetByID retrieves a player by provider id
func (r *PlayerRepository) GetByID(ctx context.Context, id string) (*models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM nfl_players WHERE id = $1`

	var p models.Player
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.FirstName, &p.LastName, &p.Position, &p.Team, &p.Active, &p.YearsExp, &p.SyncedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, fmt.Errorf("player %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}

	return &p, nil
}

// Count returns the number of players in the current roster snapshot
func (r *PlayerRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM nfl_players`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count players: %w", err)
	}
	return count, nil
}
