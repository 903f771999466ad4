package models

import (
	"database/sql"
	"strings"
	"time"
)

// Position is a roster position as reported by the provider
type Position string

const (
	PositionQB    Position = "QB"
	PositionRB    Position = "RB"
	PositionWR    Position = "WR"
	PositionTE    Position = "TE"
	PositionK     Position = "K"
	PositionDEF   Position = "DEF"
	PositionOther Position = "OTHER"
)

// ParsePosition normalizes a provider position string. Anything outside the
// known set maps to PositionOther.
func ParsePosition(s string) Position {
	switch p := Position(strings.ToUpper(strings.TrimSpace(s))); p {
	case PositionQB, PositionRB, PositionWR, PositionTE, PositionK, PositionDEF:
		return p
	default:
		return PositionOther
	}
}

// Player represents an NFL player in the roster snapshot
type Player struct {
	ID        string         `db:"id"`
	FirstName string         `db:"first_name"`
	LastName  string         `db:"last_name"`
	Position  string         `db:"position"`
	Team      sql.NullString `db:"team"`
	Active    bool           `db:"active"`
	YearsExp  sql.NullInt32  `db:"years_exp"`
	SyncedAt  time.Time      `db:"synced_at"`
}

// PlayerInput is a single roster entry as returned by the provider
type PlayerInput struct {
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Position  *string `json:"position"`
	Team      *string `json:"team"`
	Active    bool    `json:"active"`
	YearsExp  *int    `json:"years_exp"`
}

// ToPlayer converts PlayerInput (from API) to Player model
func (pi *PlayerInput) ToPlayer(playerID string) *Player {
	player := &Player{
		ID:        playerID,
		FirstName: pi.FirstName,
		LastName:  pi.LastName,
		Active:    pi.Active,
	}

	// The raw position string is kept; DEF rows and unusual positions (LS, OL...)
	// must survive the roster replace untouched.
	if pi.Position != nil {
		player.Position = *pi.Position
	}
	if pi.Team != nil && *pi.Team != "" {
		player.Team = sql.NullString{String: *pi.Team, Valid: true}
	}
	if pi.YearsExp != nil && *pi.YearsExp >= 0 {
		player.YearsExp = sql.NullInt32{Int32: int32(*pi.YearsExp), Valid: true}
	}

	return player
}
