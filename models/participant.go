package models

import "time"

// Participant is the seed record of a team in one event.
type Participant struct {
	ID               int       `json:"id" db:"id"`
	EventID          int       `json:"event_id" db:"event_id"`
	TeamID           int       `json:"team_id" db:"team_id"`
	Seed             int       `json:"seed" db:"seed"`
	IsEliminated     bool      `json:"is_eliminated" db:"is_eliminated"`
	EliminationRound *int      `json:"elimination_round,omitempty" db:"elimination_round"`
	FinalPosition    *int      `json:"final_position,omitempty" db:"final_position"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`

	Team *Team `json:"team,omitempty" db:"-"`
}

// SeedEntry is one confirmed seed submitted by an admin.
type SeedEntry struct {
	TeamID int `json:"team_id"`
	Seed   int `json:"seed"`
}
