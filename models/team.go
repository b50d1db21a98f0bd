package models

import "time"

type Team struct {
	ID           int       `json:"id" db:"id"`
	SeasonID     int       `json:"season_id" db:"season_id"`
	Name         string    `json:"name" db:"name"`
	Abbreviation string    `json:"abbreviation" db:"abbreviation"`
	Color        string    `json:"color" db:"color"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`

	Roster []Player `json:"roster,omitempty" db:"-"`
}

type Player struct {
	ID           int       `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	GlobalRating float64   `json:"global_rating" db:"global_rating"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`

	// EventRating is the per-event override, populated only when loaded for an event.
	EventRating *float64 `json:"event_rating,omitempty" db:"-"`
}

// RatingChange is one Elo delta applied to a player by a completed match.
type RatingChange struct {
	ID          int       `json:"id" db:"id"`
	PlayerID    int       `json:"player_id" db:"player_id"`
	EventID     int       `json:"event_id" db:"event_id"`
	MatchID     int       `json:"match_id" db:"match_id"`
	Delta       float64   `json:"delta" db:"delta"`
	RatingAfter float64   `json:"rating_after" db:"rating_after"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
