package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type EventType string

const (
	EventTypeTournament   EventType = "tournament"
	EventTypeScored       EventType = "scored"
	EventTypeCombinedTeam EventType = "combined_team"
)

// EventStatus mirrors the event_status enum in the database.
type EventStatus string

const (
	EventStatusUpcoming   EventStatus = "upcoming"
	EventStatusInProgress EventStatus = "in_progress"
	EventStatusCompleted  EventStatus = "completed"
)

// PointsTable maps a finishing position (1-based) to the points it awards.
type PointsTable map[int]int

func (p PointsTable) Award(position int) int {
	return p[position]
}

func (p PointsTable) Value() (driver.Value, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(p)
}

func (p *PointsTable) Scan(src interface{}) error {
	if src == nil {
		*p = nil
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for points table", src)
	}
	table := PointsTable{}
	if err := json.Unmarshal(data, &table); err != nil {
		return fmt.Errorf("failed to decode points table: %w", err)
	}
	*p = table
	return nil
}

type Event struct {
	ID             int         `json:"id" db:"id"`
	SeasonID       int         `json:"season_id" db:"season_id"`
	Name           string      `json:"name" db:"name"`
	Type           EventType   `json:"type" db:"type"`
	Status         EventStatus `json:"status" db:"status"`
	PointsTable    PointsTable `json:"points_table,omitempty" db:"points_table"`
	FinalStandings []int       `json:"final_standings,omitempty" db:"final_standings"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at" db:"updated_at"`
}
