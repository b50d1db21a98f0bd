package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

type slotKind uint8

const (
	slotEmpty slotKind = iota
	slotResolved
	slotPending
)

var ErrInvalidSlot = errors.New("slot must hold exactly one of team or source match")

// Slot is one side of a match: either a concrete team (Resolved) or a
// forward reference to the winner/loser of another match (Pending).
// The zero value is an empty slot and is never persisted.
type Slot struct {
	kind          slotKind
	teamID        int
	sourceMatchID int
	wantsWinner   bool
}

func Resolved(teamID int) Slot {
	return Slot{kind: slotResolved, teamID: teamID}
}

func Pending(sourceMatchID int, wantsWinner bool) Slot {
	return Slot{kind: slotPending, sourceMatchID: sourceMatchID, wantsWinner: wantsWinner}
}

func (s Slot) IsResolved() bool { return s.kind == slotResolved }
func (s Slot) IsPending() bool  { return s.kind == slotPending }
func (s Slot) IsEmpty() bool    { return s.kind == slotEmpty }

// Team returns the resolved team id.
func (s Slot) Team() (int, bool) {
	if s.kind != slotResolved {
		return 0, false
	}
	return s.teamID, true
}

// Source returns the feeder match id and whether the slot takes its winner.
func (s Slot) Source() (matchID int, wantsWinner bool, ok bool) {
	if s.kind != slotPending {
		return 0, false, false
	}
	return s.sourceMatchID, s.wantsWinner, true
}

// Feeds reports whether the slot waits on the given match.
func (s Slot) Feeds(matchID int) bool {
	return s.kind == slotPending && s.sourceMatchID == matchID
}

// Columns flattens the slot into the nullable columns used by the matches table.
func (s Slot) Columns() (teamID *int, fromMatchID *int, isWinner *bool) {
	switch s.kind {
	case slotResolved:
		id := s.teamID
		return &id, nil, nil
	case slotPending:
		id, w := s.sourceMatchID, s.wantsWinner
		return nil, &id, &w
	}
	return nil, nil, nil
}

// SlotFromColumns is the inverse of Columns.
func SlotFromColumns(teamID *int, fromMatchID *int, isWinner *bool) (Slot, error) {
	switch {
	case teamID != nil && fromMatchID == nil:
		return Resolved(*teamID), nil
	case teamID == nil && fromMatchID != nil:
		w := true
		if isWinner != nil {
			w = *isWinner
		}
		return Pending(*fromMatchID, w), nil
	case teamID == nil && fromMatchID == nil:
		return Slot{}, nil
	}
	return Slot{}, ErrInvalidSlot
}

func (s Slot) String() string {
	switch s.kind {
	case slotResolved:
		return fmt.Sprintf("team(%d)", s.teamID)
	case slotPending:
		if s.wantsWinner {
			return fmt.Sprintf("winner(%d)", s.sourceMatchID)
		}
		return fmt.Sprintf("loser(%d)", s.sourceMatchID)
	}
	return "empty"
}

type slotJSON struct {
	TeamID       *int  `json:"team_id,omitempty"`
	FromMatchID  *int  `json:"from_match_id,omitempty"`
	FromIsWinner *bool `json:"from_is_winner,omitempty"`
}

func (s Slot) MarshalJSON() ([]byte, error) {
	teamID, fromMatchID, isWinner := s.Columns()
	return json.Marshal(slotJSON{TeamID: teamID, FromMatchID: fromMatchID, FromIsWinner: isWinner})
}

func (s *Slot) UnmarshalJSON(data []byte) error {
	var raw slotJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	slot, err := SlotFromColumns(raw.TeamID, raw.FromMatchID, raw.FromIsWinner)
	if err != nil {
		return err
	}
	*s = slot
	return nil
}
