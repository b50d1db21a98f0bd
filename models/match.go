package models

import "time"

type MatchStatus string

const (
	MatchStatusScheduled  MatchStatus = "scheduled"
	MatchStatusInProgress MatchStatus = "in_progress"
	MatchStatusCompleted  MatchStatus = "completed"
	MatchStatusCancelled  MatchStatus = "cancelled"
	// MatchStatusUndetermined is display-only and never persisted.
	MatchStatusUndetermined MatchStatus = "undetermined"
)

type BracketSide string

const (
	BracketWinners BracketSide = "winners"
	BracketLosers  BracketSide = "losers"
)

type MatchKind string

const (
	MatchKindRegular     MatchKind = "regular"
	MatchKindGrandFinal  MatchKind = "grand_final"
	MatchKindIfNecessary MatchKind = "if_necessary"
	MatchKindCombined    MatchKind = "combined"
)

// Score is the pair of points reported for team1 and team2.
type Score struct {
	Team1 int `json:"team1"`
	Team2 int `json:"team2"`
}

type Match struct {
	ID              int         `json:"id" db:"id"`
	EventID         int         `json:"event_id" db:"event_id"`
	BracketMatchUID string      `json:"bracket_match_uid" db:"bracket_match_uid"`
	Round           int         `json:"round" db:"round"`
	MatchNumber     int         `json:"match_number" db:"match_number"`
	Bracket         BracketSide `json:"bracket" db:"bracket"`
	Kind            MatchKind   `json:"kind" db:"kind"`
	Status          MatchStatus `json:"status" db:"status"`
	Team1           Slot        `json:"team1" db:"-"`
	Team2           Slot        `json:"team2" db:"-"`
	// Partner ids are only set on combined-team matches.
	Team1PartnerID *int      `json:"team1_partner_id,omitempty" db:"team1_partner_id"`
	Team2PartnerID *int      `json:"team2_partner_id,omitempty" db:"team2_partner_id"`
	WinnerID       *int      `json:"winner_id,omitempty" db:"winner_id"`
	Score          *Score    `json:"score,omitempty" db:"-"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// TeamIDs returns both resolved team ids; ok is false while either slot is pending.
func (m *Match) TeamIDs() (team1, team2 int, ok bool) {
	t1, ok1 := m.Team1.Team()
	t2, ok2 := m.Team2.Team()
	return t1, t2, ok1 && ok2
}

// LoserID is only meaningful for completed matches.
func (m *Match) LoserID() (int, bool) {
	if m.WinnerID == nil {
		return 0, false
	}
	t1, t2, ok := m.TeamIDs()
	if !ok {
		return 0, false
	}
	if *m.WinnerID == t1 {
		return t2, true
	}
	return t1, true
}

// IsFinished reports whether the match no longer blocks event completion.
func (m *Match) IsFinished() bool {
	return m.Status == MatchStatusCompleted || m.Status == MatchStatusCancelled
}

func (m *Match) Clone() *Match {
	c := *m
	if m.WinnerID != nil {
		w := *m.WinnerID
		c.WinnerID = &w
	}
	if m.Score != nil {
		s := *m.Score
		c.Score = &s
	}
	if m.Team1PartnerID != nil {
		p := *m.Team1PartnerID
		c.Team1PartnerID = &p
	}
	if m.Team2PartnerID != nil {
		p := *m.Team2PartnerID
		c.Team2PartnerID = &p
	}
	return &c
}
