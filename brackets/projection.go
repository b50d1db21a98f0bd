package brackets

import (
	"fmt"
	"sort"

	"github.com/Dosada05/competition-system/models"
	"github.com/Dosada05/competition-system/ratings"
)

// TeamView is the render-ready side of a match.
type TeamView struct {
	TeamID       *int   `json:"team_id,omitempty"`
	Name         string `json:"name,omitempty"`
	Abbreviation string `json:"abbreviation,omitempty"`
	Color        string `json:"color,omitempty"`
	// Placeholder is set while the slot waits on another match.
	Placeholder string `json:"placeholder,omitempty"`
	Partner     *int   `json:"partner_team_id,omitempty"`
}

type MatchView struct {
	ID             int                `json:"id"`
	UID            string             `json:"uid"`
	Round          int                `json:"round"`
	MatchNumber    int                `json:"match_number"`
	Bracket        models.BracketSide `json:"bracket"`
	Kind           models.MatchKind   `json:"kind"`
	Status         models.MatchStatus `json:"status"`
	Team1          TeamView           `json:"team1"`
	Team2          TeamView           `json:"team2"`
	WinnerID       *int               `json:"winner_id,omitempty"`
	Score          *models.Score      `json:"score,omitempty"`
	WinProbability *[2]int            `json:"win_probability,omitempty"`
}

type RoundView struct {
	Round   int         `json:"round"`
	Matches []MatchView `json:"matches"`
}

type BracketView struct {
	EventID      int                  `json:"event_id"`
	Winners      []RoundView          `json:"winners"`
	Losers       []RoundView          `json:"losers"`
	Finals       []MatchView          `json:"finals"`
	Participants []models.Participant `json:"participants"`
	Complete     bool                 `json:"complete"`
	ChampionID   *int                 `json:"champion_id,omitempty"`
}

// ProjectionInput is a snapshot of everything needed to render one bracket.
// Ratings is keyed by team id; missing teams get no win probability.
type ProjectionInput struct {
	EventID      int
	Matches      []*models.Match
	Participants []models.Participant
	Teams        map[int]*models.Team
	Ratings      map[int]float64
}

// DisplayStatus derives what a match should look like to a viewer. Stored
// statuses never include undetermined.
func DisplayStatus(m *models.Match) models.MatchStatus {
	switch {
	case m.Status == models.MatchStatusCancelled:
		return models.MatchStatusCancelled
	case m.WinnerID != nil:
		return models.MatchStatusCompleted
	case !m.Team1.IsResolved() || !m.Team2.IsResolved():
		return models.MatchStatusUndetermined
	case m.Score != nil || m.Status == models.MatchStatusInProgress:
		return models.MatchStatusInProgress
	}
	return models.MatchStatusScheduled
}

// Placeholder renders a pending slot as "Winner of G7" or "Loser of ABC/XYZ".
// Team abbreviations are used once the feeder match knows both teams.
func Placeholder(slot models.Slot, byID map[int]*models.Match, teams map[int]*models.Team) string {
	srcID, wantsWinner, ok := slot.Source()
	if !ok {
		return ""
	}
	verb := "Loser"
	if wantsWinner {
		verb = "Winner"
	}
	src, ok := byID[srcID]
	if !ok {
		return fmt.Sprintf("%s of match %d", verb, srcID)
	}
	if t1, t2, ready := src.TeamIDs(); ready {
		a, b := abbreviation(teams, t1), abbreviation(teams, t2)
		if a != "" && b != "" {
			return fmt.Sprintf("%s of %s/%s", verb, a, b)
		}
	}
	return fmt.Sprintf("%s of G%d", verb, src.MatchNumber)
}

func abbreviation(teams map[int]*models.Team, id int) string {
	if t, ok := teams[id]; ok && t != nil {
		return t.Abbreviation
	}
	return ""
}

// Project assembles the render-ready bracket.
func Project(in ProjectionInput) *BracketView {
	sorted := make([]*models.Match, len(in.Matches))
	copy(sorted, in.Matches)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].MatchNumber < sorted[j].MatchNumber })

	byID := make(map[int]*models.Match, len(sorted))
	for _, m := range sorted {
		byID[m.ID] = m
	}

	view := &BracketView{
		EventID:      in.EventID,
		Winners:      []RoundView{},
		Losers:       []RoundView{},
		Finals:       []MatchView{},
		Participants: in.Participants,
		Complete:     len(sorted) > 0 && AreAllMatchesCompleted(sorted),
	}
	if view.Participants == nil {
		view.Participants = []models.Participant{}
	}

	winners := make(map[int][]MatchView)
	losers := make(map[int][]MatchView)
	for _, m := range sorted {
		mv := projectMatch(m, byID, in)
		switch {
		case m.Kind == models.MatchKindGrandFinal, m.Kind == models.MatchKindIfNecessary, m.Kind == models.MatchKindCombined:
			view.Finals = append(view.Finals, mv)
		case m.Bracket == models.BracketLosers:
			losers[m.Round] = append(losers[m.Round], mv)
		default:
			winners[m.Round] = append(winners[m.Round], mv)
		}
	}
	view.Winners = groupRounds(winners)
	view.Losers = groupRounds(losers)

	if champion, _, err := Finalists(sorted); err == nil {
		view.ChampionID = &champion
	}
	for _, m := range sorted {
		if m.Kind == models.MatchKindCombined && m.WinnerID != nil {
			view.ChampionID = m.WinnerID
		}
	}
	return view
}

func projectMatch(m *models.Match, byID map[int]*models.Match, in ProjectionInput) MatchView {
	mv := MatchView{
		ID:          m.ID,
		UID:         m.BracketMatchUID,
		Round:       m.Round,
		MatchNumber: m.MatchNumber,
		Bracket:     m.Bracket,
		Kind:        m.Kind,
		Status:      DisplayStatus(m),
		Team1:       teamView(m.Team1, m.Team1PartnerID, byID, in.Teams),
		Team2:       teamView(m.Team2, m.Team2PartnerID, byID, in.Teams),
		WinnerID:    m.WinnerID,
		Score:       m.Score,
	}
	if mv.Status != models.MatchStatusScheduled {
		return mv
	}
	t1, t2, _ := m.TeamIDs()
	r1, ok1 := in.Ratings[t1]
	r2, ok2 := in.Ratings[t2]
	if ok1 && ok2 {
		p1, p2 := ratings.WinProbability(r1, r2)
		mv.WinProbability = &[2]int{p1, p2}
	}
	return mv
}

func teamView(slot models.Slot, partner *int, byID map[int]*models.Match, teams map[int]*models.Team) TeamView {
	id, ok := slot.Team()
	if !ok {
		return TeamView{Placeholder: Placeholder(slot, byID, teams)}
	}
	tv := TeamView{TeamID: &id, Partner: partner}
	if t, ok := teams[id]; ok && t != nil {
		tv.Name = t.Name
		tv.Abbreviation = t.Abbreviation
		tv.Color = t.Color
	}
	return tv
}

func groupRounds(byRound map[int][]MatchView) []RoundView {
	rounds := make([]int, 0, len(byRound))
	for r := range byRound {
		rounds = append(rounds, r)
	}
	sort.Ints(rounds)
	out := make([]RoundView, 0, len(rounds))
	for _, r := range rounds {
		out = append(out, RoundView{Round: r, Matches: byRound[r]})
	}
	return out
}
