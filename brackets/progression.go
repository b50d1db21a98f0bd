package brackets

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Dosada05/competition-system/models"
)

var (
	ErrMatchNotFound         = errors.New("match not found in bracket")
	ErrMatchNotReady         = errors.New("match teams are not determined yet")
	ErrMatchCompleted        = errors.New("match is already completed")
	ErrMatchCancelled        = errors.New("match has been cancelled")
	ErrTiedScore             = errors.New("a completed match cannot end in a tie")
	ErrNegativeScore         = errors.New("scores must be non-negative")
	ErrWinnerMismatch        = errors.New("winner does not match the reported score")
	ErrDownstreamPlayed      = errors.New("matches fed by this result have already started")
	ErrCorrectionUnsupported = errors.New("bracket layout unavailable for correcting this result")
)

// ScoreUpdate is an admin-reported score for one match.
type ScoreUpdate struct {
	Score     models.Score
	Completed bool
	// WinnerID is optional; when present it must agree with the score.
	WinnerID *int
	// Override allows rewriting the result of a completed match.
	Override bool
}

// Elimination marks a team's second loss.
type Elimination struct {
	TeamID  int
	MatchID int
	Round   int
}

// Result describes everything a score update changed. Callers persist all of
// it in one transaction.
type Result struct {
	Match *models.Match
	// Changed holds downstream matches whose slots or status were rewritten.
	Changed      []*models.Match
	Eliminations []Elimination
	// Revived lists teams whose elimination was undone by a correction.
	Revived []int
	// Completed is true when this update completed the match or rewrote its winner.
	Completed        bool
	PreviousWinnerID *int
	// Decided is true once every match in the bracket is completed or cancelled.
	Decided bool
}

// Feed is the structural origin of one slot, kept so that corrections can find
// slots that were already resolved.
type Feed struct {
	MatchID int
	Winner  bool
}

// Layout maps a match id to the feeds of its two slots (nil for seeded slots).
type Layout map[int][2]*Feed

// BuildLayout maps generated matches onto persisted ones via their bracket uid.
func BuildLayout(generated []*BracketMatch, persisted []*models.Match) Layout {
	ids := make(map[string]int, len(persisted))
	for _, m := range persisted {
		ids[m.BracketMatchUID] = m.ID
	}
	layout := make(Layout, len(generated))
	for _, bm := range generated {
		id, ok := ids[bm.UID]
		if !ok {
			continue
		}
		var feeds [2]*Feed
		for i, src := range []*SourceRef{bm.Source1, bm.Source2} {
			if src == nil {
				continue
			}
			if srcID, ok := ids[src.MatchUID]; ok {
				feeds[i] = &Feed{MatchID: srcID, Winner: src.Winner}
			}
		}
		layout[id] = feeds
	}
	return layout
}

// Engine applies score updates to an in-memory copy of an event's matches.
// It never touches storage.
type Engine struct {
	matches []*models.Match
	byID    map[int]*models.Match
	layout  Layout
}

func NewEngine(matches []*models.Match, layout Layout) *Engine {
	cloned := make([]*models.Match, len(matches))
	byID := make(map[int]*models.Match, len(matches))
	for i, m := range matches {
		c := m.Clone()
		cloned[i] = c
		byID[c.ID] = c
	}
	sort.SliceStable(cloned, func(i, j int) bool { return cloned[i].MatchNumber < cloned[j].MatchNumber })
	return &Engine{matches: cloned, byID: byID, layout: layout}
}

func (e *Engine) Matches() []*models.Match { return e.matches }

func (e *Engine) Match(id int) (*models.Match, bool) {
	m, ok := e.byID[id]
	return m, ok
}

// UpdateScore applies one score report. With Completed=false it records a live
// score; with Completed=true it fixes the winner by strict score comparison and
// propagates winner and loser into every slot waiting on this match.
func (e *Engine) UpdateScore(matchID int, upd ScoreUpdate) (*Result, error) {
	m, ok := e.byID[matchID]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrMatchNotFound, matchID)
	}
	if upd.Score.Team1 < 0 || upd.Score.Team2 < 0 {
		return nil, ErrNegativeScore
	}
	if m.Status == models.MatchStatusCancelled {
		return nil, fmt.Errorf("%w: match %d", ErrMatchCancelled, m.MatchNumber)
	}
	t1, t2, ready := m.TeamIDs()
	if !ready {
		return nil, fmt.Errorf("%w: match %d", ErrMatchNotReady, m.MatchNumber)
	}
	if m.Status == models.MatchStatusCompleted {
		if !upd.Override {
			return nil, fmt.Errorf("%w: match %d", ErrMatchCompleted, m.MatchNumber)
		}
		return e.correct(m, upd)
	}

	score := upd.Score
	if !upd.Completed {
		m.Score = &score
		m.Status = models.MatchStatusInProgress
		return &Result{Match: m}, nil
	}

	winner, loser, err := pickWinner(score, t1, t2, upd.WinnerID)
	if err != nil {
		return nil, err
	}

	m.Score = &score
	m.Status = models.MatchStatusCompleted
	m.WinnerID = &winner

	res := &Result{Match: m, Completed: true}
	changed := make(map[int]*models.Match)
	for _, d := range e.matches {
		if d.ID == m.ID {
			continue
		}
		if id, w, ok := d.Team1.Source(); ok && id == m.ID {
			d.Team1 = models.Resolved(pick(w, winner, loser))
			changed[d.ID] = d
		}
		if id, w, ok := d.Team2.Source(); ok && id == m.ID {
			d.Team2 = models.Resolved(pick(w, winner, loser))
			changed[d.ID] = d
		}
	}

	if m.Kind == models.MatchKindGrandFinal {
		e.settleIfNecessary(m, t1, winner, changed)
	}
	if elim, ok := eliminationFor(m, t1, winner, loser); ok {
		res.Eliminations = append(res.Eliminations, elim)
	}

	res.Changed = e.ordered(changed)
	res.Decided = AreAllMatchesCompleted(e.matches)
	return res, nil
}

// correct rewrites the result of a completed match. A changed winner is only
// accepted while nothing fed by this match has started.
func (e *Engine) correct(m *models.Match, upd ScoreUpdate) (*Result, error) {
	if !upd.Completed {
		return nil, fmt.Errorf("%w: match %d must stay completed", ErrMatchCompleted, m.MatchNumber)
	}
	t1, t2, _ := m.TeamIDs()
	winner, loser, err := pickWinner(upd.Score, t1, t2, upd.WinnerID)
	if err != nil {
		return nil, err
	}
	score := upd.Score
	prev := *m.WinnerID
	res := &Result{Match: m, PreviousWinnerID: &prev}

	if prev == winner {
		m.Score = &score
		res.Decided = AreAllMatchesCompleted(e.matches)
		return res, nil
	}

	if e.layout == nil {
		return nil, ErrCorrectionUnsupported
	}

	type target struct {
		match *models.Match
		slot  int
		feed  *Feed
	}
	var targets []target
	for _, d := range e.matches {
		feeds, ok := e.layout[d.ID]
		if !ok {
			continue
		}
		for i, f := range feeds {
			if f == nil || f.MatchID != m.ID {
				continue
			}
			if !awaitingPlay(d) {
				return nil, fmt.Errorf("%w: match %d", ErrDownstreamPlayed, d.MatchNumber)
			}
			targets = append(targets, target{match: d, slot: i, feed: f})
		}
	}

	m.Score = &score
	m.WinnerID = &winner
	res.Completed = true

	changed := make(map[int]*models.Match)
	for _, tg := range targets {
		team := pick(tg.feed.Winner, winner, loser)
		if tg.slot == 0 {
			tg.match.Team1 = models.Resolved(team)
		} else {
			tg.match.Team2 = models.Resolved(team)
		}
		changed[tg.match.ID] = tg.match
	}

	if m.Kind == models.MatchKindGrandFinal {
		e.settleIfNecessary(m, t1, winner, changed)
	}
	if elim, ok := eliminationFor(m, t1, prev, otherTeam(prev, t1, t2)); ok {
		res.Revived = append(res.Revived, elim.TeamID)
	}
	if elim, ok := eliminationFor(m, t1, winner, loser); ok {
		res.Eliminations = append(res.Eliminations, elim)
	}

	res.Changed = e.ordered(changed)
	res.Decided = AreAllMatchesCompleted(e.matches)
	return res, nil
}

// settleIfNecessary cancels the if-necessary match when the winners-bracket
// champion (slot 1) takes the grand final, and re-opens it otherwise.
func (e *Engine) settleIfNecessary(gf *models.Match, wbChampion, winner int, changed map[int]*models.Match) {
	for _, d := range e.matches {
		if d.Kind != models.MatchKindIfNecessary || d.EventID != gf.EventID {
			continue
		}
		if winner == wbChampion {
			d.Status = models.MatchStatusCancelled
		} else if d.Status == models.MatchStatusCancelled {
			d.Status = models.MatchStatusScheduled
		}
		changed[d.ID] = d
	}
}

// eliminationFor reports whether the loser of m took its second loss there.
func eliminationFor(m *models.Match, team1, winner, loser int) (Elimination, bool) {
	switch {
	case m.Bracket == models.BracketLosers,
		m.Kind == models.MatchKindIfNecessary,
		m.Kind == models.MatchKindGrandFinal && winner == team1:
		return Elimination{TeamID: loser, MatchID: m.ID, Round: m.Round}, true
	}
	return Elimination{}, false
}

func awaitingPlay(m *models.Match) bool {
	if m.Score != nil || m.WinnerID != nil {
		return false
	}
	return m.Status == models.MatchStatusScheduled || m.Status == models.MatchStatusCancelled
}

func pickWinner(score models.Score, t1, t2 int, claimed *int) (winner, loser int, err error) {
	switch {
	case score.Team1 < 0 || score.Team2 < 0:
		return 0, 0, ErrNegativeScore
	case score.Team1 == score.Team2:
		return 0, 0, fmt.Errorf("%w: %d-%d", ErrTiedScore, score.Team1, score.Team2)
	case score.Team1 > score.Team2:
		winner, loser = t1, t2
	default:
		winner, loser = t2, t1
	}
	if claimed != nil && *claimed != winner {
		return 0, 0, fmt.Errorf("%w: claimed %d, score favours %d", ErrWinnerMismatch, *claimed, winner)
	}
	return winner, loser, nil
}

func pick(wantsWinner bool, winner, loser int) int {
	if wantsWinner {
		return winner
	}
	return loser
}

func otherTeam(team, t1, t2 int) int {
	if team == t1 {
		return t2
	}
	return t1
}

func (e *Engine) ordered(set map[int]*models.Match) []*models.Match {
	out := make([]*models.Match, 0, len(set))
	for _, m := range e.matches {
		if c, ok := set[m.ID]; ok {
			out = append(out, c)
		}
	}
	return out
}

// AreAllMatchesCompleted is false iff some match is neither completed nor cancelled.
func AreAllMatchesCompleted(matches []*models.Match) bool {
	for _, m := range matches {
		if !m.IsFinished() {
			return false
		}
	}
	return true
}
