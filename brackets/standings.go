package brackets

import (
	"errors"
	"sort"

	"github.com/Dosada05/competition-system/models"
)

var ErrBracketUndecided = errors.New("bracket has no champion yet")

// Finalists returns the champion and runner-up of a decided bracket. The
// if-necessary match decides when it was played, otherwise the grand final.
func Finalists(matches []*models.Match) (champion, runnerUp int, err error) {
	var gf, ifn *models.Match
	for _, m := range matches {
		switch m.Kind {
		case models.MatchKindGrandFinal:
			gf = m
		case models.MatchKindIfNecessary:
			ifn = m
		}
	}
	decider := gf
	if ifn != nil && ifn.Status != models.MatchStatusCancelled {
		decider = ifn
	}
	if decider == nil || decider.Status != models.MatchStatusCompleted || decider.WinnerID == nil {
		return 0, 0, ErrBracketUndecided
	}
	loser, ok := decider.LoserID()
	if !ok {
		return 0, 0, ErrBracketUndecided
	}
	return *decider.WinnerID, loser, nil
}

// FinalStandings orders every seeded team from first to last: the two
// finalists, then losers-bracket finishers by elimination round (latest
// first). Teams knocked out in the same round are ordered by seed.
func FinalStandings(matches []*models.Match, seeds []models.SeedEntry) ([]int, error) {
	champion, runnerUp, err := Finalists(matches)
	if err != nil {
		return nil, err
	}

	eliminatedIn := make(map[int]int)
	for _, m := range matches {
		if m.Bracket != models.BracketLosers || m.Status != models.MatchStatusCompleted {
			continue
		}
		if loser, ok := m.LoserID(); ok {
			eliminatedIn[loser] = m.Round
		}
	}

	rest := make([]models.SeedEntry, 0, len(seeds))
	for _, s := range seeds {
		if s.TeamID == champion || s.TeamID == runnerUp {
			continue
		}
		rest = append(rest, s)
	}
	sort.SliceStable(rest, func(i, j int) bool {
		ri, rj := eliminatedIn[rest[i].TeamID], eliminatedIn[rest[j].TeamID]
		if ri != rj {
			return ri > rj
		}
		return rest[i].Seed < rest[j].Seed
	})

	out := make([]int, 0, len(seeds))
	out = append(out, champion, runnerUp)
	for _, s := range rest {
		out = append(out, s.TeamID)
	}
	return out, nil
}
