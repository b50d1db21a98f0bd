package brackets

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/Dosada05/competition-system/models"
)

const CombinedTeamSize = 4

var ErrCombinedTeams = errors.New("a combined-team match needs exactly 4 distinct teams")

// Shuffler permutes n elements in place through swap.
type Shuffler func(n int, swap func(i, j int))

// DefaultShuffler draws from the global math/rand/v2 source.
func DefaultShuffler(n int, swap func(i, j int)) { rand.Shuffle(n, swap) }

// CombinedPairs is the random split of four teams into two sides.
type CombinedPairs struct {
	Side1 [2]int
	Side2 [2]int
}

// PairCombinedTeams shuffles the four teams and splits them into two pairs.
func PairCombinedTeams(teamIDs []int, shuffle Shuffler) (CombinedPairs, error) {
	if len(teamIDs) != CombinedTeamSize {
		return CombinedPairs{}, fmt.Errorf("%w: got %d", ErrCombinedTeams, len(teamIDs))
	}
	seen := make(map[int]bool, len(teamIDs))
	for _, id := range teamIDs {
		if seen[id] {
			return CombinedPairs{}, fmt.Errorf("%w: team %d repeated", ErrCombinedTeams, id)
		}
		seen[id] = true
	}
	if shuffle == nil {
		shuffle = DefaultShuffler
	}
	ids := make([]int, len(teamIDs))
	copy(ids, teamIDs)
	shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	return CombinedPairs{Side1: [2]int{ids[0], ids[1]}, Side2: [2]int{ids[2], ids[3]}}, nil
}

// CombinedMatch builds the single decisive match of a combined-team event.
// Each side is stored as its lead team plus a partner.
func CombinedMatch(eventID int, pairs CombinedPairs) *models.Match {
	p1, p2 := pairs.Side1[1], pairs.Side2[1]
	return &models.Match{
		EventID:         eventID,
		BracketMatchUID: "COMBINED",
		Round:           1,
		MatchNumber:     1,
		Bracket:         models.BracketWinners,
		Kind:            models.MatchKindCombined,
		Status:          models.MatchStatusScheduled,
		Team1:           models.Resolved(pairs.Side1[0]),
		Team2:           models.Resolved(pairs.Side2[0]),
		Team1PartnerID:  &p1,
		Team2PartnerID:  &p2,
	}
}

// CombinedStandings lists the winning pair's teams followed by the losing pair's.
func CombinedStandings(m *models.Match) ([]int, error) {
	if m.Kind != models.MatchKindCombined {
		return nil, fmt.Errorf("match %d is not a combined-team match", m.ID)
	}
	if m.Status != models.MatchStatusCompleted || m.WinnerID == nil {
		return nil, ErrBracketUndecided
	}
	t1, t2, ok := m.TeamIDs()
	if !ok || m.Team1PartnerID == nil || m.Team2PartnerID == nil {
		return nil, fmt.Errorf("combined match %d is missing teams", m.ID)
	}
	side1 := []int{t1, *m.Team1PartnerID}
	side2 := []int{t2, *m.Team2PartnerID}
	if *m.WinnerID == t2 {
		side1, side2 = side2, side1
	}
	return append(side1, side2...), nil
}
