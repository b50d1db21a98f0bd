package brackets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/competition-system/models"
)

func reverse(n int, swap func(i, j int)) {
	for i := 0; i < n/2; i++ {
		swap(i, n-1-i)
	}
}

func TestPairCombinedTeams(t *testing.T) {
	pairs, err := PairCombinedTeams([]int{1, 2, 3, 4}, reverse)
	require.NoError(t, err)
	assert.Equal(t, [2]int{4, 3}, pairs.Side1)
	assert.Equal(t, [2]int{2, 1}, pairs.Side2)

	pairs, err = PairCombinedTeams([]int{1, 2, 3, 4}, nil)
	require.NoError(t, err)
	got := []int{pairs.Side1[0], pairs.Side1[1], pairs.Side2[0], pairs.Side2[1]}
	assert.ElementsMatch(t, []int{1, 2, 3, 4}, got)
}

func TestPairCombinedTeamsRejectsBadInput(t *testing.T) {
	_, err := PairCombinedTeams([]int{1, 2, 3}, reverse)
	assert.ErrorIs(t, err, ErrCombinedTeams)

	_, err = PairCombinedTeams([]int{1, 2, 2, 4}, reverse)
	assert.ErrorIs(t, err, ErrCombinedTeams)
}

func TestCombinedMatchLifecycle(t *testing.T) {
	pairs, err := PairCombinedTeams([]int{1, 2, 3, 4}, reverse)
	require.NoError(t, err)

	m := CombinedMatch(9, pairs)
	m.ID = 50
	assert.Equal(t, models.MatchKindCombined, m.Kind)
	assert.Equal(t, 3, *m.Team1PartnerID)
	assert.Equal(t, 1, *m.Team2PartnerID)

	_, err = CombinedStandings(m)
	assert.ErrorIs(t, err, ErrBracketUndecided)

	e := NewEngine([]*models.Match{m}, nil)
	res, err := e.UpdateScore(50, ScoreUpdate{Score: models.Score{Team1: 10, Team2: 12}, Completed: true})
	require.NoError(t, err)
	assert.True(t, res.Decided)
	assert.Empty(t, res.Eliminations)

	standings, err := CombinedStandings(res.Match)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1, 4, 3}, standings)
}
