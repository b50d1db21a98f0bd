package brackets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/competition-system/models"
)

// Four-team bracket, by match number:
//
//	1 WB1: A(1) vs D(4)    2 WB1: B(2) vs C(3)
//	3 WB2: W1 vs W2        4 LB1: L1 vs L2
//	5 LB2: W4 vs L3        6 GF:  W3 vs W5     7 IF: L6 vs W6
var (
	teamA = teamID(1)
	teamB = teamID(2)
	teamC = teamID(3)
	teamD = teamID(4)
)

func fourTeamEngine(t *testing.T) *Engine {
	t.Helper()
	generated := generate(t, 4)
	matches := persist(t, generated)
	return NewEngine(matches, BuildLayout(generated, matches))
}

func win1() ScoreUpdate { return ScoreUpdate{Score: models.Score{Team1: 2, Team2: 0}, Completed: true} }
func win2() ScoreUpdate { return ScoreUpdate{Score: models.Score{Team1: 0, Team2: 2}, Completed: true} }

func mustMatch(t *testing.T, e *Engine, id int) *models.Match {
	t.Helper()
	m, ok := e.Match(id)
	require.True(t, ok, "match %d", id)
	return m
}

func teamIn(t *testing.T, s models.Slot) int {
	t.Helper()
	id, ok := s.Team()
	require.True(t, ok, "slot %s is not resolved", s)
	return id
}

func TestFourTeamLayout(t *testing.T) {
	e := fourTeamEngine(t)

	m1 := mustMatch(t, e, 1)
	assert.Equal(t, teamA, teamIn(t, m1.Team1))
	assert.Equal(t, teamD, teamIn(t, m1.Team2))
	m2 := mustMatch(t, e, 2)
	assert.Equal(t, teamB, teamIn(t, m2.Team1))
	assert.Equal(t, teamC, teamIn(t, m2.Team2))

	m4 := mustMatch(t, e, 4)
	assert.Equal(t, models.BracketLosers, m4.Bracket)
	assert.True(t, m4.Team1.Feeds(1))
	assert.True(t, m4.Team2.Feeds(2))

	m6 := mustMatch(t, e, 6)
	assert.Equal(t, models.MatchKindGrandFinal, m6.Kind)
	assert.Equal(t, 3, m6.Round)
	m7 := mustMatch(t, e, 7)
	assert.Equal(t, models.MatchKindIfNecessary, m7.Kind)
	assert.Equal(t, 4, m7.Round)
}

func TestCompletionPropagatesWinnerAndLoser(t *testing.T) {
	e := fourTeamEngine(t)

	res, err := e.UpdateScore(1, win1())
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Equal(t, teamA, *res.Match.WinnerID)
	assert.Equal(t, models.MatchStatusCompleted, res.Match.Status)
	assert.Empty(t, res.Eliminations)
	assert.False(t, res.Decided)

	require.Len(t, res.Changed, 2)
	assert.Equal(t, 3, res.Changed[0].ID)
	assert.Equal(t, 4, res.Changed[1].ID)
	assert.Equal(t, teamA, teamIn(t, mustMatch(t, e, 3).Team1))
	assert.Equal(t, teamD, teamIn(t, mustMatch(t, e, 4).Team1))
	// the other side is still waiting
	assert.True(t, mustMatch(t, e, 3).Team2.IsPending())
	assert.Equal(t, models.MatchStatusScheduled, mustMatch(t, e, 3).Status)
}

func TestFullFourTeamRun(t *testing.T) {
	e := fourTeamEngine(t)

	steps := []struct {
		match int
		upd   ScoreUpdate
	}{
		{1, win1()}, // A beats D
		{2, win1()}, // B beats C
		{3, win1()}, // A beats B
		{4, win1()}, // D beats C, C out
		{5, win2()}, // B beats D, D out
	}
	for _, s := range steps {
		_, err := e.UpdateScore(s.match, s.upd)
		require.NoError(t, err, "match %d", s.match)
	}

	gf := mustMatch(t, e, 6)
	assert.Equal(t, teamA, teamIn(t, gf.Team1))
	assert.Equal(t, teamB, teamIn(t, gf.Team2))

	res, err := e.UpdateScore(6, win1())
	require.NoError(t, err)
	assert.True(t, res.Decided)
	require.Len(t, res.Eliminations, 1)
	assert.Equal(t, teamB, res.Eliminations[0].TeamID)

	ifn := mustMatch(t, e, 7)
	assert.Equal(t, models.MatchStatusCancelled, ifn.Status)

	standings, err := FinalStandings(e.Matches(), seedsFor(4))
	require.NoError(t, err)
	assert.Equal(t, []int{teamA, teamB, teamD, teamC}, standings)
}

func TestLosersChampionForcesIfNecessary(t *testing.T) {
	e := fourTeamEngine(t)
	for _, s := range []struct {
		match int
		upd   ScoreUpdate
	}{{1, win1()}, {2, win1()}, {3, win1()}, {4, win1()}, {5, win2()}} {
		_, err := e.UpdateScore(s.match, s.upd)
		require.NoError(t, err)
	}

	res, err := e.UpdateScore(6, win2())
	require.NoError(t, err)
	assert.False(t, res.Decided)
	assert.Empty(t, res.Eliminations, "the winners champion has only lost once")

	ifn := mustMatch(t, e, 7)
	assert.Equal(t, models.MatchStatusScheduled, ifn.Status)
	assert.Equal(t, teamA, teamIn(t, ifn.Team1))
	assert.Equal(t, teamB, teamIn(t, ifn.Team2))

	_, _, err = Finalists(e.Matches())
	assert.ErrorIs(t, err, ErrBracketUndecided)

	res, err = e.UpdateScore(7, win2())
	require.NoError(t, err)
	assert.True(t, res.Decided)
	require.Len(t, res.Eliminations, 1)
	assert.Equal(t, teamA, res.Eliminations[0].TeamID)

	standings, err := FinalStandings(e.Matches(), seedsFor(4))
	require.NoError(t, err)
	assert.Equal(t, []int{teamB, teamA, teamD, teamC}, standings)
}

func TestUpdateScoreErrors(t *testing.T) {
	e := fourTeamEngine(t)

	_, err := e.UpdateScore(99, win1())
	assert.ErrorIs(t, err, ErrMatchNotFound)

	_, err = e.UpdateScore(3, win1())
	assert.ErrorIs(t, err, ErrMatchNotReady)

	_, err = e.UpdateScore(1, ScoreUpdate{Score: models.Score{Team1: 2, Team2: 2}, Completed: true})
	assert.ErrorIs(t, err, ErrTiedScore)

	_, err = e.UpdateScore(1, ScoreUpdate{Score: models.Score{Team1: -1, Team2: 2}})
	assert.ErrorIs(t, err, ErrNegativeScore)

	wrong := teamD
	_, err = e.UpdateScore(1, ScoreUpdate{Score: models.Score{Team1: 3, Team2: 1}, Completed: true, WinnerID: &wrong})
	assert.ErrorIs(t, err, ErrWinnerMismatch)

	// nothing above changed the match
	m1 := mustMatch(t, e, 1)
	assert.Equal(t, models.MatchStatusScheduled, m1.Status)
	assert.Nil(t, m1.Score)

	_, err = e.UpdateScore(1, win1())
	require.NoError(t, err)
	_, err = e.UpdateScore(1, win2())
	assert.ErrorIs(t, err, ErrMatchCompleted)
}

func TestLiveScoreDoesNotPickWinner(t *testing.T) {
	e := fourTeamEngine(t)

	res, err := e.UpdateScore(1, ScoreUpdate{Score: models.Score{Team1: 1, Team2: 1}})
	require.NoError(t, err)
	assert.False(t, res.Completed)
	assert.Empty(t, res.Changed)
	assert.Equal(t, models.MatchStatusInProgress, res.Match.Status)
	assert.Nil(t, res.Match.WinnerID)

	res, err = e.UpdateScore(1, ScoreUpdate{Score: models.Score{Team1: 1, Team2: 4}})
	require.NoError(t, err)
	assert.Equal(t, models.Score{Team1: 1, Team2: 4}, *res.Match.Score)
	assert.True(t, mustMatch(t, e, 3).Team1.IsPending())
}

func TestCancelledMatchRejectsScores(t *testing.T) {
	e := fourTeamEngine(t)
	for _, s := range []int{1, 2, 3, 4, 5} {
		_, err := e.UpdateScore(s, win1())
		require.NoError(t, err)
	}
	_, err := e.UpdateScore(6, win1())
	require.NoError(t, err)

	_, err = e.UpdateScore(7, win1())
	assert.ErrorIs(t, err, ErrMatchCancelled)
}

func TestCorrectionSwapsDownstreamSlots(t *testing.T) {
	e := fourTeamEngine(t)
	_, err := e.UpdateScore(1, win1())
	require.NoError(t, err)

	res, err := e.UpdateScore(1, ScoreUpdate{Score: models.Score{Team1: 1, Team2: 2}, Completed: true, Override: true})
	require.NoError(t, err)
	assert.True(t, res.Completed)
	require.NotNil(t, res.PreviousWinnerID)
	assert.Equal(t, teamA, *res.PreviousWinnerID)
	assert.Equal(t, teamD, *res.Match.WinnerID)

	assert.Equal(t, teamD, teamIn(t, mustMatch(t, e, 3).Team1))
	assert.Equal(t, teamA, teamIn(t, mustMatch(t, e, 4).Team1))
}

func TestCorrectionKeepingWinnerRewritesScoreOnly(t *testing.T) {
	e := fourTeamEngine(t)
	_, err := e.UpdateScore(1, win1())
	require.NoError(t, err)

	res, err := e.UpdateScore(1, ScoreUpdate{Score: models.Score{Team1: 5, Team2: 4}, Completed: true, Override: true})
	require.NoError(t, err)
	assert.False(t, res.Completed)
	assert.Empty(t, res.Changed)
	assert.Equal(t, models.Score{Team1: 5, Team2: 4}, *res.Match.Score)
}

func TestCorrectionBlockedOnceDownstreamStarted(t *testing.T) {
	e := fourTeamEngine(t)
	_, err := e.UpdateScore(1, win1())
	require.NoError(t, err)
	_, err = e.UpdateScore(2, win1())
	require.NoError(t, err)
	_, err = e.UpdateScore(3, ScoreUpdate{Score: models.Score{Team1: 1, Team2: 0}})
	require.NoError(t, err)

	_, err = e.UpdateScore(1, ScoreUpdate{Score: models.Score{Team1: 0, Team2: 1}, Completed: true, Override: true})
	assert.ErrorIs(t, err, ErrDownstreamPlayed)
	assert.Equal(t, teamA, *mustMatch(t, e, 1).WinnerID)
}

func TestCorrectionNeedsLayout(t *testing.T) {
	e := NewEngine(persist(t, generate(t, 4)), nil)
	_, err := e.UpdateScore(1, win1())
	require.NoError(t, err)

	_, err = e.UpdateScore(1, ScoreUpdate{Score: models.Score{Team1: 0, Team2: 1}, Completed: true, Override: true})
	assert.ErrorIs(t, err, ErrCorrectionUnsupported)
}

func TestGrandFinalCorrectionReopensIfNecessary(t *testing.T) {
	e := fourTeamEngine(t)
	for _, s := range []int{1, 2, 3, 4, 5} {
		_, err := e.UpdateScore(s, win1())
		require.NoError(t, err)
	}
	_, err := e.UpdateScore(6, win1())
	require.NoError(t, err)
	require.Equal(t, models.MatchStatusCancelled, mustMatch(t, e, 7).Status)

	gf := mustMatch(t, e, 6)
	lbChampion := teamIn(t, gf.Team2)

	res, err := e.UpdateScore(6, ScoreUpdate{Score: models.Score{Team1: 0, Team2: 3}, Completed: true, Override: true})
	require.NoError(t, err)
	assert.Equal(t, []int{lbChampion}, res.Revived)
	assert.Empty(t, res.Eliminations)
	assert.False(t, res.Decided)

	ifn := mustMatch(t, e, 7)
	assert.Equal(t, models.MatchStatusScheduled, ifn.Status)
	assert.Equal(t, teamA, teamIn(t, ifn.Team1))
	assert.Equal(t, lbChampion, teamIn(t, ifn.Team2))
}

func TestEngineWorksOnCopies(t *testing.T) {
	matches := persist(t, generate(t, 4))
	e := NewEngine(matches, nil)
	_, err := e.UpdateScore(1, win1())
	require.NoError(t, err)

	assert.Equal(t, models.MatchStatusScheduled, matches[0].Status)
	assert.Nil(t, matches[0].WinnerID)
}

func TestAreAllMatchesCompleted(t *testing.T) {
	assert.True(t, AreAllMatchesCompleted(nil))
	assert.True(t, AreAllMatchesCompleted([]*models.Match{
		{Status: models.MatchStatusCompleted},
		{Status: models.MatchStatusCancelled},
	}))
	assert.False(t, AreAllMatchesCompleted([]*models.Match{
		{Status: models.MatchStatusCompleted},
		{Status: models.MatchStatusInProgress},
	}))
}
