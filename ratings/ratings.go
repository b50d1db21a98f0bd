// Package ratings holds the Elo-style rating math used for team strength
// and pre-match win probabilities.
package ratings

import "math"

const (
	// DefaultRating is used for players without history and for empty rosters.
	DefaultRating = 5000.0
	// DefaultKFactor is the Elo K-factor applied per match.
	DefaultKFactor = 32.0
	// scale is the rating difference at which the favourite is 10x as likely to win.
	scale = 400.0
)

// Member is the rating input for one roster member.
type Member struct {
	GlobalRating float64
	EventRating  *float64
}

// Representative returns the event-specific override when present, else the global rating.
func (m Member) Representative() float64 {
	if m.EventRating != nil {
		return *m.EventRating
	}
	return m.GlobalRating
}

// AverageRating averages the representative ratings of a roster.
// An empty roster yields fallback.
func AverageRating(members []Member, fallback float64) float64 {
	if len(members) == 0 {
		return fallback
	}
	total := 0.0
	for _, m := range members {
		total += m.Representative()
	}
	return total / float64(len(members))
}

// ExpectedScore is the logistic probability that a side rated a beats a side rated b.
func ExpectedScore(a, b float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (b-a)/scale))
}

// WinProbability returns whole percentages for both sides; they always sum to 100.
func WinProbability(a, b float64) (int, int) {
	pa := int(math.Round(ExpectedScore(a, b) * 100))
	return pa, 100 - pa
}

// TeamEloChange computes a player's change against the opposing team's average.
func TeamEloChange(playerRating, opponentAverage float64, won bool, k float64) float64 {
	if k <= 0 {
		k = DefaultKFactor
	}
	actual := 0.0
	if won {
		actual = 1.0
	}
	return math.Round(k * (actual - ExpectedScore(playerRating, opponentAverage)))
}
