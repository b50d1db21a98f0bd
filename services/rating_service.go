package services

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/Dosada05/competition-system/models"
	"github.com/Dosada05/competition-system/ratings"
	"github.com/Dosada05/competition-system/repositories"
)

const trendWindow = 24 * time.Hour

type RatingService interface {
	AverageRating(ctx context.Context, teamID int, eventID *int) (float64, error)
	WinProbability(ratingA, ratingB float64) (int, int)
	Trend(ctx context.Context, playerID int) (float64, error)

	// ApplyMatchResult moves every rostered player's global rating by their
	// Elo change for a completed match and records the deltas.
	ApplyMatchResult(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error
	// RevertMatch undoes the deltas recorded for one match.
	RevertMatch(ctx context.Context, exec repositories.SQLExecutor, matchID int) error
	// RevertEvent undoes every delta recorded for an event.
	RevertEvent(ctx context.Context, exec repositories.SQLExecutor, eventID int) error
}

type ratingService struct {
	teams    repositories.TeamRepository
	ratings  repositories.RatingRepository
	settings Settings
	now      func() time.Time
}

func NewRatingService(teams repositories.TeamRepository, ratingRepo repositories.RatingRepository, settings Settings) RatingService {
	return &ratingService{
		teams:    teams,
		ratings:  ratingRepo,
		settings: settings.withDefaults(),
		now:      time.Now,
	}
}

func (s *ratingService) AverageRating(ctx context.Context, teamID int, eventID *int) (float64, error) {
	if _, err := s.teams.GetByID(ctx, nil, teamID); err != nil {
		return 0, classifyError(err)
	}
	rosters, err := s.teams.Rosters(ctx, nil, []int{teamID}, eventID)
	if err != nil {
		return 0, fmt.Errorf("failed to load roster for team %d: %w", teamID, err)
	}
	return ratings.AverageRating(members(rosters[teamID]), s.settings.DefaultRating), nil
}

func (s *ratingService) WinProbability(ratingA, ratingB float64) (int, int) {
	return ratings.WinProbability(ratingA, ratingB)
}

func (s *ratingService) Trend(ctx context.Context, playerID int) (float64, error) {
	if _, err := s.ratings.GetPlayer(ctx, nil, playerID); err != nil {
		return 0, classifyError(err)
	}
	sum, err := s.ratings.SumDeltasSince(ctx, nil, playerID, s.now().Add(-trendWindow))
	if err != nil {
		return 0, fmt.Errorf("failed to compute rating trend for player %d: %w", playerID, err)
	}
	return sum, nil
}

func (s *ratingService) ApplyMatchResult(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	if match.WinnerID == nil {
		return nil
	}
	side1, side2 := sideTeams(match)
	rosters, err := s.teams.Rosters(ctx, exec, append(append([]int{}, side1...), side2...), nil)
	if err != nil {
		return fmt.Errorf("failed to load rosters for match %d: %w", match.ID, err)
	}

	players1 := playersOf(rosters, side1)
	players2 := playersOf(rosters, side2)
	avg1 := ratings.AverageRating(globalMembers(players1), s.settings.DefaultRating)
	avg2 := ratings.AverageRating(globalMembers(players2), s.settings.DefaultRating)
	side1Won := slices.Contains(side1, *match.WinnerID)

	apply := func(players []models.Player, opponentAvg float64, won bool) error {
		for _, p := range players {
			delta := ratings.TeamEloChange(p.GlobalRating, opponentAvg, won, s.settings.KFactor)
			after, err := s.ratings.AdjustRating(ctx, exec, p.ID, delta)
			if err != nil {
				return err
			}
			change := &models.RatingChange{PlayerID: p.ID, EventID: match.EventID, MatchID: match.ID, Delta: delta, RatingAfter: after}
			if err := s.ratings.CreateChange(ctx, exec, change); err != nil {
				return err
			}
		}
		return nil
	}
	if err := apply(players1, avg2, side1Won); err != nil {
		return fmt.Errorf("failed to apply rating changes for match %d: %w", match.ID, err)
	}
	if err := apply(players2, avg1, !side1Won); err != nil {
		return fmt.Errorf("failed to apply rating changes for match %d: %w", match.ID, err)
	}
	return nil
}

func (s *ratingService) RevertMatch(ctx context.Context, exec repositories.SQLExecutor, matchID int) error {
	changes, err := s.ratings.ListChangesByMatch(ctx, exec, matchID)
	if err != nil {
		return err
	}
	if err := s.undo(ctx, exec, changes); err != nil {
		return err
	}
	return s.ratings.DeleteChangesByMatch(ctx, exec, matchID)
}

func (s *ratingService) RevertEvent(ctx context.Context, exec repositories.SQLExecutor, eventID int) error {
	changes, err := s.ratings.ListChangesByEvent(ctx, exec, eventID)
	if err != nil {
		return err
	}
	if err := s.undo(ctx, exec, changes); err != nil {
		return err
	}
	return s.ratings.DeleteChangesByEvent(ctx, exec, eventID)
}

func (s *ratingService) undo(ctx context.Context, exec repositories.SQLExecutor, changes []models.RatingChange) error {
	for _, c := range changes {
		if _, err := s.ratings.AdjustRating(ctx, exec, c.PlayerID, -c.Delta); err != nil {
			return fmt.Errorf("failed to revert rating change %d: %w", c.ID, err)
		}
	}
	return nil
}

// sideTeams lists the teams on each side; combined matches add the partner.
func sideTeams(m *models.Match) (side1, side2 []int) {
	if id, ok := m.Team1.Team(); ok {
		side1 = append(side1, id)
	}
	if m.Team1PartnerID != nil {
		side1 = append(side1, *m.Team1PartnerID)
	}
	if id, ok := m.Team2.Team(); ok {
		side2 = append(side2, id)
	}
	if m.Team2PartnerID != nil {
		side2 = append(side2, *m.Team2PartnerID)
	}
	return side1, side2
}

func playersOf(rosters map[int][]models.Player, teamIDs []int) []models.Player {
	var out []models.Player
	for _, id := range teamIDs {
		out = append(out, rosters[id]...)
	}
	return out
}

func globalMembers(players []models.Player) []ratings.Member {
	out := make([]ratings.Member, len(players))
	for i, p := range players {
		out[i] = ratings.Member{GlobalRating: p.GlobalRating}
	}
	return out
}
