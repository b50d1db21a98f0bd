package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/Dosada05/competition-system/models"
	"github.com/Dosada05/competition-system/repositories"
)

type LeaderboardEntry struct {
	TeamID       int    `json:"team_id"`
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
	Points       int    `json:"points"`
	Events       int    `json:"events"`
}

type LeaderboardService interface {
	// Leaderboard sums the points each team earned across the completed
	// events of a season, highest first.
	Leaderboard(ctx context.Context, seasonID int) ([]LeaderboardEntry, error)
}

type leaderboardService struct {
	events        repositories.EventRepository
	teams         repositories.TeamRepository
	defaultPoints models.PointsTable
}

func NewLeaderboardService(events repositories.EventRepository, teams repositories.TeamRepository, settings Settings) LeaderboardService {
	return &leaderboardService{
		events:        events,
		teams:         teams,
		defaultPoints: settings.DefaultPointsTable,
	}
}

func (s *leaderboardService) Leaderboard(ctx context.Context, seasonID int) ([]LeaderboardEntry, error) {
	var (
		events []*models.Event
		teams  []*models.Team
	)
	err := runAll(ctx, true,
		func(ctx context.Context) error {
			var err error
			events, err = s.events.ListCompletedBySeason(ctx, nil, seasonID)
			return err
		},
		func(ctx context.Context) error {
			var err error
			teams, err = s.teams.ListBySeason(ctx, nil, seasonID)
			return err
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load season %d: %w", seasonID, err)
	}

	entries := make(map[int]*LeaderboardEntry, len(teams))
	for _, t := range teams {
		entries[t.ID] = &LeaderboardEntry{TeamID: t.ID, Name: t.Name, Abbreviation: t.Abbreviation}
	}

	var missing []int
	for _, e := range events {
		table := e.PointsTable
		if len(table) == 0 {
			table = s.defaultPoints
		}
		for i, teamID := range e.FinalStandings {
			entry, ok := entries[teamID]
			if !ok {
				entry = &LeaderboardEntry{TeamID: teamID}
				entries[teamID] = entry
				missing = append(missing, teamID)
			}
			entry.Points += table.Award(i + 1)
			entry.Events++
		}
	}

	// teams from another season can still place in this season's events
	if len(missing) > 0 {
		extra, err := s.teams.ListByIDs(ctx, nil, missing)
		if err != nil {
			return nil, fmt.Errorf("failed to load teams for season %d: %w", seasonID, err)
		}
		for id, t := range extra {
			entries[id].Name = t.Name
			entries[id].Abbreviation = t.Abbreviation
		}
	}

	out := make([]LeaderboardEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].TeamID < out[j].TeamID
	})
	return out, nil
}
