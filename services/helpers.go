package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/competition-system/brackets"
	"github.com/Dosada05/competition-system/models"
	"github.com/Dosada05/competition-system/ratings"
	"github.com/Dosada05/competition-system/repositories"
)

// Notifier pushes live updates to websocket watchers.
type Notifier interface {
	BroadcastToRoom(roomID string, message interface{})
}

// Archiver stores snapshots of finished events.
type Archiver interface {
	Archive(ctx context.Context, eventID int, snapshot interface{}) (string, error)
}

// Settings are the tunables shared by the services.
type Settings struct {
	DefaultRating      float64
	KFactor            float64
	DefaultPointsTable models.PointsTable
}

func (s Settings) withDefaults() Settings {
	if s.DefaultRating <= 0 {
		s.DefaultRating = ratings.DefaultRating
	}
	if s.KFactor <= 0 {
		s.KFactor = ratings.DefaultKFactor
	}
	return s
}

const archiveTimeout = 30 * time.Second

// runAll runs fns concurrently with errgroup, or one after another when they
// share a transaction (a *sql.Tx cannot serve parallel queries).
func runAll(ctx context.Context, parallel bool, fns ...func(context.Context) error) error {
	if !parallel {
		for _, fn := range fns {
			if err := fn(ctx); err != nil {
				return err
			}
		}
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, fn := range fns {
		g.Go(func() error { return fn(gctx) })
	}
	return g.Wait()
}

// bracketReader assembles projections. Outside a transaction it reads from
// the repositories it was built with, which may sit on a read replica.
type bracketReader struct {
	matches       repositories.MatchRepository
	participants  repositories.ParticipantRepository
	teams         repositories.TeamRepository
	defaultRating float64
}

func (r *bracketReader) Load(ctx context.Context, eventID int) (*brackets.BracketView, error) {
	var (
		matches      []*models.Match
		participants []models.Participant
	)
	err := runAll(ctx, true,
		func(ctx context.Context) error {
			var err error
			matches, err = r.matches.ListByEvent(ctx, nil, eventID)
			return err
		},
		func(ctx context.Context) error {
			var err error
			participants, err = r.participants.ListByEvent(ctx, nil, eventID)
			return err
		},
	)
	if err != nil {
		return nil, err
	}
	return r.project(ctx, nil, eventID, matches, participants)
}

// project resolves team metadata and ratings for an already-loaded match set.
func (r *bracketReader) project(ctx context.Context, exec repositories.SQLExecutor, eventID int, matches []*models.Match, participants []models.Participant) (*brackets.BracketView, error) {
	teamIDs := involvedTeams(matches, participants)

	var (
		teams   map[int]*models.Team
		rosters map[int][]models.Player
	)
	if len(teamIDs) > 0 {
		err := runAll(ctx, exec == nil,
			func(ctx context.Context) error {
				var err error
				teams, err = r.teams.ListByIDs(ctx, exec, teamIDs)
				return err
			},
			func(ctx context.Context) error {
				var err error
				rosters, err = r.teams.Rosters(ctx, exec, teamIDs, &eventID)
				return err
			},
		)
		if err != nil {
			return nil, err
		}
	}

	teamRatings := make(map[int]float64, len(teamIDs))
	for _, id := range teamIDs {
		teamRatings[id] = ratings.AverageRating(members(rosters[id]), r.defaultRating)
	}

	withTeams := make([]models.Participant, len(participants))
	for i, p := range participants {
		p.Team = teams[p.TeamID]
		withTeams[i] = p
	}

	return brackets.Project(brackets.ProjectionInput{
		EventID:      eventID,
		Matches:      matches,
		Participants: withTeams,
		Teams:        teams,
		Ratings:      teamRatings,
	}), nil
}

func involvedTeams(matches []*models.Match, participants []models.Participant) []int {
	seen := make(map[int]bool)
	var ids []int
	add := func(id int) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, p := range participants {
		add(p.TeamID)
	}
	for _, m := range matches {
		if id, ok := m.Team1.Team(); ok {
			add(id)
		}
		if id, ok := m.Team2.Team(); ok {
			add(id)
		}
	}
	return ids
}

func members(roster []models.Player) []ratings.Member {
	out := make([]ratings.Member, len(roster))
	for i, p := range roster {
		out[i] = ratings.Member{GlobalRating: p.GlobalRating, EventRating: p.EventRating}
	}
	return out
}

func seedsOf(participants []models.Participant) []models.SeedEntry {
	seeds := make([]models.SeedEntry, len(participants))
	for i, p := range participants {
		seeds[i] = models.SeedEntry{TeamID: p.TeamID, Seed: p.Seed}
	}
	return seeds
}

// eventFinisher writes the terminal state of an event.
type eventFinisher struct {
	events       repositories.EventRepository
	participants repositories.ParticipantRepository
}

// standings derives the final order of a bracket-backed event.
func (f *eventFinisher) standings(event *models.Event, matches []*models.Match, participants []models.Participant) ([]int, error) {
	switch event.Type {
	case models.EventTypeTournament:
		return brackets.FinalStandings(matches, seedsOf(participants))
	case models.EventTypeCombinedTeam:
		for _, m := range matches {
			if m.Kind == models.MatchKindCombined {
				return brackets.CombinedStandings(m)
			}
		}
		return nil, ErrNoBracket
	}
	return nil, ErrWrongEventType
}

func (f *eventFinisher) finish(ctx context.Context, exec repositories.SQLExecutor, event *models.Event, standings []int) error {
	if err := f.events.Complete(ctx, exec, event.ID, standings); err != nil {
		return err
	}
	for i, teamID := range standings {
		err := f.participants.SetFinalPosition(ctx, exec, event.ID, teamID, i+1)
		if err != nil && !errors.Is(err, repositories.ErrParticipantNotFound) {
			return err
		}
	}
	event.Status = models.EventStatusCompleted
	event.FinalStandings = standings
	return nil
}

// afterCommit fans out side effects of a committed mutation. Failures are
// logged and never reach the caller.
type afterCommit struct {
	notifier Notifier
	archiver Archiver
	logger   *slog.Logger
}

func (a *afterCommit) broadcast(eventID int, msgType string, payload interface{}) {
	if a.notifier == nil {
		return
	}
	room := brackets.RoomForEvent(eventID)
	a.notifier.BroadcastToRoom(room, brackets.WebSocketMessage{Type: msgType, Payload: payload, RoomID: room})
}

func (a *afterCommit) archive(ctx context.Context, eventID int, snapshot interface{}) {
	if a.archiver == nil || snapshot == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	defer cancel()
	location, err := a.archiver.Archive(ctx, eventID, snapshot)
	if err != nil {
		a.logger.Error("failed to archive bracket snapshot", slog.Int("event_id", eventID), slog.Any("error", err))
		return
	}
	a.logger.Info("bracket snapshot archived", slog.Int("event_id", eventID), slog.String("location", location))
}
