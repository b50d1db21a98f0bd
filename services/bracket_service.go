package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/competition-system/brackets"
	"github.com/Dosada05/competition-system/db"
	"github.com/Dosada05/competition-system/metrics"
	"github.com/Dosada05/competition-system/models"
	"github.com/Dosada05/competition-system/repositories"
)

type BracketService interface {
	// GenerateBracket creates participants and the full match set for a
	// tournament from confirmed seeds. With start the event moves to
	// in_progress in the same transaction.
	GenerateBracket(ctx context.Context, grant models.AdminGrant, eventID int, seeds []models.SeedEntry, start bool) (*brackets.BracketView, error)
	GetBracket(ctx context.Context, eventID int) (*brackets.BracketView, error)
	// ResetBracket deletes every match and participant, reverts rating
	// changes and returns the event to upcoming.
	ResetBracket(ctx context.Context, grant models.AdminGrant, eventID int) error
}

type bracketService struct {
	tx           db.Transactor
	events       repositories.EventRepository
	matches      repositories.MatchRepository
	participants repositories.ParticipantRepository
	teams        repositories.TeamRepository
	ratings      RatingService
	generator    brackets.BracketGenerator
	writer       *bracketReader
	reader       *bracketReader
	readEvents   repositories.EventRepository
	post         *afterCommit
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

// BracketServiceDeps groups the collaborators of the bracket service.
// Read* repositories serve projections and may point at a replica.
type BracketServiceDeps struct {
	Tx               db.Transactor
	Events           repositories.EventRepository
	Matches          repositories.MatchRepository
	Participants     repositories.ParticipantRepository
	Teams            repositories.TeamRepository
	ReadEvents       repositories.EventRepository
	ReadMatches      repositories.MatchRepository
	ReadParticipants repositories.ParticipantRepository
	ReadTeams        repositories.TeamRepository
	Ratings          RatingService
	Generator        brackets.BracketGenerator
	Notifier         Notifier
	Metrics          *metrics.Metrics
	Settings         Settings
	Logger           *slog.Logger
}

func NewBracketService(deps BracketServiceDeps) BracketService {
	settings := deps.Settings.withDefaults()
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	generator := deps.Generator
	if generator == nil {
		generator = brackets.NewDoubleEliminationGenerator()
	}
	return &bracketService{
		tx:           deps.Tx,
		events:       deps.Events,
		matches:      deps.Matches,
		participants: deps.Participants,
		teams:        deps.Teams,
		ratings:      deps.Ratings,
		generator:    generator,
		writer: &bracketReader{
			matches: deps.Matches, participants: deps.Participants, teams: deps.Teams, defaultRating: settings.DefaultRating,
		},
		reader: &bracketReader{
			matches: deps.ReadMatches, participants: deps.ReadParticipants, teams: deps.ReadTeams, defaultRating: settings.DefaultRating,
		},
		readEvents: deps.ReadEvents,
		post:       &afterCommit{notifier: deps.Notifier, logger: logger},
		metrics:    deps.Metrics,
		logger:     logger.With(slog.String("service", "bracket")),
	}
}

func (s *bracketService) GenerateBracket(ctx context.Context, grant models.AdminGrant, eventID int, seeds []models.SeedEntry, start bool) (view *brackets.BracketView, err error) {
	if err := requireAdmin(grant); err != nil {
		return nil, err
	}
	began := time.Now()
	defer func() { s.metrics.ObserveMutation("generate_bracket", began, err) }()

	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		event, err := s.events.GetForUpdate(ctx, exec, eventID)
		if err != nil {
			return err
		}
		if event.Type != models.EventTypeTournament {
			return ErrWrongEventType
		}
		if event.Status != models.EventStatusUpcoming {
			return ErrEventNotUpcoming
		}
		existing, err := s.matches.ListByEvent(ctx, exec, eventID)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return ErrBracketExists
		}

		generated, err := s.generator.GenerateBracket(ctx, brackets.GenerateBracketParams{EventID: eventID, Seeds: seeds})
		if err != nil {
			return err
		}
		if err := s.ensureTeamsExist(ctx, exec, seeds); err != nil {
			return err
		}

		participants := make([]models.Participant, 0, len(seeds))
		for _, seed := range seeds {
			p := models.Participant{EventID: eventID, TeamID: seed.TeamID, Seed: seed.Seed}
			if err := s.participants.Create(ctx, exec, &p); err != nil {
				return err
			}
			participants = append(participants, p)
		}

		// sources always precede the matches they feed, so ids are known in time
		ids := make(map[string]int, len(generated))
		created := make([]*models.Match, 0, len(generated))
		for _, bm := range generated {
			m, err := bm.ToModel(eventID, ids)
			if err != nil {
				return err
			}
			if err := s.matches.Create(ctx, exec, m); err != nil {
				return fmt.Errorf("failed to create match %s: %w", bm.UID, err)
			}
			ids[bm.UID] = m.ID
			created = append(created, m)
		}

		if start {
			if err := s.events.UpdateStatus(ctx, exec, eventID, models.EventStatusInProgress); err != nil {
				return err
			}
		}

		view, err = s.writer.project(ctx, exec, eventID, created, participants)
		return err
	})
	if err != nil {
		return nil, classifyError(err)
	}

	s.metrics.BracketGenerated(start)
	s.logger.Info("bracket generated",
		slog.Int("event_id", eventID),
		slog.Int("teams", len(seeds)),
		slog.Bool("started", start),
		slog.String("generator", s.generator.GetName()))
	s.post.broadcast(eventID, brackets.MessageBracketUpdated, view)
	return view, nil
}

func (s *bracketService) ensureTeamsExist(ctx context.Context, exec repositories.SQLExecutor, seeds []models.SeedEntry) error {
	ids := make([]int, len(seeds))
	for i, seed := range seeds {
		ids[i] = seed.TeamID
	}
	teams, err := s.teams.ListByIDs(ctx, exec, ids)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, ok := teams[id]; !ok {
			return fmt.Errorf("%w: id %d", ErrTeamNotFound, id)
		}
	}
	return nil
}

func (s *bracketService) GetBracket(ctx context.Context, eventID int) (*brackets.BracketView, error) {
	if _, err := s.readEvents.GetByID(ctx, nil, eventID); err != nil {
		return nil, classifyError(err)
	}
	view, err := s.reader.Load(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load bracket for event %d: %w", eventID, err)
	}
	return view, nil
}

func (s *bracketService) ResetBracket(ctx context.Context, grant models.AdminGrant, eventID int) (err error) {
	if err := requireAdmin(grant); err != nil {
		return err
	}
	began := time.Now()
	defer func() { s.metrics.ObserveMutation("reset_bracket", began, err) }()

	var deleted int64
	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		event, err := s.events.GetForUpdate(ctx, exec, eventID)
		if err != nil {
			return err
		}
		if event.Type == models.EventTypeScored {
			return ErrWrongEventType
		}
		if err := s.ratings.RevertEvent(ctx, exec, eventID); err != nil {
			return err
		}
		if deleted, err = s.matches.DeleteByEvent(ctx, exec, eventID); err != nil {
			return err
		}
		if err := s.participants.DeleteByEvent(ctx, exec, eventID); err != nil {
			return err
		}
		return s.events.UpdateStatus(ctx, exec, eventID, models.EventStatusUpcoming)
	})
	if err != nil {
		return classifyError(err)
	}

	s.metrics.BracketReset()
	s.logger.Info("bracket reset", slog.Int("event_id", eventID), slog.Int64("matches_deleted", deleted))
	s.post.broadcast(eventID, brackets.MessageBracketReset, map[string]int{"event_id": eventID})
	return nil
}
