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

type EventService interface {
	GetEvent(ctx context.Context, eventID int) (*models.Event, error)
	// StartEvent moves an upcoming event to in_progress. Tournaments need a
	// pre-generated bracket, which is kept as is.
	StartEvent(ctx context.Context, grant models.AdminGrant, eventID int) (*models.Event, error)
	// CompleteEvent computes final standings once every match is finished.
	CompleteEvent(ctx context.Context, grant models.AdminGrant, eventID int) (*models.Event, error)
	// CreateCombinedMatch pairs four teams at random into two sides and
	// starts the event around their single match.
	CreateCombinedMatch(ctx context.Context, grant models.AdminGrant, eventID int, teamIDs []int) (*brackets.BracketView, error)
	// RecordStandings sets the final order of a scored event and completes it.
	RecordStandings(ctx context.Context, grant models.AdminGrant, eventID int, teamIDs []int) (*models.Event, error)
}

type eventService struct {
	tx           db.Transactor
	events       repositories.EventRepository
	matches      repositories.MatchRepository
	participants repositories.ParticipantRepository
	teams        repositories.TeamRepository
	readEvents   repositories.EventRepository
	writer       *bracketReader
	finisher     *eventFinisher
	post         *afterCommit
	shuffle      brackets.Shuffler
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

type EventServiceDeps struct {
	Tx           db.Transactor
	Events       repositories.EventRepository
	Matches      repositories.MatchRepository
	Participants repositories.ParticipantRepository
	Teams        repositories.TeamRepository
	ReadEvents   repositories.EventRepository
	Notifier     Notifier
	Archiver     Archiver
	// Shuffle defaults to brackets.DefaultShuffler.
	Shuffle  brackets.Shuffler
	Metrics  *metrics.Metrics
	Settings Settings
	Logger   *slog.Logger
}

func NewEventService(deps EventServiceDeps) EventService {
	settings := deps.Settings.withDefaults()
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	shuffle := deps.Shuffle
	if shuffle == nil {
		shuffle = brackets.DefaultShuffler
	}
	readEvents := deps.ReadEvents
	if readEvents == nil {
		readEvents = deps.Events
	}
	return &eventService{
		tx:           deps.Tx,
		events:       deps.Events,
		matches:      deps.Matches,
		participants: deps.Participants,
		teams:        deps.Teams,
		readEvents:   readEvents,
		writer: &bracketReader{
			matches: deps.Matches, participants: deps.Participants, teams: deps.Teams, defaultRating: settings.DefaultRating,
		},
		finisher: &eventFinisher{events: deps.Events, participants: deps.Participants},
		post:     &afterCommit{notifier: deps.Notifier, archiver: deps.Archiver, logger: logger},
		shuffle:  shuffle,
		metrics:  deps.Metrics,
		logger:   logger.With(slog.String("service", "event")),
	}
}

func (s *eventService) GetEvent(ctx context.Context, eventID int) (*models.Event, error) {
	event, err := s.readEvents.GetByID(ctx, nil, eventID)
	if err != nil {
		return nil, classifyError(err)
	}
	return event, nil
}

func (s *eventService) StartEvent(ctx context.Context, grant models.AdminGrant, eventID int) (event *models.Event, err error) {
	if err := requireAdmin(grant); err != nil {
		return nil, err
	}
	began := time.Now()
	defer func() { s.metrics.ObserveMutation("start_event", began, err) }()

	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		event, err = s.events.GetForUpdate(ctx, exec, eventID)
		if err != nil {
			return err
		}
		if event.Status != models.EventStatusUpcoming {
			return ErrEventNotUpcoming
		}
		if event.Type != models.EventTypeScored {
			existing, err := s.matches.ListByEvent(ctx, exec, eventID)
			if err != nil {
				return err
			}
			if len(existing) == 0 {
				return ErrNoBracket
			}
		}
		if err := s.events.UpdateStatus(ctx, exec, eventID, models.EventStatusInProgress); err != nil {
			return err
		}
		event.Status = models.EventStatusInProgress
		return nil
	})
	if err != nil {
		return nil, classifyError(err)
	}

	s.logger.Info("event started", slog.Int("event_id", eventID), slog.String("type", string(event.Type)))
	s.post.broadcast(eventID, brackets.MessageBracketUpdated, event)
	return event, nil
}

func (s *eventService) CompleteEvent(ctx context.Context, grant models.AdminGrant, eventID int) (event *models.Event, err error) {
	if err := requireAdmin(grant); err != nil {
		return nil, err
	}
	began := time.Now()
	defer func() { s.metrics.ObserveMutation("complete_event", began, err) }()

	var view *brackets.BracketView
	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		event, err = s.events.GetForUpdate(ctx, exec, eventID)
		if err != nil {
			return err
		}
		switch {
		case event.Type == models.EventTypeScored:
			return ErrWrongEventType
		case event.Status == models.EventStatusCompleted:
			return ErrEventCompleted
		case event.Status == models.EventStatusUpcoming:
			return ErrEventNotStarted
		}

		matches, err := s.matches.ListByEvent(ctx, exec, eventID)
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			return ErrNoBracket
		}
		if !brackets.AreAllMatchesCompleted(matches) {
			return ErrMatchesIncomplete
		}
		participants, err := s.participants.ListByEvent(ctx, exec, eventID)
		if err != nil {
			return err
		}
		standings, err := s.finisher.standings(event, matches, participants)
		if err != nil {
			return err
		}
		if err := s.finisher.finish(ctx, exec, event, standings); err != nil {
			return err
		}

		if participants, err = s.participants.ListByEvent(ctx, exec, eventID); err != nil {
			return err
		}
		view, err = s.writer.project(ctx, exec, eventID, matches, participants)
		return err
	})
	if err != nil {
		return nil, classifyError(err)
	}

	s.completed(ctx, event, view)
	return event, nil
}

func (s *eventService) CreateCombinedMatch(ctx context.Context, grant models.AdminGrant, eventID int, teamIDs []int) (view *brackets.BracketView, err error) {
	if err := requireAdmin(grant); err != nil {
		return nil, err
	}
	began := time.Now()
	defer func() { s.metrics.ObserveMutation("create_combined_match", began, err) }()

	var pairs brackets.CombinedPairs
	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		event, err := s.events.GetForUpdate(ctx, exec, eventID)
		if err != nil {
			return err
		}
		if event.Type != models.EventTypeCombinedTeam {
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

		pairs, err = brackets.PairCombinedTeams(teamIDs, s.shuffle)
		if err != nil {
			return err
		}
		teams, err := s.teams.ListByIDs(ctx, exec, teamIDs)
		if err != nil {
			return err
		}
		participants := make([]models.Participant, 0, len(teamIDs))
		for i, id := range teamIDs {
			if _, ok := teams[id]; !ok {
				return fmt.Errorf("%w: id %d", ErrTeamNotFound, id)
			}
			p := models.Participant{EventID: eventID, TeamID: id, Seed: i + 1}
			if err := s.participants.Create(ctx, exec, &p); err != nil {
				return err
			}
			participants = append(participants, p)
		}

		match := brackets.CombinedMatch(eventID, pairs)
		if err := s.matches.Create(ctx, exec, match); err != nil {
			return err
		}
		if err := s.events.UpdateStatus(ctx, exec, eventID, models.EventStatusInProgress); err != nil {
			return err
		}
		view, err = s.writer.project(ctx, exec, eventID, []*models.Match{match}, participants)
		return err
	})
	if err != nil {
		return nil, classifyError(err)
	}

	s.logger.Info("combined match created",
		slog.Int("event_id", eventID),
		slog.Any("side1", pairs.Side1),
		slog.Any("side2", pairs.Side2))
	s.post.broadcast(eventID, brackets.MessageBracketUpdated, view)
	return view, nil
}

func (s *eventService) RecordStandings(ctx context.Context, grant models.AdminGrant, eventID int, teamIDs []int) (event *models.Event, err error) {
	if err := requireAdmin(grant); err != nil {
		return nil, err
	}
	began := time.Now()
	defer func() { s.metrics.ObserveMutation("record_standings", began, err) }()

	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		event, err = s.events.GetForUpdate(ctx, exec, eventID)
		if err != nil {
			return err
		}
		if event.Type != models.EventTypeScored {
			return ErrWrongEventType
		}
		if event.Status == models.EventStatusCompleted {
			return ErrEventCompleted
		}
		if err := s.validateStandings(ctx, exec, teamIDs); err != nil {
			return err
		}
		standings := append([]int(nil), teamIDs...)
		return s.finisher.finish(ctx, exec, event, standings)
	})
	if err != nil {
		return nil, classifyError(err)
	}

	s.completed(ctx, event, nil)
	return event, nil
}

func (s *eventService) validateStandings(ctx context.Context, exec repositories.SQLExecutor, teamIDs []int) error {
	if len(teamIDs) == 0 {
		return ErrInvalidStandings
	}
	seen := make(map[int]bool, len(teamIDs))
	for _, id := range teamIDs {
		if seen[id] {
			return fmt.Errorf("%w: team %d listed twice", ErrInvalidStandings, id)
		}
		seen[id] = true
	}
	teams, err := s.teams.ListByIDs(ctx, exec, teamIDs)
	if err != nil {
		return err
	}
	for _, id := range teamIDs {
		if _, ok := teams[id]; !ok {
			return fmt.Errorf("%w: unknown team %d", ErrInvalidStandings, id)
		}
	}
	return nil
}

func (s *eventService) completed(ctx context.Context, event *models.Event, view *brackets.BracketView) {
	s.metrics.EventCompleted(string(event.Type))
	s.logger.Info("event completed",
		slog.Int("event_id", event.ID),
		slog.String("type", string(event.Type)),
		slog.Any("final_standings", event.FinalStandings))
	s.post.broadcast(event.ID, brackets.MessageEventCompleted, event)
	if view != nil {
		s.post.archive(ctx, event.ID, view)
	}
}
