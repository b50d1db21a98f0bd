package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/Dosada05/competition-system/brackets"
	"github.com/Dosada05/competition-system/db"
	"github.com/Dosada05/competition-system/metrics"
	"github.com/Dosada05/competition-system/models"
	"github.com/Dosada05/competition-system/repositories"
)

type MatchService interface {
	// UpdateMatch records a score, optionally completing the match and
	// propagating its result through the bracket. Override rewrites the
	// result of an already completed match.
	UpdateMatch(ctx context.Context, grant models.AdminGrant, matchID int, upd brackets.ScoreUpdate) (*MatchUpdate, error)
}

// MatchUpdate is the outcome of one committed score update.
type MatchUpdate struct {
	Match          *models.Match         `json:"match"`
	Changed        []*models.Match       `json:"changed"`
	EventCompleted bool                  `json:"event_completed"`
	Bracket        *brackets.BracketView `json:"bracket"`
}

type matchService struct {
	tx           db.Transactor
	events       repositories.EventRepository
	matches      repositories.MatchRepository
	participants repositories.ParticipantRepository
	ratings      RatingService
	generator    brackets.BracketGenerator
	writer       *bracketReader
	finisher     *eventFinisher
	post         *afterCommit
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

type MatchServiceDeps struct {
	Tx           db.Transactor
	Events       repositories.EventRepository
	Matches      repositories.MatchRepository
	Participants repositories.ParticipantRepository
	Teams        repositories.TeamRepository
	Ratings      RatingService
	Generator    brackets.BracketGenerator
	Notifier     Notifier
	Archiver     Archiver
	Metrics      *metrics.Metrics
	Settings     Settings
	Logger       *slog.Logger
}

func NewMatchService(deps MatchServiceDeps) MatchService {
	settings := deps.Settings.withDefaults()
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	generator := deps.Generator
	if generator == nil {
		generator = brackets.NewDoubleEliminationGenerator()
	}
	return &matchService{
		tx:           deps.Tx,
		events:       deps.Events,
		matches:      deps.Matches,
		participants: deps.Participants,
		ratings:      deps.Ratings,
		generator:    generator,
		writer: &bracketReader{
			matches: deps.Matches, participants: deps.Participants, teams: deps.Teams, defaultRating: settings.DefaultRating,
		},
		finisher: &eventFinisher{events: deps.Events, participants: deps.Participants},
		post:     &afterCommit{notifier: deps.Notifier, archiver: deps.Archiver, logger: logger},
		metrics:  deps.Metrics,
		logger:   logger.With(slog.String("service", "match")),
	}
}

func (s *matchService) UpdateMatch(ctx context.Context, grant models.AdminGrant, matchID int, upd brackets.ScoreUpdate) (out *MatchUpdate, err error) {
	if err := requireAdmin(grant); err != nil {
		return nil, err
	}
	began := time.Now()
	defer func() { s.metrics.ObserveMutation("update_match", began, err) }()

	var (
		event  *models.Event
		result *brackets.Result
	)
	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		target, err := s.matches.GetByID(ctx, exec, matchID)
		if err != nil {
			return err
		}
		event, err = s.events.GetForUpdate(ctx, exec, target.EventID)
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

		// re-read under the event lock so a racing completion is visible
		all, err := s.matches.ListByEvent(ctx, exec, event.ID)
		if err != nil {
			return err
		}
		participants, err := s.participants.ListByEvent(ctx, exec, event.ID)
		if err != nil {
			return err
		}
		layout, err := s.layoutFor(ctx, event, all, participants, upd)
		if err != nil {
			return err
		}

		engine := brackets.NewEngine(all, layout)
		result, err = engine.UpdateScore(matchID, upd)
		if err != nil {
			return err
		}
		if err := s.persist(ctx, exec, event, result); err != nil {
			return err
		}

		out = &MatchUpdate{Match: result.Match, Changed: result.Changed}
		if result.Decided {
			standings, err := s.finisher.standings(event, engine.Matches(), participants)
			if err != nil {
				return err
			}
			if err := s.finisher.finish(ctx, exec, event, standings); err != nil {
				return err
			}
			out.EventCompleted = true
		}

		participants, err = s.participants.ListByEvent(ctx, exec, event.ID)
		if err != nil {
			return err
		}
		out.Bracket, err = s.writer.project(ctx, exec, event.ID, engine.Matches(), participants)
		return err
	})
	if err != nil {
		return nil, classifyError(err)
	}

	if result.Completed {
		s.metrics.MatchCompleted(string(result.Match.Bracket), result.PreviousWinnerID != nil)
	}
	s.logger.Info("match updated",
		slog.Int("event_id", event.ID),
		slog.Int("match_id", matchID),
		slog.String("status", string(result.Match.Status)),
		slog.Bool("completed", result.Completed),
		slog.Int("propagated", len(result.Changed)))
	s.post.broadcast(event.ID, brackets.MessageBracketUpdated, out.Bracket)

	if out.EventCompleted {
		s.metrics.EventCompleted(string(event.Type))
		s.logger.Info("event completed", slog.Int("event_id", event.ID), slog.Any("final_standings", event.FinalStandings))
		s.post.broadcast(event.ID, brackets.MessageEventCompleted, event)
		s.post.archive(ctx, event.ID, out.Bracket)
	}
	return out, nil
}

// layoutFor rebuilds the structural feeds needed to correct a completed
// tournament match. Combined matches have no downstream slots.
func (s *matchService) layoutFor(ctx context.Context, event *models.Event, all []*models.Match, participants []models.Participant, upd brackets.ScoreUpdate) (brackets.Layout, error) {
	if event.Type == models.EventTypeCombinedTeam {
		return brackets.Layout{}, nil
	}
	if !upd.Override {
		return nil, nil
	}
	generated, err := s.generator.GenerateBracket(ctx, brackets.GenerateBracketParams{EventID: event.ID, Seeds: seedsOf(participants)})
	if err != nil {
		return nil, err
	}
	return brackets.BuildLayout(generated, all), nil
}

func (s *matchService) persist(ctx context.Context, exec repositories.SQLExecutor, event *models.Event, result *brackets.Result) error {
	if err := s.matches.Update(ctx, exec, result.Match); err != nil {
		return err
	}
	for _, m := range result.Changed {
		if err := s.matches.Update(ctx, exec, m); err != nil {
			return err
		}
	}

	if result.Completed {
		if result.PreviousWinnerID != nil {
			if err := s.ratings.RevertMatch(ctx, exec, result.Match.ID); err != nil {
				return err
			}
		}
		if err := s.ratings.ApplyMatchResult(ctx, exec, result.Match); err != nil {
			return err
		}
	}

	if event.Type != models.EventTypeTournament {
		return nil
	}
	for _, teamID := range result.Revived {
		if err := s.participants.SetElimination(ctx, exec, event.ID, teamID, nil); err != nil {
			return err
		}
	}
	for _, e := range result.Eliminations {
		round := e.Round
		if err := s.participants.SetElimination(ctx, exec, event.ID, e.TeamID, &round); err != nil {
			return err
		}
	}
	return nil
}
