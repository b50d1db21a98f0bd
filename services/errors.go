package services

import (
	"errors"
	"fmt"

	"github.com/Dosada05/competition-system/brackets"
	"github.com/Dosada05/competition-system/models"
	"github.com/Dosada05/competition-system/repositories"
)

// Error kinds. Every error returned by a service wraps exactly one of them,
// and handlers map kinds to HTTP statuses.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("requested resource not found")
	ErrConflict   = errors.New("request conflicts with the current state")
	ErrForbidden  = errors.New("operation not allowed for the current user")
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func newKindError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

var (
	ErrEventNotFound  = newKindError(ErrNotFound, "event not found")
	ErrMatchNotFound  = newKindError(ErrNotFound, "match not found")
	ErrTeamNotFound   = newKindError(ErrNotFound, "team not found")
	ErrPlayerNotFound = newKindError(ErrNotFound, "player not found")

	ErrWrongEventType     = newKindError(ErrValidation, "operation is not supported for this event type")
	ErrInvalidStandings   = newKindError(ErrValidation, "standings must list distinct, existing teams")
	ErrResetNotConfirmed  = newKindError(ErrValidation, "bracket reset must be confirmed")
	ErrEventNotUpcoming   = newKindError(ErrConflict, "event has already started")
	ErrEventNotStarted    = newKindError(ErrConflict, "event has not started yet")
	ErrEventCompleted     = newKindError(ErrConflict, "event is already completed")
	ErrBracketExists      = newKindError(ErrConflict, "event already has matches; reset it first")
	ErrNoBracket          = newKindError(ErrConflict, "event has no bracket")
	ErrMatchesIncomplete  = newKindError(ErrConflict, "event still has matches that are not completed")
	ErrForbiddenOperation = newKindError(ErrForbidden, "admin role required")
)

// classifyError attaches a kind to errors coming from the engine or the
// repositories. Errors that already carry a kind pass through.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range []error{ErrValidation, ErrNotFound, ErrConflict, ErrForbidden} {
		if errors.Is(err, kind) {
			return err
		}
	}

	switch {
	case errors.Is(err, repositories.ErrEventNotFound):
		return ErrEventNotFound
	case errors.Is(err, repositories.ErrMatchNotFound), errors.Is(err, brackets.ErrMatchNotFound):
		return fmt.Errorf("%w: %w", ErrMatchNotFound, err)
	case errors.Is(err, repositories.ErrTeamNotFound):
		return ErrTeamNotFound
	case errors.Is(err, repositories.ErrPlayerNotFound):
		return ErrPlayerNotFound

	case errors.Is(err, brackets.ErrNotEnoughTeams),
		errors.Is(err, brackets.ErrDuplicateSeed),
		errors.Is(err, brackets.ErrDuplicateTeam),
		errors.Is(err, brackets.ErrSeedGap),
		errors.Is(err, brackets.ErrTiedScore),
		errors.Is(err, brackets.ErrNegativeScore),
		errors.Is(err, brackets.ErrWinnerMismatch),
		errors.Is(err, brackets.ErrCombinedTeams),
		errors.Is(err, repositories.ErrParticipantInvalid),
		errors.Is(err, repositories.ErrMatchInvalidRef):
		return fmt.Errorf("%w: %w", ErrValidation, err)

	case errors.Is(err, brackets.ErrMatchNotReady),
		errors.Is(err, brackets.ErrMatchCompleted),
		errors.Is(err, brackets.ErrMatchCancelled),
		errors.Is(err, brackets.ErrDownstreamPlayed),
		errors.Is(err, brackets.ErrCorrectionUnsupported),
		errors.Is(err, brackets.ErrBracketUndecided),
		errors.Is(err, repositories.ErrParticipantConflict),
		errors.Is(err, repositories.ErrMatchNumberInUse):
		return fmt.Errorf("%w: %w", ErrConflict, err)

	case errors.Is(err, models.ErrNotAdmin):
		return fmt.Errorf("%w: %w", ErrForbidden, err)
	}
	return err
}

// requireAdmin rejects callers without a valid admin grant.
func requireAdmin(grant models.AdminGrant) error {
	if !grant.Valid() {
		return ErrForbiddenOperation
	}
	return nil
}
