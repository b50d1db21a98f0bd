package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Dosada05/competition-system/models"
)

var (
	ErrParticipantNotFound = errors.New("participant not found")
	ErrParticipantConflict = errors.New("team or seed already registered for this event")
	ErrParticipantInvalid  = errors.New("participant references an unknown event or team")
)

type ParticipantRepository interface {
	Create(ctx context.Context, exec SQLExecutor, p *models.Participant) error
	ListByEvent(ctx context.Context, exec SQLExecutor, eventID int) ([]models.Participant, error)
	SetElimination(ctx context.Context, exec SQLExecutor, eventID, teamID int, round *int) error
	SetFinalPosition(ctx context.Context, exec SQLExecutor, eventID, teamID, position int) error
	DeleteByEvent(ctx context.Context, exec SQLExecutor, eventID int) error
}

type postgresParticipantRepository struct {
	db *sql.DB
}

func NewPostgresParticipantRepository(db *sql.DB) ParticipantRepository {
	return &postgresParticipantRepository{db: db}
}

func (r *postgresParticipantRepository) Create(ctx context.Context, exec SQLExecutor, p *models.Participant) error {
	query := `
		INSERT INTO participants (event_id, team_id, seed)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := executor(r.db, exec).QueryRowContext(ctx, query, p.EventID, p.TeamID, p.Seed).Scan(&p.ID, &p.CreatedAt)
	return r.handleParticipantError(err)
}

func (r *postgresParticipantRepository) ListByEvent(ctx context.Context, exec SQLExecutor, eventID int) ([]models.Participant, error) {
	query := `
		SELECT id, event_id, team_id, seed, is_eliminated, elimination_round, final_position, created_at
		FROM participants
		WHERE event_id = $1
		ORDER BY seed ASC`

	rows, err := executor(r.db, exec).QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	participants := make([]models.Participant, 0)
	for rows.Next() {
		var (
			p        models.Participant
			elimRnd  sql.NullInt64
			position sql.NullInt64
		)
		if scanErr := rows.Scan(&p.ID, &p.EventID, &p.TeamID, &p.Seed, &p.IsEliminated, &elimRnd, &position, &p.CreatedAt); scanErr != nil {
			return nil, scanErr
		}
		p.EliminationRound = nullableInt(elimRnd)
		p.FinalPosition = nullableInt(position)
		participants = append(participants, p)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return participants, nil
}

// SetElimination marks a team as knocked out in round, or revives it when round is nil.
func (r *postgresParticipantRepository) SetElimination(ctx context.Context, exec SQLExecutor, eventID, teamID int, round *int) error {
	query := `
		UPDATE participants
		SET is_eliminated = $1, elimination_round = $2
		WHERE event_id = $3 AND team_id = $4`

	result, err := executor(r.db, exec).ExecContext(ctx, query, round != nil, round, eventID, teamID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *postgresParticipantRepository) SetFinalPosition(ctx context.Context, exec SQLExecutor, eventID, teamID, position int) error {
	query := `UPDATE participants SET final_position = $1 WHERE event_id = $2 AND team_id = $3`
	result, err := executor(r.db, exec).ExecContext(ctx, query, position, eventID, teamID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *postgresParticipantRepository) DeleteByEvent(ctx context.Context, exec SQLExecutor, eventID int) error {
	_, err := executor(r.db, exec).ExecContext(ctx, `DELETE FROM participants WHERE event_id = $1`, eventID)
	return err
}

func (r *postgresParticipantRepository) handleParticipantError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := pqCode(err); ok {
		switch pqErr.Code {
		case pqUniqueViolation:
			return ErrParticipantConflict
		case pqForeignKeyViolation:
			return ErrParticipantInvalid
		}
	}
	return err
}
