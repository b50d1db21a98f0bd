package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/competition-system/models"
)

var (
	ErrMatchNotFound      = errors.New("match not found")
	ErrMatchNumberInUse   = errors.New("match number already used in this event")
	ErrMatchInvalidRef    = errors.New("match references an unknown event, team or match")
	ErrMatchSlotViolation = errors.New("match slot holds both a team and a source match")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	ListByEvent(ctx context.Context, exec SQLExecutor, eventID int) ([]*models.Match, error)
	Update(ctx context.Context, exec SQLExecutor, match *models.Match) error
	DeleteByEvent(ctx context.Context, exec SQLExecutor, eventID int) (int64, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchColumns = `
	id, event_id, bracket_match_uid, round, match_number, bracket, kind, status,
	team1_id, team1_from_match_id, team1_is_winner,
	team2_id, team2_from_match_id, team2_is_winner,
	team1_partner_id, team2_partner_id, winner_id,
	team1_score, team2_score, created_at, updated_at`

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	t1, f1, w1 := m.Team1.Columns()
	t2, f2, w2 := m.Team2.Columns()
	s1, s2 := scoreColumns(m.Score)

	query := `
		INSERT INTO matches (
			event_id, bracket_match_uid, round, match_number, bracket, kind, status,
			team1_id, team1_from_match_id, team1_is_winner,
			team2_id, team2_from_match_id, team2_is_winner,
			team1_partner_id, team2_partner_id, winner_id, team1_score, team2_score
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id, created_at, updated_at`

	err := executor(r.db, exec).QueryRowContext(ctx, query,
		m.EventID, m.BracketMatchUID, m.Round, m.MatchNumber, m.Bracket, m.Kind, m.Status,
		t1, f1, w1,
		t2, f2, w2,
		m.Team1PartnerID, m.Team2PartnerID, m.WinnerID, s1, s2,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)

	return r.handleMatchError(err)
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	m, err := scanMatch(executor(r.db, exec).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *postgresMatchRepository) ListByEvent(ctx context.Context, exec SQLExecutor, eventID int) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE event_id = $1 ORDER BY match_number ASC`
	rows, err := executor(r.db, exec).QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, scanErr := scanMatch(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		matches = append(matches, m)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return matches, nil
}

// Update persists the mutable state of a match: status, slots, winner and score.
func (r *postgresMatchRepository) Update(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	t1, f1, w1 := m.Team1.Columns()
	t2, f2, w2 := m.Team2.Columns()
	s1, s2 := scoreColumns(m.Score)

	query := `
		UPDATE matches SET
			status = $1,
			team1_id = $2, team1_from_match_id = $3, team1_is_winner = $4,
			team2_id = $5, team2_from_match_id = $6, team2_is_winner = $7,
			winner_id = $8, team1_score = $9, team2_score = $10,
			updated_at = NOW()
		WHERE id = $11
		RETURNING updated_at`

	err := executor(r.db, exec).QueryRowContext(ctx, query,
		m.Status, t1, f1, w1, t2, f2, w2, m.WinnerID, s1, s2, m.ID,
	).Scan(&m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrMatchNotFound
	}
	return r.handleMatchError(err)
}

func (r *postgresMatchRepository) DeleteByEvent(ctx context.Context, exec SQLExecutor, eventID int) (int64, error) {
	result, err := executor(r.db, exec).ExecContext(ctx, `DELETE FROM matches WHERE event_id = $1`, eventID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMatch(row rowScanner) (*models.Match, error) {
	var (
		m                    models.Match
		t1, f1, t2, f2       sql.NullInt64
		w1, w2               sql.NullBool
		p1, p2, winner       sql.NullInt64
		score1, score2       sql.NullInt64
		bracket, kind, state string
	)
	err := row.Scan(
		&m.ID, &m.EventID, &m.BracketMatchUID, &m.Round, &m.MatchNumber, &bracket, &kind, &state,
		&t1, &f1, &w1,
		&t2, &f2, &w2,
		&p1, &p2, &winner,
		&score1, &score2, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.Bracket = models.BracketSide(bracket)
	m.Kind = models.MatchKind(kind)
	m.Status = models.MatchStatus(state)

	if m.Team1, err = models.SlotFromColumns(nullableInt(t1), nullableInt(f1), nullableBool(w1)); err != nil {
		return nil, fmt.Errorf("match %d team1: %w", m.ID, err)
	}
	if m.Team2, err = models.SlotFromColumns(nullableInt(t2), nullableInt(f2), nullableBool(w2)); err != nil {
		return nil, fmt.Errorf("match %d team2: %w", m.ID, err)
	}
	m.Team1PartnerID = nullableInt(p1)
	m.Team2PartnerID = nullableInt(p2)
	m.WinnerID = nullableInt(winner)
	if score1.Valid && score2.Valid {
		m.Score = &models.Score{Team1: int(score1.Int64), Team2: int(score2.Int64)}
	}
	return &m, nil
}

func scoreColumns(s *models.Score) (*int, *int) {
	if s == nil {
		return nil, nil
	}
	a, b := s.Team1, s.Team2
	return &a, &b
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := pqCode(err); ok {
		switch pqErr.Code {
		case pqUniqueViolation:
			return ErrMatchNumberInUse
		case pqForeignKeyViolation:
			return ErrMatchInvalidRef
		case pqCheckViolation:
			return ErrMatchSlotViolation
		}
	}
	return err
}
