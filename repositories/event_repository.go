package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/Dosada05/competition-system/models"
)

var ErrEventNotFound = errors.New("event not found")

type EventRepository interface {
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Event, error)
	// GetForUpdate locks the event row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Event, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.EventStatus) error
	Complete(ctx context.Context, exec SQLExecutor, id int, standings []int) error
	ListCompletedBySeason(ctx context.Context, exec SQLExecutor, seasonID int) ([]*models.Event, error)
}

type postgresEventRepository struct {
	db *sql.DB
}

func NewPostgresEventRepository(db *sql.DB) EventRepository {
	return &postgresEventRepository{db: db}
}

const eventColumns = `id, season_id, name, type, status, points_table, final_standings, created_at, updated_at`

func (r *postgresEventRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Event, error) {
	return r.get(ctx, exec, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
}

func (r *postgresEventRepository) GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Event, error) {
	return r.get(ctx, exec, `SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`, id)
}

func (r *postgresEventRepository) get(ctx context.Context, exec SQLExecutor, query string, id int) (*models.Event, error) {
	e, err := scanEvent(executor(r.db, exec).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return e, nil
}

// UpdateStatus also clears final standings whenever the event leaves the completed state.
func (r *postgresEventRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.EventStatus) error {
	query := `
		UPDATE events
		SET status = $1,
			final_standings = CASE WHEN $1 = 'completed'::event_status THEN final_standings ELSE NULL END,
			updated_at = NOW()
		WHERE id = $2`

	result, err := executor(r.db, exec).ExecContext(ctx, query, status, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrEventNotFound)
}

func (r *postgresEventRepository) Complete(ctx context.Context, exec SQLExecutor, id int, standings []int) error {
	query := `
		UPDATE events
		SET status = 'completed', final_standings = $1, updated_at = NOW()
		WHERE id = $2`

	result, err := executor(r.db, exec).ExecContext(ctx, query, pq.Array(toInt64s(standings)), id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrEventNotFound)
}

func (r *postgresEventRepository) ListCompletedBySeason(ctx context.Context, exec SQLExecutor, seasonID int) ([]*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE season_id = $1 AND status = 'completed' ORDER BY id ASC`
	rows, err := executor(r.db, exec).QueryContext(ctx, query, seasonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*models.Event, 0)
	for rows.Next() {
		e, scanErr := scanEvent(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		events = append(events, e)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func scanEvent(row rowScanner) (*models.Event, error) {
	var (
		e              models.Event
		eventType      string
		status         string
		finalStandings pq.Int64Array
	)
	err := row.Scan(&e.ID, &e.SeasonID, &e.Name, &eventType, &status, &e.PointsTable, &finalStandings, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.Type = models.EventType(eventType)
	e.Status = models.EventStatus(status)
	if len(finalStandings) > 0 {
		e.FinalStandings = make([]int, len(finalStandings))
		for i, id := range finalStandings {
			e.FinalStandings[i] = int(id)
		}
	}
	return &e, nil
}

func toInt64s(ids []int) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}
