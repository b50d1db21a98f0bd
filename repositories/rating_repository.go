package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Dosada05/competition-system/models"
)

var ErrPlayerNotFound = errors.New("player not found")

type RatingRepository interface {
	GetPlayer(ctx context.Context, exec SQLExecutor, id int) (*models.Player, error)
	// AdjustRating adds delta to the player's global rating and returns the new value.
	AdjustRating(ctx context.Context, exec SQLExecutor, playerID int, delta float64) (float64, error)
	CreateChange(ctx context.Context, exec SQLExecutor, change *models.RatingChange) error
	ListChangesByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]models.RatingChange, error)
	ListChangesByEvent(ctx context.Context, exec SQLExecutor, eventID int) ([]models.RatingChange, error)
	DeleteChangesByMatch(ctx context.Context, exec SQLExecutor, matchID int) error
	DeleteChangesByEvent(ctx context.Context, exec SQLExecutor, eventID int) error
	SumDeltasSince(ctx context.Context, exec SQLExecutor, playerID int, since time.Time) (float64, error)
}

type postgresRatingRepository struct {
	db *sql.DB
}

func NewPostgresRatingRepository(db *sql.DB) RatingRepository {
	return &postgresRatingRepository{db: db}
}

func (r *postgresRatingRepository) GetPlayer(ctx context.Context, exec SQLExecutor, id int) (*models.Player, error) {
	p := &models.Player{}
	err := executor(r.db, exec).QueryRowContext(ctx,
		`SELECT id, name, global_rating, created_at FROM players WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.GlobalRating, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *postgresRatingRepository) AdjustRating(ctx context.Context, exec SQLExecutor, playerID int, delta float64) (float64, error) {
	var rating float64
	err := executor(r.db, exec).QueryRowContext(ctx,
		`UPDATE players SET global_rating = global_rating + $1 WHERE id = $2 RETURNING global_rating`,
		delta, playerID,
	).Scan(&rating)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrPlayerNotFound
	}
	return rating, err
}

func (r *postgresRatingRepository) CreateChange(ctx context.Context, exec SQLExecutor, c *models.RatingChange) error {
	query := `
		INSERT INTO rating_changes (player_id, event_id, match_id, delta, rating_after)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`
	return executor(r.db, exec).QueryRowContext(ctx, query,
		c.PlayerID, c.EventID, c.MatchID, c.Delta, c.RatingAfter,
	).Scan(&c.ID, &c.CreatedAt)
}

func (r *postgresRatingRepository) ListChangesByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]models.RatingChange, error) {
	return r.listChanges(ctx, exec, `WHERE match_id = $1`, matchID)
}

func (r *postgresRatingRepository) ListChangesByEvent(ctx context.Context, exec SQLExecutor, eventID int) ([]models.RatingChange, error) {
	return r.listChanges(ctx, exec, `WHERE event_id = $1`, eventID)
}

func (r *postgresRatingRepository) listChanges(ctx context.Context, exec SQLExecutor, where string, arg int) ([]models.RatingChange, error) {
	query := `
		SELECT id, player_id, event_id, COALESCE(match_id, 0), delta, rating_after, created_at
		FROM rating_changes ` + where + ` ORDER BY id ASC`

	rows, err := executor(r.db, exec).QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	changes := make([]models.RatingChange, 0)
	for rows.Next() {
		var c models.RatingChange
		if scanErr := rows.Scan(&c.ID, &c.PlayerID, &c.EventID, &c.MatchID, &c.Delta, &c.RatingAfter, &c.CreatedAt); scanErr != nil {
			return nil, scanErr
		}
		changes = append(changes, c)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return changes, nil
}

func (r *postgresRatingRepository) DeleteChangesByMatch(ctx context.Context, exec SQLExecutor, matchID int) error {
	_, err := executor(r.db, exec).ExecContext(ctx, `DELETE FROM rating_changes WHERE match_id = $1`, matchID)
	return err
}

func (r *postgresRatingRepository) DeleteChangesByEvent(ctx context.Context, exec SQLExecutor, eventID int) error {
	_, err := executor(r.db, exec).ExecContext(ctx, `DELETE FROM rating_changes WHERE event_id = $1`, eventID)
	return err
}

func (r *postgresRatingRepository) SumDeltasSince(ctx context.Context, exec SQLExecutor, playerID int, since time.Time) (float64, error) {
	var sum float64
	err := executor(r.db, exec).QueryRowContext(ctx,
		`SELECT COALESCE(SUM(delta), 0) FROM rating_changes WHERE player_id = $1 AND created_at >= $2`,
		playerID, since,
	).Scan(&sum)
	return sum, err
}
