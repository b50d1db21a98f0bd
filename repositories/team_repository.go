package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/Dosada05/competition-system/models"
)

var ErrTeamNotFound = errors.New("team not found")

type TeamRepository interface {
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Team, error)
	ListByIDs(ctx context.Context, exec SQLExecutor, ids []int) (map[int]*models.Team, error)
	ListBySeason(ctx context.Context, exec SQLExecutor, seasonID int) ([]*models.Team, error)
	// Rosters returns the players of each team; EventRating is filled when
	// eventID is set and the player has an override for that event.
	Rosters(ctx context.Context, exec SQLExecutor, teamIDs []int, eventID *int) (map[int][]models.Player, error)
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Team, error) {
	query := `SELECT id, season_id, name, abbreviation, color, created_at FROM teams WHERE id = $1`
	t := &models.Team{}
	err := executor(r.db, exec).QueryRowContext(ctx, query, id).Scan(&t.ID, &t.SeasonID, &t.Name, &t.Abbreviation, &t.Color, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *postgresTeamRepository) ListByIDs(ctx context.Context, exec SQLExecutor, ids []int) (map[int]*models.Team, error) {
	query := `SELECT id, season_id, name, abbreviation, color, created_at FROM teams WHERE id = ANY($1)`
	teams, err := r.list(ctx, exec, query, pq.Array(toInt64s(ids)))
	if err != nil {
		return nil, err
	}
	out := make(map[int]*models.Team, len(teams))
	for _, t := range teams {
		out[t.ID] = t
	}
	return out, nil
}

func (r *postgresTeamRepository) ListBySeason(ctx context.Context, exec SQLExecutor, seasonID int) ([]*models.Team, error) {
	query := `SELECT id, season_id, name, abbreviation, color, created_at FROM teams WHERE season_id = $1 ORDER BY name ASC`
	return r.list(ctx, exec, query, seasonID)
}

func (r *postgresTeamRepository) list(ctx context.Context, exec SQLExecutor, query string, arg interface{}) ([]*models.Team, error) {
	rows, err := executor(r.db, exec).QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := make([]*models.Team, 0)
	for rows.Next() {
		t := &models.Team{}
		if scanErr := rows.Scan(&t.ID, &t.SeasonID, &t.Name, &t.Abbreviation, &t.Color, &t.CreatedAt); scanErr != nil {
			return nil, scanErr
		}
		teams = append(teams, t)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return teams, nil
}

func (r *postgresTeamRepository) Rosters(ctx context.Context, exec SQLExecutor, teamIDs []int, eventID *int) (map[int][]models.Player, error) {
	query := `
		SELECT re.team_id, p.id, p.name, p.global_rating, p.created_at, per.rating
		FROM roster_entries re
		JOIN players p ON p.id = re.player_id
		LEFT JOIN player_event_ratings per ON per.player_id = p.id AND per.event_id = $2
		WHERE re.team_id = ANY($1)
		ORDER BY re.team_id, p.id`

	rows, err := executor(r.db, exec).QueryContext(ctx, query, pq.Array(toInt64s(teamIDs)), eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rosters := make(map[int][]models.Player, len(teamIDs))
	for rows.Next() {
		var (
			teamID      int
			p           models.Player
			eventRating sql.NullFloat64
		)
		if scanErr := rows.Scan(&teamID, &p.ID, &p.Name, &p.GlobalRating, &p.CreatedAt, &eventRating); scanErr != nil {
			return nil, scanErr
		}
		if eventRating.Valid {
			v := eventRating.Float64
			p.EventRating = &v
		}
		rosters[teamID] = append(rosters[teamID], p)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return rosters, nil
}
