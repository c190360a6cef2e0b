package leaderboards

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tkbstudios/tinet/internal/common"
	"github.com/tkbstudios/tinet/internal/dbx"
	"github.com/tkbstudios/tinet/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, lb *models.Leaderboard) (*models.Leaderboard, error) {
	query :=
		`INSERT INTO leaderboards (title, description, app_id)
		 VALUES ($1, $2, $3)
		 RETURNING id
		 `

	if err := r.db.QueryRowContext(ctx, query, lb.Title, lb.Description, lb.AppID).Scan(&lb.ID); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return lb, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (*models.Leaderboard, error) {
	query :=
		`SELECT id, title, description, app_id FROM leaderboards
		 WHERE id = $1
		 `

	lb := &models.Leaderboard{}
	var appID sql.NullInt64

	err := r.db.QueryRowContext(ctx, query, id).Scan(&lb.ID, &lb.Title, &lb.Description, &appID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if appID.Valid {
		lb.AppID = &appID.Int64
	}

	return lb, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]models.Leaderboard, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, title, description, app_id FROM leaderboards ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Leaderboard
	for rows.Next() {
		var lb models.Leaderboard
		var appID sql.NullInt64
		if err := rows.Scan(&lb.ID, &lb.Title, &lb.Description, &appID); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if appID.Valid {
			id := appID.Int64
			lb.AppID = &id
		}
		result = append(result, lb)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

// Entries returns the leaderboard's scores, highest first.
func (r *PostgresRepository) Entries(ctx context.Context, leaderboardID int64) ([]models.LeaderboardEntry, error) {
	query :=
		`SELECT e.id, e.user_id, e.leaderboard_id, e.score, u.username
		 FROM leaderboard_entries e
		 JOIN users u ON u.id = e.user_id
		 WHERE e.leaderboard_id = $1
		 ORDER BY e.score DESC, e.id
		 `

	rows, err := r.db.QueryContext(ctx, query, leaderboardID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.LeaderboardEntry
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.LeaderboardID, &e.Score, &e.UserName); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

// CreateEntry inserts the first score of a user on a leaderboard. A row that
// already exists yields common.ErrorConflict so the caller can retry as an update.
func (r *PostgresRepository) CreateEntry(ctx context.Context, e *models.LeaderboardEntry) (*models.LeaderboardEntry, error) {
	query :=
		`INSERT INTO leaderboard_entries (user_id, leaderboard_id, score)
		 VALUES ($1, $2, $3)
		 RETURNING id
		 `

	if err := r.db.QueryRowContext(ctx, query, e.UserID, e.LeaderboardID, e.Score).Scan(&e.ID); err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return e, nil
}

func (r *PostgresRepository) scoreQuery(ctx context.Context, query string, args ...any) (int64, error) {
	var score int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&score); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return score, nil
}

// AddScore atomically adds delta to an existing entry and returns the new score.
func (r *PostgresRepository) AddScore(ctx context.Context, userID, leaderboardID, delta int64) (int64, error) {
	query :=
		`UPDATE leaderboard_entries SET score = score + $3
		 WHERE user_id = $1 AND leaderboard_id = $2
		 RETURNING score
		 `
	return r.scoreQuery(ctx, query, userID, leaderboardID, delta)
}

func (r *PostgresRepository) SetScore(ctx context.Context, userID, leaderboardID, score int64) (int64, error) {
	query :=
		`UPDATE leaderboard_entries SET score = $3
		 WHERE user_id = $1 AND leaderboard_id = $2
		 RETURNING score
		 `
	return r.scoreQuery(ctx, query, userID, leaderboardID, score)
}

func (r *PostgresRepository) DeleteEntry(ctx context.Context, userID, leaderboardID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM leaderboard_entries WHERE user_id = $1 AND leaderboard_id = $2`, userID, leaderboardID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}

func (r *PostgresRepository) DeleteEntriesForUser(ctx context.Context, userID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM leaderboard_entries WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
