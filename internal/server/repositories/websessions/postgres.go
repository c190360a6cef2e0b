package websessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

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

func (r *PostgresRepository) Create(ctx context.Context, s *models.WebSession) error {
	query :=
		`INSERT INTO web_sessions (session_key, user_id, expire_date)
		 VALUES ($1, $2, $3)
		 RETURNING created_at
		 `

	if err := r.db.QueryRowContext(ctx, query, s.SessionKey, s.UserID, s.ExpireDate).Scan(&s.CreatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, sessionKey string) (*models.WebSession, error) {
	query :=
		`SELECT session_key, user_id, expire_date, created_at FROM web_sessions
		 WHERE session_key = $1
		 `

	s := &models.WebSession{}
	err := r.db.QueryRowContext(ctx, query, sessionKey).Scan(&s.SessionKey, &s.UserID, &s.ExpireDate, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return s, nil
}

// ExpireByKey moves the expiry of a single session to at.
func (r *PostgresRepository) ExpireByKey(ctx context.Context, sessionKey string, at time.Time) error {
	query :=
		`UPDATE web_sessions SET expire_date = $2
		 WHERE session_key = $1 AND expire_date > $2
		 `

	if _, err := r.db.ExecContext(ctx, query, sessionKey, at); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) DeleteForUser(ctx context.Context, userID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM web_sessions WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
