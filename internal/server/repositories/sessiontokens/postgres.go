package sessiontokens

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

func (r *PostgresRepository) Create(ctx context.Context, token *models.SessionToken) (*models.SessionToken, error) {
	query :=
		`INSERT INTO session_tokens (user_id, token, expiry_date, expired)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		token.UserID, token.Token, token.ExpiryDate, token.Expired).Scan(&token.ID)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return token, nil
}

func (r *PostgresRepository) GetByToken(ctx context.Context, token string) (*models.SessionToken, error) {
	query :=
		`SELECT id, user_id, token, expiry_date, expired FROM session_tokens
		 WHERE token = $1
		 `

	t := &models.SessionToken{}
	var userID sql.NullInt64

	err := r.db.QueryRowContext(ctx, query, token).Scan(&t.ID, &userID, &t.Token, &t.ExpiryDate, &t.Expired)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if userID.Valid {
		t.UserID = &userID.Int64
	}

	return t, nil
}

// ExpireAllForUser flags every token of the user as expired and returns how
// many rows changed. Already expired tokens are left alone.
func (r *PostgresRepository) ExpireAllForUser(ctx context.Context, userID int64) (int64, error) {
	query :=
		`UPDATE session_tokens SET expired = TRUE
		 WHERE user_id = $1 AND expired = FALSE
		 `

	res, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return n, nil
}

func (r *PostgresRepository) DeleteForUser(ctx context.Context, userID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM session_tokens WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
