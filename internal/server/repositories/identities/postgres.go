package identities

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

const selectColumns = `SELECT id, username, email, password, bio,
		 COALESCE(api_key, ''), COALESCE(calc_key, ''), date_joined, last_login
		 FROM users`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, identity *models.Identity) (*models.Identity, error) {
	query :=
		`INSERT INTO users (username, email, password, bio)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, date_joined
		 `

	err := r.db.QueryRowContext(ctx, query,
		identity.UserName, identity.Email, identity.PasswordHash, identity.Bio).Scan(&identity.ID, &identity.DateJoined)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return identity, nil
}

func (r *PostgresRepository) get(ctx context.Context, where string, args ...any) (*models.Identity, error) {
	i := &models.Identity{}
	var lastLogin sql.NullTime

	err := r.db.QueryRowContext(ctx, selectColumns+"\n\t\t "+where, args...).Scan(
		&i.ID, &i.UserName, &i.Email, &i.PasswordHash, &i.Bio,
		&i.APIKey, &i.CalcKey, &i.DateJoined, &lastLogin)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if lastLogin.Valid {
		i.LastLogin = &lastLogin.Time
	}

	return i, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Identity, error) {
	return r.get(ctx, `WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByUserName(ctx context.Context, userName string) (*models.Identity, error) {
	return r.get(ctx, `WHERE username = $1`, userName)
}

// GetByAPIKey looks up the identity owning a user API key. Empty keys never match.
func (r *PostgresRepository) GetByAPIKey(ctx context.Context, apiKey string) (*models.Identity, error) {
	if apiKey == "" {
		return nil, common.ErrorNotFound
	}
	return r.get(ctx, `WHERE api_key = $1`, apiKey)
}

// GetByCalcCredentials requires both fields to match so callers cannot tell
// which one was wrong.
func (r *PostgresRepository) GetByCalcCredentials(ctx context.Context, userName, calcKey string) (*models.Identity, error) {
	if calcKey == "" {
		return nil, common.ErrorNotFound
	}
	return r.get(ctx, `WHERE username = $1 AND calc_key = $2`, userName, calcKey)
}

func (r *PostgresRepository) update(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
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

func (r *PostgresRepository) SetAPIKey(ctx context.Context, id int64, apiKey string) error {
	return r.update(ctx, `UPDATE users SET api_key = $2 WHERE id = $1`, id, apiKey)
}

func (r *PostgresRepository) SetCalcKey(ctx context.Context, id int64, calcKey string) error {
	return r.update(ctx, `UPDATE users SET calc_key = $2 WHERE id = $1`, id, calcKey)
}

func (r *PostgresRepository) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	return r.update(ctx, `UPDATE users SET last_login = $2 WHERE id = $1`, id, at)
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	return r.update(ctx, `DELETE FROM users WHERE id = $1`, id)
}
