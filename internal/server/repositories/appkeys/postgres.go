package appkeys

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

const selectColumns = `SELECT id, user_id, name, description, key, expires, last_used, expired
		 FROM app_api_keys`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanKey(s scanner) (*models.AppAPIKey, error) {
	k := &models.AppAPIKey{}
	var userID sql.NullInt64

	if err := s.Scan(&k.ID, &userID, &k.Name, &k.Description, &k.Key, &k.Expires, &k.LastUsed, &k.Expired); err != nil {
		return nil, err
	}
	if userID.Valid {
		k.UserID = &userID.Int64
	}
	return k, nil
}

func (r *PostgresRepository) Create(ctx context.Context, key *models.AppAPIKey) (*models.AppAPIKey, error) {
	query :=
		`INSERT INTO app_api_keys (user_id, name, description, key, expires, last_used, expired)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		key.UserID, key.Name, key.Description, key.Key, key.Expires, key.LastUsed, key.Expired).Scan(&key.ID)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return key, nil
}

func (r *PostgresRepository) get(ctx context.Context, where string, arg any) (*models.AppAPIKey, error) {
	k, err := scanKey(r.db.QueryRowContext(ctx, selectColumns+"\n\t\t "+where, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return k, nil
}

func (r *PostgresRepository) GetByKey(ctx context.Context, key string) (*models.AppAPIKey, error) {
	if key == "" {
		return nil, common.ErrorNotFound
	}
	return r.get(ctx, `WHERE key = $1`, key)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.AppAPIKey, error) {
	return r.get(ctx, `WHERE id = $1`, id)
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, userID int64) ([]models.AppAPIKey, error) {
	rows, err := r.db.QueryContext(ctx, selectColumns+"\n\t\t WHERE user_id = $1 ORDER BY id", userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.AppAPIKey
	for rows.Next() {
		k, err := scanKey(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, *k)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
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

func (r *PostgresRepository) TouchLastUsed(ctx context.Context, id int64, at time.Time) error {
	return r.exec(ctx, `UPDATE app_api_keys SET last_used = $2 WHERE id = $1`, id, at)
}

// Expire revokes the key. Expiring an already expired key succeeds.
func (r *PostgresRepository) Expire(ctx context.Context, id int64) error {
	return r.exec(ctx, `UPDATE app_api_keys SET expired = TRUE WHERE id = $1`, id)
}

// DeleteByOwner removes the key only when userID created it; any other
// caller sees common.ErrorNotFound.
func (r *PostgresRepository) DeleteByOwner(ctx context.Context, userID int64, key string) error {
	return r.exec(ctx, `DELETE FROM app_api_keys WHERE user_id = $1 AND key = $2`, userID, key)
}

func (r *PostgresRepository) DeleteForUser(ctx context.Context, userID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM app_api_keys WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
