package allowedapps

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

// Create inserts a grant. A second grant for the same (user, app) pair
// returns common.ErrorConflict.
func (r *PostgresRepository) Create(ctx context.Context, grant *models.AllowedApp) (*models.AllowedApp, error) {
	query :=
		`INSERT INTO allowed_apps (user_id, app_id)
		 VALUES ($1, $2)
		 RETURNING allow_id, granted_date
		 `

	err := r.db.QueryRowContext(ctx, query, grant.UserID, grant.AppID).Scan(&grant.ID, &grant.GrantedDate)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return grant, nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID, appID int64) (*models.AllowedApp, error) {
	query :=
		`SELECT allow_id, user_id, app_id, granted_date FROM allowed_apps
		 WHERE user_id = $1 AND app_id = $2
		 `

	g := &models.AllowedApp{}
	err := r.db.QueryRowContext(ctx, query, userID, appID).Scan(&g.ID, &g.UserID, &g.AppID, &g.GrantedDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return g, nil
}

// ListByUser returns the user's grants, newest first, with app metadata.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64) ([]models.AllowedApp, error) {
	query :=
		`SELECT a.allow_id, a.user_id, a.app_id, a.granted_date, k.name, k.description
		 FROM allowed_apps a
		 JOIN app_api_keys k ON k.id = a.app_id
		 WHERE a.user_id = $1
		 ORDER BY a.granted_date DESC
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.AllowedApp
	for rows.Next() {
		var g models.AllowedApp
		if err := rows.Scan(&g.ID, &g.UserID, &g.AppID, &g.GrantedDate, &g.AppName, &g.AppDescription); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, appID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM allowed_apps WHERE user_id = $1 AND app_id = $2`, userID, appID)
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

func (r *PostgresRepository) DeleteForUser(ctx context.Context, userID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM allowed_apps WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
