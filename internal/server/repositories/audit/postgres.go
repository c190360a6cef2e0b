package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tkbstudios/tinet/internal/dbx"
	"github.com/tkbstudios/tinet/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func nullIP(ip string) sql.NullString {
	return sql.NullString{String: ip, Valid: ip != ""}
}

func (r *PostgresRepository) Add(ctx context.Context, e *models.AuditEntry) error {
	query :=
		`INSERT INTO audit_entries (action, ip, username)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at
		 `

	if err := r.db.QueryRowContext(ctx, query, e.Action, nullIP(e.IP), e.UserName).Scan(&e.ID, &e.CreatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) AddApp(ctx context.Context, e *models.AppAuditEntry) error {
	query :=
		`INSERT INTO app_audit_entries (action, ip, username, allowed_app_id, app_id)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		e.Action, nullIP(e.IP), e.UserName, e.AllowedAppID, e.AppID).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

// ListByUserName returns at most limit account events, newest first.
func (r *PostgresRepository) ListByUserName(ctx context.Context, userName string, limit int) ([]models.AuditEntry, error) {
	query :=
		`SELECT id, action, COALESCE(ip, ''), username, created_at FROM audit_entries
		 WHERE username = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2
		 `

	rows, err := r.db.QueryContext(ctx, query, userName, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(&e.ID, &e.Action, &e.IP, &e.UserName, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) DeleteAppForUserName(ctx context.Context, userName string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM app_audit_entries WHERE username = $1`, userName); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteForUserName(ctx context.Context, userName string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM audit_entries WHERE username = $1`, userName); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
