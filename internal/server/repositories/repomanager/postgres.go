// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/tkbstudios/tinet/internal/dbx"
	"github.com/tkbstudios/tinet/internal/server/migrations"
	"github.com/tkbstudios/tinet/internal/server/repositories/allowedapps"
	"github.com/tkbstudios/tinet/internal/server/repositories/appkeys"
	"github.com/tkbstudios/tinet/internal/server/repositories/audit"
	"github.com/tkbstudios/tinet/internal/server/repositories/identities"
	"github.com/tkbstudios/tinet/internal/server/repositories/leaderboards"
	"github.com/tkbstudios/tinet/internal/server/repositories/sessiontokens"
	"github.com/tkbstudios/tinet/internal/server/repositories/websessions"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes a schema migration hook.
type PostgresRepositoryManager struct{}

func (m *PostgresRepositoryManager) Identities(db dbx.DBTX) identities.Repository {
	return identities.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) SessionTokens(db dbx.DBTX) sessiontokens.Repository {
	return sessiontokens.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) WebSessions(db dbx.DBTX) websessions.Repository {
	return websessions.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) AppKeys(db dbx.DBTX) appkeys.Repository {
	return appkeys.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) AllowedApps(db dbx.DBTX) allowedapps.Repository {
	return allowedapps.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Audit(db dbx.DBTX) audit.Repository {
	return audit.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Leaderboards(db dbx.DBTX) leaderboards.Repository {
	return leaderboards.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return err
	}
	return nil
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager(db *sql.DB) (RepositoryManager, error) {
	return &PostgresRepositoryManager{}, nil
}
