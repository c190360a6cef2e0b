package repomanager

import (
	"context"
	"database/sql"

	"github.com/tkbstudios/tinet/internal/dbx"
	"github.com/tkbstudios/tinet/internal/server/repositories/allowedapps"
	"github.com/tkbstudios/tinet/internal/server/repositories/appkeys"
	"github.com/tkbstudios/tinet/internal/server/repositories/audit"
	"github.com/tkbstudios/tinet/internal/server/repositories/identities"
	"github.com/tkbstudios/tinet/internal/server/repositories/leaderboards"
	"github.com/tkbstudios/tinet/internal/server/repositories/sessiontokens"
	"github.com/tkbstudios/tinet/internal/server/repositories/websessions"
)

// RepositoryManager vends repositories bound to a connection or transaction,
// so a service can run several of them inside one dbx.WithTx call.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Identities(db dbx.DBTX) identities.Repository
	SessionTokens(db dbx.DBTX) sessiontokens.Repository
	WebSessions(db dbx.DBTX) websessions.Repository
	AppKeys(db dbx.DBTX) appkeys.Repository
	AllowedApps(db dbx.DBTX) allowedapps.Repository
	Audit(db dbx.DBTX) audit.Repository
	Leaderboards(db dbx.DBTX) leaderboards.Repository
}
