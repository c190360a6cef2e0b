package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tkbstudios/tinet/internal/logging"
	"github.com/tkbstudios/tinet/internal/server/models"
	"github.com/tkbstudios/tinet/internal/server/repositories/repomanager"
)

// Audit actions.
const (
	ActionWebLogin            = "logged in on web"
	ActionWebLogout           = "logged out on web"
	ActionSessionTokenIssued  = "requested a new session token"
	ActionSessionTokenAuth    = "Authenticated using session token"
	ActionGrantConfirmed      = "granted access to app"
	ActionGrantRevoked        = "revoked access to app"
	ActionAPIKeyIssued        = "generated a new API key"
	ActionKeyfileIssued       = "downloaded a new keyfile"
	ActionSessionTokensExpire = "expired all calculator sessions"
)

// DefaultAuditHistoryLimit bounds AuditLog.History when no limit is given.
const DefaultAuditHistoryLimit = 50

// AuditLog appends account and app audit rows. Writes never fail the caller:
// errors are logged at Warn and swallowed.
type AuditLog struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewAuditLog(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *AuditLog {
	return &AuditLog{
		db:          db,
		repomanager: m,
		logger:      logger.With("module", "audit"),
	}
}

// Record appends an account audit row.
func (a *AuditLog) Record(ctx context.Context, action, ip, userName string) {
	e := &models.AuditEntry{Action: action, IP: ip, UserName: userName}
	if err := a.repomanager.Audit(a.db).Add(ctx, e); err != nil {
		a.logger.Warn(ctx, "audit write failed", "action", action, "username", userName, "error", err)
	}
}

// RecordApp appends an audit row scoped to an app and, when known, the grant.
func (a *AuditLog) RecordApp(ctx context.Context, action, ip, userName string, grantID, appID *int64) {
	e := &models.AppAuditEntry{
		Action:       action,
		IP:           ip,
		UserName:     userName,
		AllowedAppID: grantID,
		AppID:        appID,
	}
	if err := a.repomanager.Audit(a.db).AddApp(ctx, e); err != nil {
		a.logger.Warn(ctx, "app audit write failed", "action", action, "username", userName, "error", err)
	}
}

// History returns the newest account audit rows of userName.
func (a *AuditLog) History(ctx context.Context, userName string, limit int) ([]models.AuditEntry, error) {
	if limit <= 0 {
		limit = DefaultAuditHistoryLimit
	}
	entries, err := a.repomanager.Audit(a.db).ListByUserName(ctx, userName, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing audit entries: %w", err)
	}
	return entries, nil
}
