package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/tkbstudios/tinet/internal/common"
	"github.com/tkbstudios/tinet/internal/server/config"
	"github.com/tkbstudios/tinet/internal/server/metrics"
	"github.com/tkbstudios/tinet/internal/server/models"
	"github.com/tkbstudios/tinet/internal/server/repositories/repomanager"
)

// Placeholder metadata shown for app ids that do not exist.
const (
	UnknownAppName        = "Unknown"
	UnknownAppDescription = "No description available"
)

// GrantRequiredError is returned when an app acts for a user that has not
// granted it access. It unwraps to common.ErrorForbidden.
type GrantRequiredError struct {
	AppID    int64
	GrantURL string
}

func (e *GrantRequiredError) Error() string {
	return "User has not granted access to the app"
}

func (e *GrantRequiredError) Unwrap() error {
	return common.ErrorForbidden
}

// GrantPrompt is what a user sees before confirming a grant.
type GrantPrompt struct {
	AppID          int64
	AppName        string
	AppDescription string
	AlreadyGranted bool
}

// GrantEngine runs the user-grants-app handshake.
type GrantEngine struct {
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	apps         *AppRegistry
	accounts     *AccountService
	credentials  *CredentialStore
	audit        *AuditLog
	grantURLBase string
}

func NewGrantEngine(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config,
	apps *AppRegistry, accounts *AccountService, credentials *CredentialStore, audit *AuditLog) *GrantEngine {
	return &GrantEngine{
		db:           db,
		repomanager:  m,
		apps:         apps,
		accounts:     accounts,
		credentials:  credentials,
		audit:        audit,
		grantURLBase: cfg.GrantURLBase,
	}
}

// GrantURL is where an app sends a user to grant it access.
func (g *GrantEngine) GrantURL(appID int64) string {
	return g.grantURLBase + strconv.FormatInt(appID, 10)
}

// RequestGrant describes appID to identity. Unknown ids get placeholder
// metadata instead of an error.
func (g *GrantEngine) RequestGrant(ctx context.Context, identity *models.Identity, appID int64) (*GrantPrompt, error) {
	prompt := &GrantPrompt{
		AppID:          appID,
		AppName:        UnknownAppName,
		AppDescription: UnknownAppDescription,
	}

	app, err := g.apps.Get(ctx, appID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return prompt, nil
		}
		return nil, err
	}
	prompt.AppName = app.Name
	prompt.AppDescription = app.Description

	_, err = g.repomanager.AllowedApps(g.db).Get(ctx, identity.ID, appID)
	switch {
	case err == nil:
		prompt.AlreadyGranted = true
	case !errors.Is(err, common.ErrorNotFound):
		return nil, fmt.Errorf("error searching grant: %w", err)
	}
	return prompt, nil
}

// ConfirmGrant re-checks password and grants appID. It reports created=false
// with the existing row when the grant was already there. A wrong password is
// common.ErrorForbidden and an unknown app common.ErrorInvalidApp.
func (g *GrantEngine) ConfirmGrant(ctx context.Context, identity *models.Identity, appID int64, password, ip string) (*models.AllowedApp, bool, error) {
	ok, err := g.accounts.VerifyPassword(ctx, identity.ID, password)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		metrics.AuthAttempts.WithLabelValues(metrics.ChannelPassword, metrics.OutcomeForbidden).Inc()
		return nil, false, common.ErrorForbidden
	}

	if _, err := g.apps.Get(ctx, appID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, false, common.ErrorInvalidApp
		}
		return nil, false, err
	}

	repo := g.repomanager.AllowedApps(g.db)
	existing, err := repo.Get(ctx, identity.ID, appID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, false, fmt.Errorf("error searching grant: %w", err)
	}

	grant, err := repo.Create(ctx, &models.AllowedApp{UserID: identity.ID, AppID: appID})
	if err != nil {
		if errors.Is(err, common.ErrorConflict) {
			// lost a race with a concurrent confirm
			existing, getErr := repo.Get(ctx, identity.ID, appID)
			if getErr != nil {
				return nil, false, fmt.Errorf("error searching grant: %w", getErr)
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("error creating grant: %w", err)
	}

	g.audit.RecordApp(ctx, ActionGrantConfirmed, ip, identity.UserName, &grant.ID, &appID)
	return grant, true, nil
}

// Revoke deletes the grant of identity for appID.
func (g *GrantEngine) Revoke(ctx context.Context, identity *models.Identity, appID int64, ip string) error {
	if err := g.repomanager.AllowedApps(g.db).Delete(ctx, identity.ID, appID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("error deleting grant: %w", err)
	}
	g.audit.RecordApp(ctx, ActionGrantRevoked, ip, identity.UserName, nil, &appID)
	return nil
}

// RequireGrant returns the grant of identity for app, or a
// *GrantRequiredError carrying the grant URL.
func (g *GrantEngine) RequireGrant(ctx context.Context, identity *models.Identity, app *models.AppAPIKey) (*models.AllowedApp, error) {
	grant, err := g.repomanager.AllowedApps(g.db).Get(ctx, identity.ID, app.ID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, &GrantRequiredError{AppID: app.ID, GrantURL: g.GrantURL(app.ID)}
		}
		return nil, fmt.Errorf("error searching grant: %w", err)
	}
	return grant, nil
}

// ListGrants returns the apps identity has granted, newest first.
func (g *GrantEngine) ListGrants(ctx context.Context, identity *models.Identity) ([]models.AllowedApp, error) {
	grants, err := g.repomanager.AllowedApps(g.db).ListByUser(ctx, identity.ID)
	if err != nil {
		return nil, fmt.Errorf("error listing grants: %w", err)
	}
	return grants, nil
}

// AuthenticateSession lets an app turn a calculator session token into the
// user's identity, provided the user granted the app.
func (g *GrantEngine) AuthenticateSession(ctx context.Context, appKey, sessionToken, ip string) (*models.Identity, error) {
	app, err := g.apps.Authenticate(ctx, appKey)
	if err != nil {
		return nil, err
	}

	identity, err := g.credentials.ResolveSessionToken(ctx, sessionToken)
	if err != nil {
		return nil, err
	}

	grant, err := g.RequireGrant(ctx, identity, app)
	if err != nil {
		var gre *GrantRequiredError
		if errors.As(err, &gre) {
			metrics.AuthAttempts.WithLabelValues(metrics.ChannelSessionToken, metrics.OutcomeForbidden).Inc()
		}
		return nil, err
	}

	metrics.AuthAttempts.WithLabelValues(metrics.ChannelSessionToken, metrics.OutcomeSuccess).Inc()
	g.audit.RecordApp(ctx, ActionSessionTokenAuth, ip, identity.UserName, &grant.ID, &app.ID)
	return identity, nil
}
