package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/tkbstudios/tinet/internal/common"
	"github.com/tkbstudios/tinet/internal/server/metrics"
	"github.com/tkbstudios/tinet/internal/server/models"
	"github.com/tkbstudios/tinet/internal/server/repositories/repomanager"
)

// AppKeyLength is the length of generated app API keys.
const AppKeyLength = 256

// Column limits of app_api_keys.
const (
	MaxAppNameLength        = 20
	MaxAppDescriptionLength = 100
)

var (
	appNameStrip        = regexp.MustCompile(`[^A-Za-z0-9]`)
	appDescriptionStrip = regexp.MustCompile(`[^A-Za-z0-9 .:;/]`)
)

// SanitizeAppName keeps ASCII letters and digits.
func SanitizeAppName(name string) string {
	return appNameStrip.ReplaceAllString(name, "")
}

// SanitizeAppDescription keeps ASCII letters, digits, spaces and . : ; /
func SanitizeAppDescription(description string) string {
	return appDescriptionStrip.ReplaceAllString(description, "")
}

// AppRegistry manages third-party app keys.
type AppRegistry struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	now         func() time.Time
}

func NewAppRegistry(db *sql.DB, m repomanager.RepositoryManager) *AppRegistry {
	return &AppRegistry{
		db:          db,
		repomanager: m,
		now:         time.Now,
	}
}

// CreateAppKey registers an app owned by owner. Name and description are
// sanitized first; if either ends up empty nothing is stored and
// common.ErrorValidation is returned.
func (r *AppRegistry) CreateAppKey(ctx context.Context, owner *models.Identity, name, description string) (*models.AppAPIKey, error) {
	name = SanitizeAppName(name)
	description = SanitizeAppDescription(description)
	if name == "" || description == "" {
		return nil, fmt.Errorf("%w: name and description must not be empty", common.ErrorValidation)
	}
	if len(name) > MaxAppNameLength || len(description) > MaxAppDescriptionLength {
		return nil, fmt.Errorf("%w: name or description too long", common.ErrorValidation)
	}

	key, err := common.RandomString(AppKeyLength, common.Alphanumeric)
	if err != nil {
		return nil, common.ErrorInternal
	}

	ownerID := owner.ID
	app := &models.AppAPIKey{
		UserID:      &ownerID,
		Name:        name,
		Description: description,
		Key:         key,
		Expires:     models.NeverExpires,
		LastUsed:    r.now(),
	}
	out, err := r.repomanager.AppKeys(r.db).Create(ctx, app)
	if err != nil {
		return nil, fmt.Errorf("error creating app key: %w", err)
	}
	return out, nil
}

// ResolveByKey looks an app up by its key.
func (r *AppRegistry) ResolveByKey(ctx context.Context, key string) (*models.AppAPIKey, error) {
	app, err := r.repomanager.AppKeys(r.db).GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error searching app key: %w", err)
	}
	return app, nil
}

// Get looks an app up by id.
func (r *AppRegistry) Get(ctx context.Context, id int64) (*models.AppAPIKey, error) {
	app, err := r.repomanager.AppKeys(r.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error searching app key: %w", err)
	}
	return app, nil
}

// TouchUsage moves the rolling expiry window of a still valid app. Invalid
// apps are left untouched and reported as common.ErrorUnauthorized.
func (r *AppRegistry) TouchUsage(ctx context.Context, app *models.AppAPIKey) error {
	now := r.now()
	if !app.IsValid(now) {
		return common.ErrorUnauthorized
	}
	if err := r.repomanager.AppKeys(r.db).TouchLastUsed(ctx, app.ID, now); err != nil {
		return fmt.Errorf("error updating app usage: %w", err)
	}
	app.LastUsed = now
	return nil
}

// Authenticate resolves key and touches it. Unknown and invalid keys are
// common.ErrorUnauthorized.
func (r *AppRegistry) Authenticate(ctx context.Context, key string) (*models.AppAPIKey, error) {
	app, err := r.ResolveByKey(ctx, key)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			metrics.AuthAttempts.WithLabelValues(metrics.ChannelAppKey, metrics.OutcomeFailure).Inc()
			return nil, common.ErrorUnauthorized
		}
		metrics.AuthAttempts.WithLabelValues(metrics.ChannelAppKey, metrics.OutcomeError).Inc()
		return nil, err
	}
	if err := r.TouchUsage(ctx, app); err != nil {
		outcome := metrics.OutcomeFailure
		if !errors.Is(err, common.ErrorUnauthorized) {
			outcome = metrics.OutcomeError
		}
		metrics.AuthAttempts.WithLabelValues(metrics.ChannelAppKey, outcome).Inc()
		return nil, err
	}
	metrics.AuthAttempts.WithLabelValues(metrics.ChannelAppKey, metrics.OutcomeSuccess).Inc()
	return app, nil
}

// List returns the apps created by owner.
func (r *AppRegistry) List(ctx context.Context, owner *models.Identity) ([]models.AppAPIKey, error) {
	apps, err := r.repomanager.AppKeys(r.db).ListByOwner(ctx, owner.ID)
	if err != nil {
		return nil, fmt.Errorf("error listing app keys: %w", err)
	}
	return apps, nil
}

// DeleteKey deletes the app identified by key if owner created it. Keys of
// other users are reported as common.ErrorNotFound.
func (r *AppRegistry) DeleteKey(ctx context.Context, owner *models.Identity, key string) error {
	if err := r.repomanager.AppKeys(r.db).DeleteByOwner(ctx, owner.ID, key); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("error deleting app key: %w", err)
	}
	return nil
}

// Expire revokes an app of owner. Expiring twice is not an error.
func (r *AppRegistry) Expire(ctx context.Context, owner *models.Identity, key string) error {
	app, err := r.ResolveByKey(ctx, key)
	if err != nil {
		return err
	}
	if !app.OwnedBy(owner.ID) {
		return common.ErrorNotFound
	}
	if err := r.repomanager.AppKeys(r.db).Expire(ctx, app.ID); err != nil {
		return fmt.Errorf("error expiring app key: %w", err)
	}
	return nil
}
