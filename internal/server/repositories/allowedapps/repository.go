package allowedapps

import (
	"context"

	"github.com/tkbstudios/tinet/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, grant *models.AllowedApp) (*models.AllowedApp, error)
	Get(ctx context.Context, userID, appID int64) (*models.AllowedApp, error)
	ListByUser(ctx context.Context, userID int64) ([]models.AllowedApp, error)
	Delete(ctx context.Context, userID, appID int64) error
	DeleteForUser(ctx context.Context, userID int64) error
}
