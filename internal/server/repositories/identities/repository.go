package identities

import (
	"context"
	"time"

	"github.com/tkbstudios/tinet/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, identity *models.Identity) (*models.Identity, error)
	GetByID(ctx context.Context, id int64) (*models.Identity, error)
	GetByUserName(ctx context.Context, userName string) (*models.Identity, error)
	GetByAPIKey(ctx context.Context, apiKey string) (*models.Identity, error)
	GetByCalcCredentials(ctx context.Context, userName, calcKey string) (*models.Identity, error)
	SetAPIKey(ctx context.Context, id int64, apiKey string) error
	SetCalcKey(ctx context.Context, id int64, calcKey string) error
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
	Delete(ctx context.Context, id int64) error
}
