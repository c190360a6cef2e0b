package appkeys

import (
	"context"
	"time"

	"github.com/tkbstudios/tinet/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, key *models.AppAPIKey) (*models.AppAPIKey, error)
	GetByKey(ctx context.Context, key string) (*models.AppAPIKey, error)
	GetByID(ctx context.Context, id int64) (*models.AppAPIKey, error)
	ListByOwner(ctx context.Context, userID int64) ([]models.AppAPIKey, error)
	TouchLastUsed(ctx context.Context, id int64, at time.Time) error
	Expire(ctx context.Context, id int64) error
	DeleteByOwner(ctx context.Context, userID int64, key string) error
	DeleteForUser(ctx context.Context, userID int64) error
}
