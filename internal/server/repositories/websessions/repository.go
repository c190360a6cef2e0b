package websessions

import (
	"context"
	"time"

	"github.com/tkbstudios/tinet/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, s *models.WebSession) error
	Get(ctx context.Context, sessionKey string) (*models.WebSession, error)
	ExpireByKey(ctx context.Context, sessionKey string, at time.Time) error
	DeleteForUser(ctx context.Context, userID int64) error
}
