package sessiontokens

import (
	"context"

	"github.com/tkbstudios/tinet/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, token *models.SessionToken) (*models.SessionToken, error)
	GetByToken(ctx context.Context, token string) (*models.SessionToken, error)
	ExpireAllForUser(ctx context.Context, userID int64) (int64, error)
	DeleteForUser(ctx context.Context, userID int64) error
}
