package audit

import (
	"context"

	"github.com/tkbstudios/tinet/internal/server/models"
)

type Repository interface {
	Add(ctx context.Context, e *models.AuditEntry) error
	AddApp(ctx context.Context, e *models.AppAuditEntry) error
	ListByUserName(ctx context.Context, userName string, limit int) ([]models.AuditEntry, error)
	DeleteAppForUserName(ctx context.Context, userName string) error
	DeleteForUserName(ctx context.Context, userName string) error
}
