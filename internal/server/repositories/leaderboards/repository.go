package leaderboards

import (
	"context"

	"github.com/tkbstudios/tinet/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, lb *models.Leaderboard) (*models.Leaderboard, error)
	Get(ctx context.Context, id int64) (*models.Leaderboard, error)
	List(ctx context.Context) ([]models.Leaderboard, error)
	Entries(ctx context.Context, leaderboardID int64) ([]models.LeaderboardEntry, error)

	CreateEntry(ctx context.Context, e *models.LeaderboardEntry) (*models.LeaderboardEntry, error)
	AddScore(ctx context.Context, userID, leaderboardID, delta int64) (int64, error)
	SetScore(ctx context.Context, userID, leaderboardID, score int64) (int64, error)
	DeleteEntry(ctx context.Context, userID, leaderboardID int64) error
	DeleteEntriesForUser(ctx context.Context, userID int64) error
}
