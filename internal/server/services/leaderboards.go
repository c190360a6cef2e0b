package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tkbstudios/tinet/internal/common"
	"github.com/tkbstudios/tinet/internal/server/metrics"
	"github.com/tkbstudios/tinet/internal/server/models"
	"github.com/tkbstudios/tinet/internal/server/repositories/leaderboards"
	"github.com/tkbstudios/tinet/internal/server/repositories/repomanager"
)

// ScoreOp names a ledger mutation.
type ScoreOp string

const (
	OpIncrement ScoreOp = "increment"
	OpDecrement ScoreOp = "decrement"
	OpSet       ScoreOp = "set"
	OpDelete    ScoreOp = "delete"
)

var (
	ErrLeaderboardMismatch = fmt.Errorf("%w: Leaderboard does not match the App API Key", common.ErrorForbidden)
	ErrEntryNotFound       = fmt.Errorf("%w: Leaderboard entry does not exist for the given username", common.ErrorNotFound)
	ErrLeaderboardNotFound = fmt.Errorf("%w: Leaderboard does not exist", common.ErrorNotFound)
	ErrUserNotFound        = fmt.Errorf("%w: User does not exist", common.ErrorNotFound)
)

// maxCreateRaceRetries bounds how often a lost create race is retried.
const maxCreateRaceRetries = 3

// ScoreResult is the state of an entry after a mutation.
type ScoreResult struct {
	Score   int64
	Created bool
}

// LeaderboardView is a leaderboard with its entries, best score first.
type LeaderboardView struct {
	Leaderboard *models.Leaderboard
	Entries     []models.LeaderboardEntry
}

// LeaderboardLedger keeps per-user scores on app-owned leaderboards.
type LeaderboardLedger struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	apps        *AppRegistry
}

func NewLeaderboardLedger(db *sql.DB, m repomanager.RepositoryManager, apps *AppRegistry) *LeaderboardLedger {
	return &LeaderboardLedger{
		db:          db,
		repomanager: m,
		apps:        apps,
	}
}

// authorize checks, in order, the app key, leaderboard ownership and the
// target user, and returns the user.
func (l *LeaderboardLedger) authorize(ctx context.Context, appKey string, leaderboardID int64, userName string) (*models.Identity, error) {
	app, err := l.apps.Authenticate(ctx, appKey)
	if err != nil {
		return nil, err
	}

	lb, err := l.repomanager.Leaderboards(l.db).Get(ctx, leaderboardID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, ErrLeaderboardNotFound
		}
		return nil, fmt.Errorf("error searching leaderboard: %w", err)
	}
	if !lb.OwnedByApp(app.ID) {
		return nil, ErrLeaderboardMismatch
	}

	identity, err := l.repomanager.Identities(l.db).GetByUserName(ctx, userName)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}
	return identity, nil
}

// Increment adds count to the entry, creating it with score count.
func (l *LeaderboardLedger) Increment(ctx context.Context, appKey string, leaderboardID int64, userName string, count int64) (*ScoreResult, error) {
	return l.mutate(ctx, OpIncrement, appKey, leaderboardID, userName, count)
}

// Decrement subtracts count from an existing entry. A new entry still starts
// at count.
func (l *LeaderboardLedger) Decrement(ctx context.Context, appKey string, leaderboardID int64, userName string, count int64) (*ScoreResult, error) {
	return l.mutate(ctx, OpDecrement, appKey, leaderboardID, userName, count)
}

// SetScore assigns count, creating the entry if needed.
func (l *LeaderboardLedger) SetScore(ctx context.Context, appKey string, leaderboardID int64, userName string, count int64) (*ScoreResult, error) {
	return l.mutate(ctx, OpSet, appKey, leaderboardID, userName, count)
}

func (l *LeaderboardLedger) mutate(ctx context.Context, op ScoreOp, appKey string, leaderboardID int64, userName string, count int64) (*ScoreResult, error) {
	identity, err := l.authorize(ctx, appKey, leaderboardID, userName)
	if err != nil {
		return nil, err
	}

	repo := l.repomanager.Leaderboards(l.db)
	for attempt := 0; attempt < maxCreateRaceRetries; attempt++ {
		score, err := apply(ctx, repo, op, identity.ID, leaderboardID, count)
		if err == nil {
			metrics.LeaderboardMutations.WithLabelValues(string(op), "false").Inc()
			return &ScoreResult{Score: score}, nil
		}
		if !errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("error updating score: %w", err)
		}

		entry, err := repo.CreateEntry(ctx, &models.LeaderboardEntry{
			UserID:        identity.ID,
			LeaderboardID: leaderboardID,
			Score:         count,
		})
		if err == nil {
			metrics.LeaderboardMutations.WithLabelValues(string(op), "true").Inc()
			return &ScoreResult{Score: entry.Score, Created: true}, nil
		}
		if !errors.Is(err, common.ErrorConflict) {
			return nil, fmt.Errorf("error creating entry: %w", err)
		}
		// another request created the entry; mutate it instead
	}
	return nil, fmt.Errorf("%w: entry creation kept conflicting", common.ErrorInternal)
}

func apply(ctx context.Context, repo leaderboards.Repository, op ScoreOp, userID, leaderboardID, count int64) (int64, error) {
	switch op {
	case OpIncrement:
		return repo.AddScore(ctx, userID, leaderboardID, count)
	case OpDecrement:
		return repo.AddScore(ctx, userID, leaderboardID, -count)
	case OpSet:
		return repo.SetScore(ctx, userID, leaderboardID, count)
	}
	return 0, fmt.Errorf("unsupported op %q", op)
}

// Delete removes the entry of userName.
func (l *LeaderboardLedger) Delete(ctx context.Context, appKey string, leaderboardID int64, userName string) error {
	identity, err := l.authorize(ctx, appKey, leaderboardID, userName)
	if err != nil {
		return err
	}
	if err := l.repomanager.Leaderboards(l.db).DeleteEntry(ctx, identity.ID, leaderboardID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return ErrEntryNotFound
		}
		return fmt.Errorf("error deleting entry: %w", err)
	}
	metrics.LeaderboardMutations.WithLabelValues(string(OpDelete), "false").Inc()
	return nil
}

// CreateLeaderboard creates a leaderboard owned by the app presenting
// appKey. Empty fields take the defaults.
func (l *LeaderboardLedger) CreateLeaderboard(ctx context.Context, appKey, title, description string) (*models.Leaderboard, error) {
	app, err := l.apps.Authenticate(ctx, appKey)
	if err != nil {
		return nil, err
	}

	if title == "" {
		title = models.DefaultLeaderboardTitle
	}
	if description == "" {
		description = models.DefaultLeaderboardDescription
	}
	if len(title) > models.MaxLeaderboardTitle {
		return nil, fmt.Errorf("%w: title must be at most %d characters", common.ErrorValidation, models.MaxLeaderboardTitle)
	}
	if len(description) > models.MaxLeaderboardDescription {
		return nil, fmt.Errorf("%w: description must be at most %d characters", common.ErrorValidation, models.MaxLeaderboardDescription)
	}

	appID := app.ID
	lb, err := l.repomanager.Leaderboards(l.db).Create(ctx, &models.Leaderboard{
		Title:       title,
		Description: description,
		AppID:       &appID,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating leaderboard: %w", err)
	}
	return lb, nil
}

// Get returns a leaderboard and its entries.
func (l *LeaderboardLedger) Get(ctx context.Context, id int64) (*LeaderboardView, error) {
	repo := l.repomanager.Leaderboards(l.db)
	lb, err := repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, ErrLeaderboardNotFound
		}
		return nil, fmt.Errorf("error searching leaderboard: %w", err)
	}
	entries, err := repo.Entries(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error listing entries: %w", err)
	}
	return &LeaderboardView{Leaderboard: lb, Entries: entries}, nil
}

// List returns every leaderboard.
func (l *LeaderboardLedger) List(ctx context.Context) ([]models.Leaderboard, error) {
	lbs, err := l.repomanager.Leaderboards(l.db).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing leaderboards: %w", err)
	}
	return lbs, nil
}
