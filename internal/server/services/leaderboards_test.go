package services

import (
	"context"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tkbstudios/tinet/internal/common"
	"github.com/tkbstudios/tinet/internal/dbx"
	"github.com/tkbstudios/tinet/internal/server/metrics"
	"github.com/tkbstudios/tinet/internal/server/models"
	"github.com/tkbstudios/tinet/internal/server/repositories/leaderboards"
	"github.com/tkbstudios/tinet/internal/server/repositories/memory"
	"github.com/tkbstudios/tinet/internal/server/repositories/repomanager"
)

type ledgerSetup struct {
	*fixture
	app *models.AppAPIKey
	lb  *models.Leaderboard
}

func newLedgerSetup(t *testing.T, f *fixture) *ledgerSetup {
	t.Helper()
	dev := f.register(t, "dev", "pw")
	f.register(t, "bob", "pw")
	app := f.createApp(t, dev, "game")
	lb, err := f.ledger.CreateLeaderboard(context.Background(), app.Key, "", "")
	require.NoError(t, err)
	return &ledgerSetup{fixture: f, app: app, lb: lb}
}

func TestCreateLeaderboard(t *testing.T) {
	s := newLedgerSetup(t, newFixture(t))
	ctx := context.Background()

	assert.Equal(t, models.DefaultLeaderboardTitle, s.lb.Title)
	assert.Equal(t, models.DefaultLeaderboardDescription, s.lb.Description)
	assert.True(t, s.lb.OwnedByApp(s.app.ID))

	_, err := s.ledger.CreateLeaderboard(ctx, s.app.Key, "a title that is way too long", "")
	assert.ErrorIs(t, err, common.ErrorValidation)

	_, err = s.ledger.CreateLeaderboard(ctx, "nope", "t", "d")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	named, err := s.ledger.CreateLeaderboard(ctx, s.app.Key, "Top", "Best runs")
	require.NoError(t, err)

	all, err := s.ledger.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, named.ID, all[1].ID)
}

func TestIncrement(t *testing.T) {
	s := newLedgerSetup(t, newFixture(t))
	ctx := context.Background()
	before := testutil.ToFloat64(metrics.LeaderboardMutations.WithLabelValues("increment", "true"))

	res, err := s.ledger.Increment(ctx, s.app.Key, s.lb.ID, "bob", 5)
	require.NoError(t, err)
	assert.Equal(t, &ScoreResult{Score: 5, Created: true}, res)

	res, err = s.ledger.Increment(ctx, s.app.Key, s.lb.ID, "bob", 7)
	require.NoError(t, err)
	assert.Equal(t, &ScoreResult{Score: 12}, res)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.LeaderboardMutations.WithLabelValues("increment", "true"))-before)
}

func TestDecrement_SeedsPositiveAndGoesNegative(t *testing.T) {
	s := newLedgerSetup(t, newFixture(t))
	ctx := context.Background()

	res, err := s.ledger.Decrement(ctx, s.app.Key, s.lb.ID, "bob", 3)
	require.NoError(t, err)
	assert.Equal(t, &ScoreResult{Score: 3, Created: true}, res)

	res, err = s.ledger.Decrement(ctx, s.app.Key, s.lb.ID, "bob", 10)
	require.NoError(t, err)
	assert.Equal(t, int64(-7), res.Score)
	assert.False(t, res.Created)
}

func TestSetScore_Assigns(t *testing.T) {
	s := newLedgerSetup(t, newFixture(t))
	ctx := context.Background()

	res, err := s.ledger.SetScore(ctx, s.app.Key, s.lb.ID, "bob", 40)
	require.NoError(t, err)
	assert.Equal(t, &ScoreResult{Score: 40, Created: true}, res)

	res, err = s.ledger.SetScore(ctx, s.app.Key, s.lb.ID, "bob", 3)
	require.NoError(t, err)
	assert.Equal(t, &ScoreResult{Score: 3}, res)
}

func TestMutate_Authorization(t *testing.T) {
	s := newLedgerSetup(t, newFixture(t))
	ctx := context.Background()
	other := s.createApp(t, s.register(t, "eve", "pw"), "other")

	_, err := s.ledger.Increment(ctx, "bad-key", s.lb.ID, "bob", 1)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	_, err = s.ledger.Increment(ctx, other.Key, s.lb.ID, "bob", 1)
	assert.ErrorIs(t, err, ErrLeaderboardMismatch)
	assert.ErrorIs(t, err, common.ErrorForbidden)

	_, err = s.ledger.Increment(ctx, s.app.Key, s.lb.ID+1000, "bob", 1)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = s.ledger.Increment(ctx, s.app.Key, s.lb.ID, "nobody", 1)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	require.NoError(t, s.apps.Expire(ctx, &models.Identity{ID: *s.app.UserID}, s.app.Key))
	_, err = s.ledger.Increment(ctx, s.app.Key, s.lb.ID, "bob", 1)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestDeleteEntry(t *testing.T) {
	s := newLedgerSetup(t, newFixture(t))
	ctx := context.Background()

	_, err := s.ledger.Increment(ctx, s.app.Key, s.lb.ID, "bob", 1)
	require.NoError(t, err)

	require.NoError(t, s.ledger.Delete(ctx, s.app.Key, s.lb.ID, "bob"))

	err = s.ledger.Delete(ctx, s.app.Key, s.lb.ID, "bob")
	assert.ErrorIs(t, err, ErrEntryNotFound)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestGet_OrdersByScore(t *testing.T) {
	s := newLedgerSetup(t, newFixture(t))
	ctx := context.Background()
	s.register(t, "carol", "pw")

	_, err := s.ledger.Increment(ctx, s.app.Key, s.lb.ID, "bob", 5)
	require.NoError(t, err)
	_, err = s.ledger.Increment(ctx, s.app.Key, s.lb.ID, "carol", 9)
	require.NoError(t, err)

	view, err := s.ledger.Get(ctx, s.lb.ID)
	require.NoError(t, err)
	require.Len(t, view.Entries, 2)
	assert.Equal(t, "carol", view.Entries[0].UserName)
	assert.Equal(t, int64(9), view.Entries[0].Score)
	assert.Equal(t, "bob", view.Entries[1].UserName)

	_, err = s.ledger.Get(ctx, s.lb.ID+1000)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

// racingEntries fails the first AddScore as if the entry were missing and
// lets a competing writer create it just before our insert.
type racingEntries struct {
	leaderboards.Repository
	mu      sync.Mutex
	raced   bool
	creates int
}

func (r *racingEntries) AddScore(ctx context.Context, userID, leaderboardID, delta int64) (int64, error) {
	r.mu.Lock()
	first := !r.raced
	r.mu.Unlock()
	if first {
		return 0, common.ErrorNotFound
	}
	return r.Repository.AddScore(ctx, userID, leaderboardID, delta)
}

func (r *racingEntries) CreateEntry(ctx context.Context, e *models.LeaderboardEntry) (*models.LeaderboardEntry, error) {
	r.mu.Lock()
	r.creates++
	if !r.raced {
		r.raced = true
		r.mu.Unlock()
		competitor := *e
		if _, err := r.Repository.CreateEntry(ctx, &competitor); err != nil {
			return nil, err
		}
		return r.Repository.CreateEntry(ctx, e)
	}
	r.mu.Unlock()
	return r.Repository.CreateEntry(ctx, e)
}

type racingEntriesManager struct {
	*memory.InMemoryRepositoryManager
	entries *racingEntries
}

func (m racingEntriesManager) Leaderboards(db dbx.DBTX) leaderboards.Repository {
	m.entries.Repository = m.InMemoryRepositoryManager.Leaderboards(db)
	return m.entries
}

func TestIncrement_RetriesAfterLostCreateRace(t *testing.T) {
	entries := &racingEntries{}
	f := newFixtureWith(t, func(m *memory.InMemoryRepositoryManager) repomanager.RepositoryManager {
		return racingEntriesManager{InMemoryRepositoryManager: m, entries: entries}
	})
	s := newLedgerSetup(t, f)

	res, err := s.ledger.Increment(context.Background(), s.app.Key, s.lb.ID, "bob", 4)
	require.NoError(t, err)
	assert.Equal(t, &ScoreResult{Score: 8}, res, "competitor seeded 4, retry added 4")
	assert.Equal(t, 1, entries.creates)
}

func TestIncrement_Concurrent(t *testing.T) {
	s := newLedgerSetup(t, newFixture(t))
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.ledger.Increment(ctx, s.app.Key, s.lb.ID, "bob", 1)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	view, err := s.ledger.Get(ctx, s.lb.ID)
	require.NoError(t, err)
	require.Len(t, view.Entries, 1)
	assert.Equal(t, int64(n), view.Entries[0].Score)
}
