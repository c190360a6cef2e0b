package memory

import (
	"context"
	"sort"

	"github.com/tkbstudios/tinet/internal/common"
	"github.com/tkbstudios/tinet/internal/server/models"
)

type leaderboardRepo struct{ t *tables }

func (r *leaderboardRepo) Create(_ context.Context, lb *models.Leaderboard) (*models.Leaderboard, error) {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	lb.ID = r.t.nextID()
	r.t.leaderboards[lb.ID] = *lb

	out := *lb
	return &out, nil
}

func (r *leaderboardRepo) Get(_ context.Context, id int64) (*models.Leaderboard, error) {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	lb, ok := r.t.leaderboards[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &lb, nil
}

func (r *leaderboardRepo) List(_ context.Context) ([]models.Leaderboard, error) {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	out := make([]models.Leaderboard, 0, len(r.t.leaderboards))
	for _, lb := range r.t.leaderboards {
		out = append(out, lb)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *leaderboardRepo) Entries(_ context.Context, leaderboardID int64) ([]models.LeaderboardEntry, error) {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	var out []models.LeaderboardEntry
	for k, e := range r.t.entries {
		if k.leaderboardID != leaderboardID {
			continue
		}
		if u, ok := r.t.users[e.UserID]; ok {
			e.UserName = u.UserName
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score == out[j].Score {
			return out[i].ID < out[j].ID
		}
		return out[i].Score > out[j].Score
	})
	return out, nil
}

func (r *leaderboardRepo) CreateEntry(_ context.Context, e *models.LeaderboardEntry) (*models.LeaderboardEntry, error) {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	k := entryKey{userID: e.UserID, leaderboardID: e.LeaderboardID}
	if _, ok := r.t.entries[k]; ok {
		return nil, common.ErrorConflict
	}
	e.ID = r.t.nextID()
	r.t.entries[k] = *e

	out := *e
	return &out, nil
}

func (r *leaderboardRepo) mutate(userID, leaderboardID int64, fn func(int64) int64) (int64, error) {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	k := entryKey{userID: userID, leaderboardID: leaderboardID}
	e, ok := r.t.entries[k]
	if !ok {
		return 0, common.ErrorNotFound
	}
	e.Score = fn(e.Score)
	r.t.entries[k] = e
	return e.Score, nil
}

func (r *leaderboardRepo) AddScore(_ context.Context, userID, leaderboardID, delta int64) (int64, error) {
	return r.mutate(userID, leaderboardID, func(s int64) int64 { return s + delta })
}

func (r *leaderboardRepo) SetScore(_ context.Context, userID, leaderboardID, score int64) (int64, error) {
	return r.mutate(userID, leaderboardID, func(int64) int64 { return score })
}

func (r *leaderboardRepo) DeleteEntry(_ context.Context, userID, leaderboardID int64) error {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	k := entryKey{userID: userID, leaderboardID: leaderboardID}
	if _, ok := r.t.entries[k]; !ok {
		return common.ErrorNotFound
	}
	delete(r.t.entries, k)
	return nil
}

func (r *leaderboardRepo) DeleteEntriesForUser(_ context.Context, userID int64) error {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	for k := range r.t.entries {
		if k.userID == userID {
			delete(r.t.entries, k)
		}
	}
	return nil
}
