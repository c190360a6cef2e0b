package memory

import (
	"context"
	"sort"
	"time"

	"github.com/tkbstudios/tinet/internal/common"
	"github.com/tkbstudios/tinet/internal/server/models"
)

type appKeyRepo struct{ t *tables }

func (r *appKeyRepo) Create(_ context.Context, key *models.AppAPIKey) (*models.AppAPIKey, error) {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	for _, k := range r.t.appKeys {
		if k.Key == key.Key {
			return nil, common.ErrorConflict
		}
	}
	key.ID = r.t.nextID()
	r.t.appKeys[key.ID] = *key

	out := *key
	return &out, nil
}

func (r *appKeyRepo) GetByKey(_ context.Context, key string) (*models.AppAPIKey, error) {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	if key == "" {
		return nil, common.ErrorNotFound
	}
	for _, k := range r.t.appKeys {
		if k.Key == key {
			out := k
			return &out, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *appKeyRepo) GetByID(_ context.Context, id int64) (*models.AppAPIKey, error) {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	k, ok := r.t.appKeys[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &k, nil
}

func (r *appKeyRepo) ListByOwner(_ context.Context, userID int64) ([]models.AppAPIKey, error) {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	var out []models.AppAPIKey
	for _, k := range r.t.appKeys {
		if k.OwnedBy(userID) {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *appKeyRepo) update(id int64, fn func(*models.AppAPIKey)) error {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	k, ok := r.t.appKeys[id]
	if !ok {
		return common.ErrorNotFound
	}
	fn(&k)
	r.t.appKeys[id] = k
	return nil
}

func (r *appKeyRepo) TouchLastUsed(_ context.Context, id int64, at time.Time) error {
	return r.update(id, func(k *models.AppAPIKey) { k.LastUsed = at })
}

func (r *appKeyRepo) Expire(_ context.Context, id int64) error {
	return r.update(id, func(k *models.AppAPIKey) { k.Expired = true })
}

// deleteAppLocked drops an app key with the rows that cascade from it.
func (t *tables) deleteAppLocked(id int64) {
	delete(t.appKeys, id)
	for gid, g := range t.grants {
		if g.AppID == id {
			delete(t.grants, gid)
			t.nullGrantLocked(gid)
		}
	}
	for i := range t.appAudit {
		if t.appAudit[i].AppID != nil && *t.appAudit[i].AppID == id {
			t.appAudit[i].AppID = nil
		}
	}
	for lid, lb := range t.leaderboards {
		if lb.OwnedByApp(id) {
			delete(t.leaderboards, lid)
			for k := range t.entries {
				if k.leaderboardID == lid {
					delete(t.entries, k)
				}
			}
		}
	}
}

func (r *appKeyRepo) DeleteByOwner(_ context.Context, userID int64, key string) error {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	for id, k := range r.t.appKeys {
		if k.Key == key && k.OwnedBy(userID) {
			r.t.deleteAppLocked(id)
			return nil
		}
	}
	return common.ErrorNotFound
}

func (r *appKeyRepo) DeleteForUser(_ context.Context, userID int64) error {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	for id, k := range r.t.appKeys {
		if k.OwnedBy(userID) {
			r.t.deleteAppLocked(id)
		}
	}
	return nil
}

type allowedAppRepo struct{ t *tables }

func (r *allowedAppRepo) Create(_ context.Context, grant *models.AllowedApp) (*models.AllowedApp, error) {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	for _, g := range r.t.grants {
		if g.UserID == grant.UserID && g.AppID == grant.AppID {
			return nil, common.ErrorConflict
		}
	}
	grant.ID = r.t.nextID()
	grant.GrantedDate = r.t.now()
	r.t.grants[grant.ID] = *grant

	out := *grant
	return &out, nil
}

func (r *allowedAppRepo) Get(_ context.Context, userID, appID int64) (*models.AllowedApp, error) {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	for _, g := range r.t.grants {
		if g.UserID == userID && g.AppID == appID {
			out := g
			return &out, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *allowedAppRepo) ListByUser(_ context.Context, userID int64) ([]models.AllowedApp, error) {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	var out []models.AllowedApp
	for _, g := range r.t.grants {
		if g.UserID != userID {
			continue
		}
		if k, ok := r.t.appKeys[g.AppID]; ok {
			g.AppName = k.Name
			g.AppDescription = k.Description
		}
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].GrantedDate.Equal(out[j].GrantedDate) {
			return out[i].ID > out[j].ID
		}
		return out[i].GrantedDate.After(out[j].GrantedDate)
	})
	return out, nil
}

func (r *allowedAppRepo) Delete(_ context.Context, userID, appID int64) error {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	for id, g := range r.t.grants {
		if g.UserID == userID && g.AppID == appID {
			delete(r.t.grants, id)
			r.t.nullGrantLocked(id)
			return nil
		}
	}
	return common.ErrorNotFound
}

func (r *allowedAppRepo) DeleteForUser(_ context.Context, userID int64) error {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	for id, g := range r.t.grants {
		if g.UserID == userID {
			delete(r.t.grants, id)
			r.t.nullGrantLocked(id)
		}
	}
	return nil
}

// nullGrantLocked mirrors ON DELETE SET NULL on app audit rows.
func (t *tables) nullGrantLocked(grantID int64) {
	for i := range t.appAudit {
		if t.appAudit[i].AllowedAppID != nil && *t.appAudit[i].AllowedAppID == grantID {
			t.appAudit[i].AllowedAppID = nil
		}
	}
}
