package memory

import (
	"context"
	"time"

	"github.com/tkbstudios/tinet/internal/common"
	"github.com/tkbstudios/tinet/internal/server/models"
)

type identityRepo struct{ t *tables }

func (r *identityRepo) Create(_ context.Context, identity *models.Identity) (*models.Identity, error) {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	for _, u := range r.t.users {
		if u.UserName == identity.UserName {
			return nil, common.ErrorConflict
		}
	}

	identity.ID = r.t.nextID()
	identity.DateJoined = r.t.now()
	r.t.users[identity.ID] = *identity

	out := *identity
	return &out, nil
}

func (r *identityRepo) find(match func(models.Identity) bool) (*models.Identity, error) {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	for _, u := range r.t.users {
		if match(u) {
			out := u
			return &out, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *identityRepo) GetByID(_ context.Context, id int64) (*models.Identity, error) {
	return r.find(func(u models.Identity) bool { return u.ID == id })
}

func (r *identityRepo) GetByUserName(_ context.Context, userName string) (*models.Identity, error) {
	return r.find(func(u models.Identity) bool { return u.UserName == userName })
}

func (r *identityRepo) GetByAPIKey(_ context.Context, apiKey string) (*models.Identity, error) {
	if apiKey == "" {
		return nil, common.ErrorNotFound
	}
	return r.find(func(u models.Identity) bool { return u.APIKey == apiKey })
}

func (r *identityRepo) GetByCalcCredentials(_ context.Context, userName, calcKey string) (*models.Identity, error) {
	if calcKey == "" {
		return nil, common.ErrorNotFound
	}
	return r.find(func(u models.Identity) bool { return u.UserName == userName && u.CalcKey == calcKey })
}

func (r *identityRepo) update(id int64, fn func(*models.Identity)) error {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	u, ok := r.t.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	fn(&u)
	r.t.users[id] = u
	return nil
}

func (r *identityRepo) SetAPIKey(_ context.Context, id int64, apiKey string) error {
	return r.update(id, func(u *models.Identity) { u.APIKey = apiKey })
}

func (r *identityRepo) SetCalcKey(_ context.Context, id int64, calcKey string) error {
	return r.update(id, func(u *models.Identity) { u.CalcKey = calcKey })
}

func (r *identityRepo) TouchLastLogin(_ context.Context, id int64, at time.Time) error {
	return r.update(id, func(u *models.Identity) { u.LastLogin = &at })
}

func (r *identityRepo) Delete(_ context.Context, id int64) error {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	if _, ok := r.t.users[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.t.users, id)
	return nil
}
