package memory

import (
	"context"
	"time"

	"github.com/tkbstudios/tinet/internal/common"
	"github.com/tkbstudios/tinet/internal/server/models"
)

type sessionTokenRepo struct{ t *tables }

func (r *sessionTokenRepo) Create(_ context.Context, token *models.SessionToken) (*models.SessionToken, error) {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	if _, ok := r.t.tokens[token.Token]; ok {
		return nil, common.ErrorConflict
	}
	token.ID = r.t.nextID()
	r.t.tokens[token.Token] = *token

	out := *token
	return &out, nil
}

func (r *sessionTokenRepo) GetByToken(_ context.Context, token string) (*models.SessionToken, error) {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	t, ok := r.t.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &t, nil
}

func (r *sessionTokenRepo) ExpireAllForUser(_ context.Context, userID int64) (int64, error) {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	var n int64
	for k, t := range r.t.tokens {
		if t.UserID != nil && *t.UserID == userID && !t.Expired {
			t.Expired = true
			r.t.tokens[k] = t
			n++
		}
	}
	return n, nil
}

func (r *sessionTokenRepo) DeleteForUser(_ context.Context, userID int64) error {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	for k, t := range r.t.tokens {
		if t.UserID != nil && *t.UserID == userID {
			delete(r.t.tokens, k)
		}
	}
	return nil
}

type webSessionRepo struct{ t *tables }

func (r *webSessionRepo) Create(_ context.Context, s *models.WebSession) error {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	s.CreatedAt = r.t.now()
	r.t.webSessions[s.SessionKey] = *s
	return nil
}

func (r *webSessionRepo) Get(_ context.Context, sessionKey string) (*models.WebSession, error) {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	s, ok := r.t.webSessions[sessionKey]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &s, nil
}

func (r *webSessionRepo) ExpireByKey(_ context.Context, sessionKey string, at time.Time) error {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	if s, ok := r.t.webSessions[sessionKey]; ok && s.ExpireDate.After(at) {
		s.ExpireDate = at
		r.t.webSessions[sessionKey] = s
	}
	return nil
}

func (r *webSessionRepo) DeleteForUser(_ context.Context, userID int64) error {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	for k, s := range r.t.webSessions {
		if s.UserID == userID {
			delete(r.t.webSessions, k)
		}
	}
	return nil
}
