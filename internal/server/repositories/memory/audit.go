package memory

import (
	"context"

	"github.com/tkbstudios/tinet/internal/server/models"
)

type auditRepo struct{ t *tables }

func (r *auditRepo) Add(_ context.Context, e *models.AuditEntry) error {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	e.ID = r.t.nextID()
	e.CreatedAt = r.t.now()
	r.t.audit = append(r.t.audit, *e)
	return nil
}

func (r *auditRepo) AddApp(_ context.Context, e *models.AppAuditEntry) error {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	e.ID = r.t.nextID()
	e.CreatedAt = r.t.now()
	r.t.appAudit = append(r.t.appAudit, *e)
	return nil
}

// ListByUserName walks the log backwards, which is newest first.
func (r *auditRepo) ListByUserName(_ context.Context, userName string, limit int) ([]models.AuditEntry, error) {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	var out []models.AuditEntry
	for i := len(r.t.audit) - 1; i >= 0 && len(out) < limit; i-- {
		if r.t.audit[i].UserName == userName {
			out = append(out, r.t.audit[i])
		}
	}
	return out, nil
}

func (r *auditRepo) DeleteAppForUserName(_ context.Context, userName string) error {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	kept := r.t.appAudit[:0]
	for _, e := range r.t.appAudit {
		if e.UserName != userName {
			kept = append(kept, e)
		}
	}
	r.t.appAudit = kept
	return nil
}

func (r *auditRepo) DeleteForUserName(_ context.Context, userName string) error {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	kept := r.t.audit[:0]
	for _, e := range r.t.audit {
		if e.UserName != userName {
			kept = append(kept, e)
		}
	}
	r.t.audit = kept
	return nil
}
