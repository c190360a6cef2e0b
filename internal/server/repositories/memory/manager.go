// Package memory is an in-process RepositoryManager. All repositories vended
// by one manager share the same tables; the DBTX argument is ignored, so a
// "transaction" offers no isolation. Uniqueness and not-found behaviour
// match the Postgres repositories.
package memory

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/tkbstudios/tinet/internal/dbx"
	"github.com/tkbstudios/tinet/internal/server/models"
	"github.com/tkbstudios/tinet/internal/server/repositories/allowedapps"
	"github.com/tkbstudios/tinet/internal/server/repositories/appkeys"
	"github.com/tkbstudios/tinet/internal/server/repositories/audit"
	"github.com/tkbstudios/tinet/internal/server/repositories/identities"
	"github.com/tkbstudios/tinet/internal/server/repositories/leaderboards"
	"github.com/tkbstudios/tinet/internal/server/repositories/sessiontokens"
	"github.com/tkbstudios/tinet/internal/server/repositories/websessions"
)

type entryKey struct {
	userID        int64
	leaderboardID int64
}

type tables struct {
	mu  sync.Mutex
	seq int64
	now func() time.Time

	users        map[int64]models.Identity
	tokens       map[string]models.SessionToken
	webSessions  map[string]models.WebSession
	appKeys      map[int64]models.AppAPIKey
	grants       map[int64]models.AllowedApp
	audit        []models.AuditEntry
	appAudit     []models.AppAuditEntry
	leaderboards map[int64]models.Leaderboard
	entries      map[entryKey]models.LeaderboardEntry
}

func (t *tables) nextID() int64 {
	t.seq++
	return t.seq
}

// InMemoryRepositoryManager implements repomanager.RepositoryManager.
type InMemoryRepositoryManager struct {
	t *tables
}

func NewInMemoryRepositoryManager() *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{t: &tables{
		now:          time.Now,
		users:        make(map[int64]models.Identity),
		tokens:       make(map[string]models.SessionToken),
		webSessions:  make(map[string]models.WebSession),
		appKeys:      make(map[int64]models.AppAPIKey),
		grants:       make(map[int64]models.AllowedApp),
		leaderboards: make(map[int64]models.Leaderboard),
		entries:      make(map[entryKey]models.LeaderboardEntry),
	}}
}

func (m *InMemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error {
	return nil
}

func (m *InMemoryRepositoryManager) Identities(dbx.DBTX) identities.Repository {
	return &identityRepo{m.t}
}

func (m *InMemoryRepositoryManager) SessionTokens(dbx.DBTX) sessiontokens.Repository {
	return &sessionTokenRepo{m.t}
}

func (m *InMemoryRepositoryManager) WebSessions(dbx.DBTX) websessions.Repository {
	return &webSessionRepo{m.t}
}

func (m *InMemoryRepositoryManager) AppKeys(dbx.DBTX) appkeys.Repository {
	return &appKeyRepo{m.t}
}

func (m *InMemoryRepositoryManager) AllowedApps(dbx.DBTX) allowedapps.Repository {
	return &allowedAppRepo{m.t}
}

func (m *InMemoryRepositoryManager) Audit(dbx.DBTX) audit.Repository {
	return &auditRepo{m.t}
}

func (m *InMemoryRepositoryManager) Leaderboards(dbx.DBTX) leaderboards.Repository {
	return &leaderboardRepo{m.t}
}

// AuditEntries returns a copy of the account audit log.
func (m *InMemoryRepositoryManager) AuditEntries() []models.AuditEntry {
	m.t.mu.Lock()
	defer m.t.mu.Unlock()
	return append([]models.AuditEntry(nil), m.t.audit...)
}

// AppAuditEntries returns a copy of the app audit log.
func (m *InMemoryRepositoryManager) AppAuditEntries() []models.AppAuditEntry {
	m.t.mu.Lock()
	defer m.t.mu.Unlock()
	return append([]models.AppAuditEntry(nil), m.t.appAudit...)
}

// GrantCount returns how many grants exist for (userID, appID).
func (m *InMemoryRepositoryManager) GrantCount(userID, appID int64) int {
	m.t.mu.Lock()
	defer m.t.mu.Unlock()
	n := 0
	for _, g := range m.t.grants {
		if g.UserID == userID && g.AppID == appID {
			n++
		}
	}
	return n
}
