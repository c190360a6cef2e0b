package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"github.com/tkbstudios/tinet/internal/logging"
	"github.com/tkbstudios/tinet/internal/server/blobstore"
	"github.com/tkbstudios/tinet/internal/server/config"
	"github.com/tkbstudios/tinet/internal/server/models"
	"github.com/tkbstudios/tinet/internal/server/repositories/memory"
	"github.com/tkbstudios/tinet/internal/server/repositories/repomanager"
	"golang.org/x/crypto/bcrypt"
)

const testIP = "127.0.0.1"

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SecretKey = "test-secret"
	return cfg
}

type recordingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (r *recordingLogger) Debug(context.Context, string, ...any) {}
func (r *recordingLogger) Info(context.Context, string, ...any)  {}
func (r *recordingLogger) Error(context.Context, string, ...any) {}

func (r *recordingLogger) Warn(_ context.Context, msg string, _ ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warns = append(r.warns, msg)
}

func (r *recordingLogger) With(...any) logging.Logger { return r }

func (r *recordingLogger) Warns() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.warns...)
}

type fixture struct {
	db     *sql.DB
	mock   sqlmock.Sqlmock
	mem    *memory.InMemoryRepositoryManager
	cfg    *config.Config
	logger *recordingLogger
	blobs  *blobstore.MemoryStore

	audit    *AuditLog
	creds    *CredentialStore
	accounts *AccountService
	apps     *AppRegistry
	grants   *GrantEngine
	ledger   *LeaderboardLedger
	files    *FileStore
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWith(t, nil)
}

// newFixtureWith builds every service over one in-memory store. wrap may
// replace the manager handed to the services, e.g. to inject failures.
func newFixtureWith(t *testing.T, wrap func(*memory.InMemoryRepositoryManager) repomanager.RepositoryManager) *fixture {
	t.Helper()
	db, mock := newSQLMockDB(t)

	f := &fixture{
		db:     db,
		mock:   mock,
		mem:    memory.NewInMemoryRepositoryManager(),
		cfg:    testConfig(),
		logger: &recordingLogger{},
		blobs:  blobstore.NewMemoryStore(),
	}

	var rm repomanager.RepositoryManager = f.mem
	if wrap != nil {
		rm = wrap(f.mem)
	}

	f.audit = NewAuditLog(db, rm, f.logger)
	f.creds = NewCredentialStore(db, rm, f.cfg, f.audit)
	f.accounts = NewAccountService(db, rm, f.cfg, f.audit)
	f.accounts.passwordCost = bcrypt.MinCost
	f.apps = NewAppRegistry(db, rm)
	f.grants = NewGrantEngine(db, rm, f.cfg, f.apps, f.accounts, f.creds, f.audit)
	f.ledger = NewLeaderboardLedger(db, rm, f.apps)
	f.files = NewFileStore(f.blobs, f.cfg, f.logger)
	return f
}

func (f *fixture) register(t *testing.T, userName, password string) *models.Identity {
	t.Helper()
	u, err := f.accounts.Register(context.Background(), userName, userName+"@example.com", password)
	require.NoError(t, err)
	return u
}

func (f *fixture) createApp(t *testing.T, owner *models.Identity, name string) *models.AppAPIKey {
	t.Helper()
	app, err := f.apps.CreateAppKey(context.Background(), owner, name, "test app")
	require.NoError(t, err)
	return app
}

func auditActions(entries []models.AuditEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Action)
	}
	return out
}

func appAuditActions(entries []models.AppAuditEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Action)
	}
	return out
}
