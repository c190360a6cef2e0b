// Package server initializes and runs the TINET backend. It opens the
// database, applies migrations, connects the blob store, builds the services
// and serves the HTTP API until a termination signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/tkbstudios/tinet/internal/logging"
	"github.com/tkbstudios/tinet/internal/server/blobstore"
	"github.com/tkbstudios/tinet/internal/server/config"
	"github.com/tkbstudios/tinet/internal/server/httpapi"
	"github.com/tkbstudios/tinet/internal/server/repositories/repomanager"
	"github.com/tkbstudios/tinet/internal/server/services"
)

var (
	openDB = sql.Open

	newRepositoryManager = repomanager.NewPostgresRepositoryManager

	newBlobStore = func(ctx context.Context, c *config.Config) (blobstore.Store, error) {
		return blobstore.NewS3Store(ctx, c)
	}
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	services *httpapi.Services
}

// NewServices builds every business service over one repository manager.
func NewServices(db *sql.DB, m repomanager.RepositoryManager, store blobstore.Store, c *config.Config, l logging.Logger) *httpapi.Services {
	audit := services.NewAuditLog(db, m, l)
	creds := services.NewCredentialStore(db, m, c, audit)
	accounts := services.NewAccountService(db, m, c, audit)
	apps := services.NewAppRegistry(db, m)

	return &httpapi.Services{
		Accounts:    accounts,
		Credentials: creds,
		Apps:        apps,
		Grants:      services.NewGrantEngine(db, m, c, apps, accounts, creds, audit),
		Files:       services.NewFileStore(store, c, l),
		Ledger:      services.NewLeaderboardLedger(db, m, apps),
		Audit:       audit,
	}
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	db, err := openDB("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	rm, err := newRepositoryManager(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("db init error: %w", err)
	}

	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	store, err := newBlobStore(ctx, c)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	return &App{
		config:   c,
		logger:   logger,
		db:       db,
		services: NewServices(db, rm, store, c, logger),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewServer(app.config, app.logger, app.services)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until ctx is cancelled or a termination signal arrives.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
