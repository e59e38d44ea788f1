package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/teamvault/teamvault/internal/logging"
	"github.com/teamvault/teamvault/internal/server/access"
	"github.com/teamvault/teamvault/internal/server/audit"
	"github.com/teamvault/teamvault/internal/server/config"
	"github.com/teamvault/teamvault/internal/server/repositories/repomanager"
	"github.com/teamvault/teamvault/internal/server/services"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	gateway *Gateway
	users   *services.UserService
	folders *services.FolderService
	items   *services.ItemService
}

func NewApp(cfg *config.Config) (*App, error) {
	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	cache := access.NewCache()
	resolver := access.NewResolver(db, rm, cache)
	sink := audit.NewFileSink(cfg.AuditLogPath)

	gateway := NewGateway(db, rm, resolver, []byte(cfg.TokenKey), []byte(cfg.MasterKey))

	return &App{
		config:  cfg,
		logger:  logger,
		db:      db,
		gateway: gateway,
		users:   services.NewUserService(db, rm, cache, sink, logger, cfg),
		folders: services.NewFolderService(db, rm, resolver, cache, sink, logger),
		items:   services.NewItemService(db, rm, resolver, sink, logger, cfg),
	}, nil
}

// Gateway exposes authentication, authorization and the payload codec to a
// transport layer.
func (app *App) Gateway() *Gateway { return app.gateway }

func (app *App) Users() *services.UserService     { return app.users }
func (app *App) Folders() *services.FolderService { return app.folders }
func (app *App) Items() *services.ItemService     { return app.items }

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run blocks until the context is cancelled or a termination signal
// arrives, then closes the database.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	<-ctx.Done()

	app.logger.Info(ctx, "Shutting down...")

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, err.Error())
	}
}
