// Package server wires the share-places components together: storage,
// gateways, services and the HTTP server, and handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/shareplaces/internal/logging"
	"github.com/dmitrijs2005/shareplaces/internal/metrics"
	"github.com/dmitrijs2005/shareplaces/internal/server/blobstore"
	"github.com/dmitrijs2005/shareplaces/internal/server/config"
	"github.com/dmitrijs2005/shareplaces/internal/server/geocoding"
	"github.com/dmitrijs2005/shareplaces/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/shareplaces/internal/server/rest"
	"github.com/dmitrijs2005/shareplaces/internal/server/services"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type App struct {
	config       *config.Config
	logger       logging.Logger
	db           *sql.DB
	userService  *services.UserService
	placeService *services.PlaceService
	blobs        services.BlobStore
	metrics      *metrics.Metrics
}

// NewApp opens storage, applies migrations and builds the services.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, c.LogFormat, slog.LevelInfo)

	rm, db, err := openRepositories(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	if err := rm.RunMigrations(ctx); err != nil {
		closeDB(db)
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	blobs, err := blobstore.New(ctx, blobstore.Config{
		Bucket:          c.S3Bucket,
		Region:          c.S3Region,
		AccessKeyID:     c.S3AccessKeyID,
		SecretAccessKey: c.S3SecretAccessKey,
		BaseEndpoint:    c.S3BaseEndpoint,
		PublicBaseURL:   c.S3PublicBaseURL,
	})
	if err != nil {
		closeDB(db)
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	if c.GeoAPIKey == "" {
		logger.Warn(ctx, "GEO_API_KEY is empty, address lookups will fail")
	}
	geo := geocoding.NewClient(c.GeoEndpoint, c.GeoAPIKey, c.GeoTimeout)

	m := metrics.New()
	us := services.NewUserService(rm, blobs, logger.With("module", "users"), c)
	ps := services.NewPlaceService(rm, geo, blobs, logger.With("module", "places"), m)

	return &App{
		config:       c,
		logger:       logger,
		db:           db,
		userService:  us,
		placeService: ps,
		blobs:        blobs,
		metrics:      m,
	}, nil
}

// openRepositories picks the store by DSN. The returned *sql.DB is nil for
// the in-memory store.
func openRepositories(dsn string) (repomanager.RepositoryManager, *sql.DB, error) {
	if dsn == config.MemoryDSN {
		return repomanager.NewInMemoryRepositoryManager(), nil, nil
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, nil, err
	}
	return repomanager.NewPostgresRepositoryManager(db), db, nil
}

func closeDB(db *sql.DB) {
	if db != nil {
		_ = db.Close()
	}
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
	s := rest.NewServer(app.config, app.logger, app.userService, app.placeService, app.blobs, app.metrics)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until a termination signal arrives or ctx is cancelled.
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

	closeDB(app.db)
	app.logger.Info(context.Background(), "App stopped")
}
