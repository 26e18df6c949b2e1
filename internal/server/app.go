// Package server wires the shipment ledger together: database and
// migrations, object storage, the background task queue, the services, and
// the HTTP and gRPC health listeners. It also handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/shipledger/internal/logging"
	"github.com/dmitrijs2005/shipledger/internal/server/attachments"
	"github.com/dmitrijs2005/shipledger/internal/server/auth"
	"github.com/dmitrijs2005/shipledger/internal/server/config"
	"github.com/dmitrijs2005/shipledger/internal/server/httpapi"
	"github.com/dmitrijs2005/shipledger/internal/server/metrics"
	"github.com/dmitrijs2005/shipledger/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/shipledger/internal/server/services"
	"github.com/dmitrijs2005/shipledger/internal/server/tasks"

	gs "github.com/dmitrijs2005/shipledger/internal/server/grpc"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	queue   *tasks.Queue
	handler *httpapi.Handler
	health  *gs.HealthServer
}

// deps holds what both the server and the bootstrap command need.
type deps struct {
	db      *sql.DB
	rm      repomanager.RepositoryManager
	metrics *metrics.Metrics
	queue   *tasks.Queue
	hasher  *auth.BcryptHasher
	audit   *services.AuditService
}

func newLogger() logging.Logger {
	return logging.NewJSONLogger(os.Stdout, slog.LevelInfo)
}

func openDeps(ctx context.Context, c *config.Config, logger logging.Logger) (*deps, error) {
	db, err := repomanager.OpenPostgres(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	hasher, err := auth.NewBcryptHasher(c.BcryptCost)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("hasher init error: %w", err)
	}

	m := metrics.New()
	m.WatchDB(db)

	q := tasks.NewQueue(c.TaskWorkers, c.TaskQueueSize, c.TaskTimeout, logger, m)

	return &deps{
		db:      db,
		rm:      rm,
		metrics: m,
		queue:   q,
		hasher:  hasher,
		audit:   services.NewAuditService(db, rm, q, logger),
	}, nil
}

func (d *deps) close(ctx context.Context, c *config.Config, logger logging.Logger) {
	if err := d.queue.Shutdown(c.ShutdownTimeout); err != nil {
		logger.Warn(ctx, "task queue shutdown", "err", err)
	}
	if err := d.db.Close(); err != nil {
		logger.Warn(ctx, "db close", "err", err)
	}
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := newLogger()

	d, err := openDeps(ctx, c, logger)
	if err != nil {
		return nil, err
	}

	store, err := attachments.NewS3Store(ctx, attachments.Config{
		Bucket:       c.S3Bucket,
		Region:       c.S3Region,
		Endpoint:     c.S3Endpoint,
		AccessKey:    c.S3AccessKey,
		SecretKey:    c.S3SecretKey,
		PublicURL:    c.S3PublicURL,
		MaxDimension: c.MaxImageDimension,
	}, d.metrics)
	if err != nil {
		d.close(ctx, c, logger)
		return nil, fmt.Errorf("attachment store init error: %w", err)
	}

	signer := auth.NewTokenSigner([]byte(c.JWTSecret))

	as := services.NewAuthService(d.db, d.rm, d.hasher, signer, c.TokenTTL, logger)
	es := services.NewEntryService(d.db, d.rm, store, d.queue, d.audit, logger)
	us := services.NewUserService(d.db, d.rm, d.hasher, d.audit, logger)

	checks := map[string]httpapi.HealthCheck{
		"database": d.db.PingContext,
		"storage":  store.HealthCheck,
	}
	h := httpapi.NewHandler(as, es, us, d.audit, checks, d.metrics, logger)

	var health *gs.HealthServer
	if c.GRPCAddr != "" {
		health = gs.NewHealthServer(c.GRPCAddr, d.db.PingContext, gs.DefaultProbeInterval, logger)
	}

	return &App{config: c, logger: logger, db: d.db, queue: d.queue, handler: h, health: health}, nil
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
	srv := &http.Server{Addr: app.config.HTTPAddr, Handler: app.handler.Router()}

	ln, err := net.Listen("tcp", app.config.HTTPAddr)
	if err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
		return
	}

	app.logger.Info(ctx, "Starting HTTP server", "address", app.config.HTTPAddr)
	if err := app.serveHTTP(ctx, srv, ln); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// serveHTTP serves on ln until ctx is done. It returns only after Shutdown
// has completed, so in-flight requests finish before the caller closes the
// queue and the database under them.
func (app *App) serveHTTP(ctx context.Context, srv *http.Server, ln net.Listener) error {
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ln) }()

	select {
	case err := <-served:
		return err
	case <-ctx.Done():
	}

	app.logger.Info(ctx, "Stopping HTTP server...")
	sctx, cancel := context.WithTimeout(context.Background(), app.config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	if err := <-served; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.health.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until a termination signal arrives or a listener fails, then
// drains the task queue and closes the database.
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

	if app.health != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startGRPCServer(ctx, cancelFunc)
		}()
	}

	wg.Wait()

	d := &deps{db: app.db, queue: app.queue}
	d.close(ctx, app.config, app.logger)
	app.logger.Info(ctx, "Stopped")
}
