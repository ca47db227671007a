// Package server wires the configured backends together and runs the gRPC
// and HTTP transports until the process is signalled.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/webxfer/internal/logging"
	"github.com/dmitrijs2005/webxfer/internal/server/blobstore"
	"github.com/dmitrijs2005/webxfer/internal/server/config"
	"github.com/dmitrijs2005/webxfer/internal/server/httpapi"
	"github.com/dmitrijs2005/webxfer/internal/server/lifecycle"
	"github.com/dmitrijs2005/webxfer/internal/server/notify"
	"github.com/dmitrijs2005/webxfer/internal/server/ratelimit"
	"github.com/dmitrijs2005/webxfer/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/webxfer/internal/server/services"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/webxfer/internal/server/grpc"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	redis      redis.UniversalClient
	memLimiter *ratelimit.MemoryLimiter
	transfer   *services.TransferService
	admin      *services.AdminService
}

// NewApp opens the database, runs migrations and builds the services.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger := logging.New(os.Stdout, "json", c.LogLevel)

	db, repos, err := repomanager.Open(ctx, c.DatabaseDriver, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app := &App{config: c, logger: logger, db: db}

	if err := repos.RunMigrations(ctx, db); err != nil {
		app.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	blobs, err := newBlobStore(ctx, c)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("blob store: %w", err)
	}

	if c.UsesRedis() {
		app.redis = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{c.RedisAddr},
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})
		if err := app.redis.Ping(ctx).Err(); err != nil {
			app.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
	}

	limiter := app.newLimiter()
	sink := app.newSink()

	lc := lifecycle.NewManager(db, repos, blobs, logger)
	app.transfer = services.NewTransferService(db, repos, lc, blobs, limiter, sink, logger)
	app.admin = services.NewAdminService(db, repos, lc, logger)

	return app, nil
}

func newBlobStore(ctx context.Context, c *config.Config) (blobstore.Store, error) {
	if c.BlobBackend == config.BlobS3 {
		return blobstore.NewS3Store(ctx, blobstore.S3Config{
			RootUser:     c.S3RootUser,
			RootPassword: c.S3RootPassword,
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
		})
	}
	return blobstore.NewFSStore(c.StoragePath)
}

func (app *App) newLimiter() ratelimit.Limiter {
	c := app.config
	switch c.RateLimitBackend {
	case config.RateLimitRedis:
		return ratelimit.NewRedisLimiter(app.redis, c.RateLimitRequests, c.RateLimitWindow)
	case config.RateLimitMemory:
		app.memLimiter = ratelimit.NewMemoryLimiter(c.RateLimitRequests, c.RateLimitWindow)
		return app.memLimiter
	}
	return ratelimit.Unlimited{}
}

func (app *App) newSink() notify.Sink {
	c := app.config
	switch c.NotifyBackend {
	case config.NotifySMTP:
		return notify.NewSMTPSink(c.SMTPAddr, c.NotifyFrom, c.SMTPUser, c.SMTPPassword)
	case config.NotifyRedis:
		return notify.NewRedisSink(app.redis, c.NotifyChannel)
	}
	return notify.NewLogSink(app.logger)
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

func (app *App) runHTTPServer(ctx context.Context) error {
	srv := &http.Server{
		Addr: app.config.EndpointAddrHTTP,
		Handler: httpapi.NewRouter(app.transfer, app.logger, httpapi.Options{
			BaseURL:       app.config.BaseURL,
			MaxUploadSize: app.config.MaxUploadSize,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "HTTP shutdown failed", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", srv.Addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Run serves until ctx is cancelled, a signal arrives, or a transport fails.
func (app *App) Run(ctx context.Context) error {
	defer app.Close()

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.transfer, app.admin, app.config.SecretKey, app.config.MaxUploadSize)
		return s.Run(ctx)
	})

	g.Go(func() error {
		return app.runHTTPServer(ctx)
	})

	if app.memLimiter != nil {
		g.Go(func() error {
			app.memLimiter.Run(ctx)
			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		app.logger.Error(ctx, "server stopped", "error", err)
	}
	return err
}

// Close releases the database and Redis connections.
func (app *App) Close() {
	if app.redis != nil {
		_ = app.redis.Close()
	}
	if app.db != nil {
		_ = app.db.Close()
	}
}
