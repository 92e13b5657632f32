// Package app wires configuration, logging, the object store, the thread
// cache, metrics and both transports into a runnable comments service, and
// handles graceful shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/patric-chuzhbe/thesiscomments/internal/apperr"
	"github.com/patric-chuzhbe/thesiscomments/internal/auth"
	"github.com/patric-chuzhbe/thesiscomments/internal/config"
	"github.com/patric-chuzhbe/thesiscomments/internal/docstore"
	"github.com/patric-chuzhbe/thesiscomments/internal/grpcserver"
	"github.com/patric-chuzhbe/thesiscomments/internal/ipchecker"
	"github.com/patric-chuzhbe/thesiscomments/internal/logger"
	"github.com/patric-chuzhbe/thesiscomments/internal/metrics"
	"github.com/patric-chuzhbe/thesiscomments/internal/models"
	"github.com/patric-chuzhbe/thesiscomments/internal/objstore"
	"github.com/patric-chuzhbe/thesiscomments/internal/objstore/memory"
	"github.com/patric-chuzhbe/thesiscomments/internal/objstore/s3store"
	"github.com/patric-chuzhbe/thesiscomments/internal/objstore/sqlstore"
	"github.com/patric-chuzhbe/thesiscomments/internal/router"
	"github.com/patric-chuzhbe/thesiscomments/internal/service"
	"github.com/patric-chuzhbe/thesiscomments/internal/threadcache"
)

const shutdownTimeout = 10 * time.Second

var missingSecretWarning = "AUTH_SECRET is not set: registration and authenticated calls will fail with " + apperr.CodeAuthSecretNotSet

// App holds everything the service needs between New and Run.
type App struct {
	cfg         *config.Config
	store       objstore.Store
	cache       threadcache.Cache
	auth        *auth.Auth
	service     *service.Service
	httpHandler http.Handler
}

// New initializes a new instance of App by:
// - loading configuration
// - initializing logger
// - selecting and connecting the object store
// - connecting the thread cache when REDIS_URL is set
// - setting up the router and middleware
func New(configOptions ...config.InitOption) (*App, error) {
	var err error
	app := &App{}

	app.cfg, err = config.New(configOptions...)
	if err != nil {
		return nil, err
	}

	err = logger.Init(app.cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	if app.cfg.AuthSecret == "" {
		logger.Log.Warnln(missingSecretWarning)
	}

	ctx := context.Background()

	app.store, err = getStorageByType(ctx, app.cfg)
	if err != nil {
		return nil, err
	}

	app.cache, err = getThreadCache(ctx, app.cfg)
	if err != nil {
		_ = app.store.Close()
		return nil, err
	}

	trustedSubnet, err := ipchecker.New(app.cfg.TrustedSubnet)
	if err != nil {
		_ = app.store.Close()
		_ = app.cache.Close()
		return nil, err
	}

	collectors := metrics.New(nil)

	app.auth = auth.New(app.cfg.AuthSecret, auth.WithMaxAge(app.cfg.AuthTokenMaxAge))

	app.service = service.New(
		docstore.New(
			app.store,
			docstore.WithPrefix(app.cfg.KeyPrefix),
			docstore.WithRetries(app.cfg.DocWriteRetries),
		),
		app.auth,
		service.WithThreadCache(app.cache),
		service.WithMetrics(collectors),
		service.WithScanConcurrency(app.cfg.ScanConcurrency),
	)

	app.httpHandler = router.New(
		app.service,
		app.auth,
		router.WithCORSOrigins(app.cfg.CORSOrigins),
		router.WithMetrics(collectors, trustedSubnet),
	)

	return app, nil
}

// Handler returns the HTTP handler serving the API.
func (a *App) Handler() http.Handler {
	return a.httpHandler
}

// Run starts the HTTP server, and the gRPC server when an address is
// configured, and blocks until ctx is done. Both servers are then shut down
// gracefully and the cache and object store are closed.
func (a *App) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:         a.cfg.RunAddr,
		Handler:      a.httpHandler,
		ReadTimeout:  a.cfg.HTTPReadTimeout,
		WriteTimeout: a.cfg.HTTPWriteTimeout,
	}

	listener, err := net.Listen("tcp", a.cfg.RunAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.cfg.RunAddr, err)
	}
	logger.Log.Infow("HTTP server running", "addr", listener.Addr().String())

	var grpcServer *grpc.Server
	var grpcListener net.Listener
	if a.cfg.GRPCAddr != "" {
		grpcServer, grpcListener, err = grpcserver.NewGRPCServer(
			a.cfg.GRPCAddr,
			grpcserver.NewCommentsHandler(a.service),
			a.auth,
		)
		if err != nil {
			_ = listener.Close()
			return fmt.Errorf("gRPC server setup error: %w", err)
		}
		logger.Log.Infow("gRPC server running", "addr", grpcListener.Addr().String())
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	if grpcServer != nil {
		group.Go(func() error {
			if err := grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("gRPC server error: %w", err)
			}
			return nil
		})
	}

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Log.Infoln("Shutting down servers...")

		if grpcServer != nil {
			grpcServer.GracefulStop()
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		return nil
	})

	runErr := group.Wait()

	return errors.Join(runErr, a.closeResources())
}

func (a *App) closeResources() error {
	var errs []error
	if err := a.cache.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close thread cache: %w", err))
	}
	if err := a.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close object store: %w", err))
	}
	return errors.Join(errs...)
}

// Close finalizes resources used by App such as logging.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}

func getStorageByType(ctx context.Context, cfg *config.Config) (objstore.Store, error) {
	switch cfg.StorageType() {
	case models.StorageTypeUnknown:
		return nil, errors.New("unknown storage type")

	case models.StorageTypePostgresql:
		logger.Log.Infow("using PostgreSQL object store", "driver", cfg.DatabaseDriver)
		return sqlstore.NewPostgres(
			ctx,
			cfg.DatabaseDSN,
			cfg.DBConnectionTimeout,
			sqlstore.WithDriver(cfg.DatabaseDriver),
		)

	case models.StorageTypeS3:
		logger.Log.Infow("using S3 object store", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)
		connectCtx, cancel := context.WithTimeout(ctx, cfg.DBConnectionTimeout)
		defer cancel()
		return s3store.New(connectCtx, s3store.Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			UseSSL:    cfg.S3UseSSL,
		})

	case models.StorageTypeSQLite:
		logger.Log.Infow("using SQLite object store", "path", cfg.SQLitePath)
		return sqlstore.NewSQLite(ctx, cfg.SQLitePath)
	}

	logger.Log.Warnln("using in-memory object store: documents are lost on restart")
	return memory.New(), nil
}

func getThreadCache(ctx context.Context, cfg *config.Config) (threadcache.Cache, error) {
	if cfg.RedisURL == "" {
		return threadcache.Noop{}, nil
	}

	cache, err := threadcache.NewRedis(ctx, cfg.RedisURL, cfg.ThreadCacheTTL)
	if err != nil {
		logger.Log.Errorw("thread cache unavailable", zap.Error(err))
		return nil, err
	}
	return cache, nil
}
