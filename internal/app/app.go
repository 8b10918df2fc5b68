// Package app wires configuration, storage, repositories and services
// into one application shared by the HTTP server and the admin CLI.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/story-cms-api/internal/config"
	"github.com/story-cms-api/internal/database"
	"github.com/story-cms-api/internal/metrics"
	"github.com/story-cms-api/internal/repository"
	"github.com/story-cms-api/internal/service"
	"github.com/story-cms-api/internal/storage"
)

// App is a fully wired application
type App struct {
	Config   *config.Config
	Services *service.Services
	// Health probes the configured backend; nil when the backend has no probe
	Health   storage.HealthChecker
	Registry *prometheus.Registry

	closers []func() error
	log     zerolog.Logger
}

// Build selects the storage backend named by cfg.Storage.Backend and wires
// every layer on top of it. Close releases the backend.
func Build(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	a := &App{
		Config:   cfg,
		Registry: metrics.NewRegistry(),
		log:      log.With().Str("component", "app").Logger(),
	}

	store, locker, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	if hc, ok := store.(storage.HealthChecker); ok {
		a.Health = hc
	}

	repos := repository.New(store, locker, repository.Options{
		Namespace:   cfg.Stories.Namespace,
		LockTimeout: cfg.Storage.LockTimeout,
	}, log)

	a.Services = service.NewServices(repos, cfg, log, service.WithMetrics(metrics.New(a.Registry)))

	a.log.Info().
		Str("backend", cfg.Storage.Backend).
		Str("namespace", cfg.Stories.Namespace).
		Bool("count_views", cfg.Stories.CountViews).
		Msg("Application initialized")

	return a, nil
}

// openStore creates the document store and the matching per-key locker
func (a *App) openStore(ctx context.Context) (storage.DocumentStore, storage.KeyLocker, error) {
	cfg := a.Config

	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return storage.NewMemoryStore(), storage.NewMutexLocker(), nil

	case config.BackendFilesystem:
		store, err := storage.NewFilesystemStore(cfg.Storage.DataDir, a.log)
		if err != nil {
			return nil, nil, err
		}
		locker, err := storage.NewFileLocker(cfg.Storage.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return store, locker, nil

	case config.BackendPostgres:
		db, err := database.New(&cfg.Database, a.log)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.closers = append(a.closers, db.Close)

		if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return storage.NewPostgresStore(db), storage.NewPostgresLocker(db), nil

	case config.BackendS3:
		client, err := storage.NewS3Client(ctx, cfg.S3)
		if err != nil {
			return nil, nil, err
		}
		// Object storage has no lock primitive; writers must share one process.
		return storage.NewS3Store(client, cfg.S3.Bucket, cfg.S3.Prefix), storage.NewMutexLocker(), nil
	}

	return nil, nil, fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend)
}

// Close releases the resources held by the storage backend
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
