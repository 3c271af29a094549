// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/authd/internal/auth"
	"github.com/holomush/authd/internal/auth/memstore"
	"github.com/holomush/authd/internal/auth/postgres"
	"github.com/holomush/authd/internal/config"
	"github.com/holomush/authd/internal/observability"
	"github.com/holomush/authd/internal/store"
	"github.com/holomush/authd/internal/web"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP auth service",
		Long: `Serve the registration, session and password reset routes over HTTP,
plus metrics and health probes on a separate address.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServeWithDeps(cmd.Context(), cfg, cmd, nil)
		},
	}
	config.RegisterServeFlags(cmd.Flags())
	return cmd
}

// runServeWithDeps runs the service until ctx is cancelled or a server fails.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cfg *config.Config, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.UserStoreOpener == nil {
		deps.UserStoreOpener = openUserStore
	}
	if deps.MigratorFactory == nil {
		deps.MigratorFactory = migratorFactory
	}
	if deps.WebServerFactory == nil {
		deps.WebServerFactory = func(c web.ServerConfig, h http.Handler, l *slog.Logger) WebServer {
			return web.NewServer(c, h, l)
		}
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, ready observability.ReadinessChecker, l *slog.Logger) ObservabilityServer {
			return observability.NewServer(addr, ready, l)
		}
	}

	logger := newLogger(cfg, deps.LogOutput)
	logger.Info("starting authd",
		"http_addr", cfg.HTTP.Addr,
		"store", cfg.Store.Driver,
		"hasher", cfg.Auth.Hasher,
	)

	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var ready atomic.Bool

	var obsServer ObservabilityServer
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, ready.Load, logger)
		obsErrCh, err := obsServer.Start()
		if err != nil {
			return oops.Code("SERVE_FAILED").With("operation", "start observability server").Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability", logger)
		defer stopServer(obsServer, cfg, "observability", logger)
	}

	if cfg.Store.Driver == config.DriverPostgres && cfg.Database.AutoMigrate {
		if err := autoMigrate(cfg.Database.URL, deps.MigratorFactory, logger); err != nil {
			return err
		}
	}

	users, closeStore, err := deps.UserStoreOpener(ctx, cfg, logger)
	if err != nil {
		return oops.Code("SERVE_FAILED").With("operation", "open user store").Wrap(err)
	}
	defer closeStore()

	svc, err := newAuthService(cfg, users, obsServer, logger)
	if err != nil {
		return err
	}

	handler, err := web.NewHandler(svc, logger.With("component", "web"))
	if err != nil {
		return oops.Code("SERVE_FAILED").Wrap(err)
	}
	routerOpts := []web.RouterOption{web.WithRequestLogger(logger.With("component", "http"))}
	if obsServer != nil {
		routerOpts = append(routerOpts, web.WithRequestRecorder(obsServer.Metrics()))
	}

	webServer := deps.WebServerFactory(web.ServerConfig{
		Addr:         cfg.HTTP.Addr,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}, web.NewRouter(handler, routerOpts...), logger)

	webErrCh, err := webServer.Start()
	if err != nil {
		return oops.Code("SERVE_FAILED").With("operation", "start web server").Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, webErrCh, "web", logger)

	ready.Store(true)
	cmd.Printf("authd listening on %s\n", webServer.Addr())

	<-ctx.Done()

	logger.Info("shutting down")
	ready.Store(false)
	stopServer(webServer, cfg, "web", logger)
	logger.Info("shutdown complete")

	if parent.Err() == nil {
		// Only a failing server cancels ctx while the parent is still live.
		return oops.Code("SERVE_FAILED").Errorf("server stopped unexpectedly")
	}
	return nil
}

func newAuthService(cfg *config.Config, users auth.UserStore, obs ObservabilityServer, logger *slog.Logger) (*auth.Service, error) {
	hasher, err := auth.NewHasher(cfg.Auth.Hasher, cfg.Auth.BcryptCost)
	if err != nil {
		return nil, oops.Code("SERVE_FAILED").Wrap(err)
	}
	ids, err := auth.NewIdentifierGenerator(cfg.Auth.TokenFormat)
	if err != nil {
		return nil, oops.Code("SERVE_FAILED").Wrap(err)
	}

	opts := []auth.Option{
		auth.WithLogger(logger.With("component", "auth")),
		auth.WithIdentifierGenerator(ids),
	}
	if obs != nil {
		opts = append(opts, auth.WithMetrics(obs.Metrics()))
	}

	svc, err := auth.NewService(users, hasher, opts...)
	if err != nil {
		return nil, oops.Code("SERVE_FAILED").Wrap(err)
	}
	return svc, nil
}

// openUserStore opens the store selected by store.driver.
func openUserStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (auth.UserStore, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		logger.Warn("using in-memory user store; users are lost on exit")
		return memstore.New(), func() {}, nil
	case config.DriverPostgres:
		pool, err := store.Connect(ctx, store.ConnectOptions{
			URL:     cfg.Database.URL,
			Timeout: cfg.Database.ConnectTimeout,
			Logger:  logger,
		})
		if err != nil {
			return nil, nil, err //nolint:wrapcheck // already coded
		}
		return postgres.NewUserStore(pool), pool.Close, nil
	default:
		return nil, nil, oops.Code("CONFIG_INVALID").
			With("driver", cfg.Store.Driver).
			Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// autoMigrate applies pending migrations before the store is opened.
func autoMigrate(url string, factory func(string) (Migrator, error), logger *slog.Logger) error {
	m, err := factory(url)
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			logger.Warn("failed to close migrator", "error", closeErr)
		}
	}()

	if err := m.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "apply migrations").Wrap(err)
	}
	logger.Info("database schema up to date")
	return nil
}

type stoppable interface {
	Stop(ctx context.Context) error
}

func stopServer(s stoppable, cfg *config.Config, name string, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		logger.Warn("error stopping server", "server", name, "error", err)
	}
}

// monitorServerErrors cancels ctx when errCh reports a serve error.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string, logger *slog.Logger) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			logger.Error("server error, triggering shutdown", "server", serverName, "error", err)
			cancel()
		}
	case <-ctx.Done():
	}
}
