package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"WebStore/internal/auth"
	"WebStore/internal/catalog"
	"WebStore/internal/config"
	"WebStore/internal/view"
	"WebStore/pkg/kit"
)

const service = "webstore"

func newServeCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the catalog HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), g.cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := kit.NewLogger(service, cfg.Log.Level)
	defer func() { _ = log.Sync() }()

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	provider := catalog.NewProvider(store, log, catalog.NewMetrics(reg))

	var guard []func(http.Handler) http.Handler
	var limit func(http.Handler) http.Handler
	if cfg.HTTP.RateLimit > 0 {
		limit = kit.NewIPRateLimiter(cfg.HTTP.RateLimit, time.Duration(cfg.HTTP.RateWindowSeconds)*time.Second).Middleware
		guard = append(guard, limit)
	}
	if cfg.Auth.JWTSecret != "" {
		guard = append(guard, auth.RequireRole(auth.NewTokenMaker(cfg.Auth.JWTSecret), auth.RoleEditor))
	}

	pages := &view.Pages{
		Source:   provider,
		Log:      log,
		Title:    cfg.HTTP.Title,
		ReadOnly: cfg.Auth.JWTSecret != "",
		Limit:    limit,
	}

	h := catalog.NewHandler(
		&catalog.Server{Provider: provider, Log: log, Guard: guard},
		catalog.HTTPDeps{
			Log:            log,
			Service:        service,
			Registry:       reg,
			MetricsEnabled: cfg.Metrics.Enabled,
			MetricsToken:   cfg.Metrics.Token,
			Pages:          pages.Register,
		},
	)

	if err := kit.RunHTTPServer(ctx, cfg.HTTP.Addr, h, log); err != nil {
		log.Error("http server stopped", zap.Error(err))
		return err
	}
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (catalog.Store, func(), error) {
	seed := cfg.SeedOrDefault()

	if cfg.Store.Driver == config.DriverMemory {
		log.Info("using memory store", zap.Int("primary", len(seed.Primary)), zap.Int("secondary", len(seed.Secondary)))
		return catalog.NewMemStore(seed), func() {}, nil
	}

	db, err := catalog.OpenDB(cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() { _ = db.Close() }

	s := catalog.NewSQLStore(db)
	if err := s.Ping(ctx); err != nil {
		closeDB()
		return nil, nil, fmt.Errorf("ping %s: %w", cfg.Store.Driver, err)
	}
	if err := s.Migrate(ctx); err != nil {
		closeDB()
		return nil, nil, err
	}
	seeded, err := s.SeedIfEmpty(ctx, seed)
	if err != nil {
		closeDB()
		return nil, nil, fmt.Errorf("seed: %w", err)
	}

	log.Info("using sql store", zap.String("driver", cfg.Store.Driver), zap.Bool("seeded", seeded))
	return s, closeDB, nil
}
