// Package main wires together the recipe service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/recipe-box/internal/api"
	"github.com/JakeFAU/recipe-box/internal/clock/system"
	"github.com/JakeFAU/recipe-box/internal/config"
	"github.com/JakeFAU/recipe-box/internal/extract"
	collyfetcher "github.com/JakeFAU/recipe-box/internal/fetcher/colly"
	headlessfetcher "github.com/JakeFAU/recipe-box/internal/fetcher/headless"
	"github.com/JakeFAU/recipe-box/internal/logging"
	"github.com/JakeFAU/recipe-box/internal/metrics"
	"github.com/JakeFAU/recipe-box/internal/recipe"
	memoryStorage "github.com/JakeFAU/recipe-box/internal/storage/memory"
	"github.com/JakeFAU/recipe-box/internal/storage/postgres"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(logging.Options{
		Development: cfg.Logging.Development,
		Level:       cfg.Logging.Level,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := system.New()
	store, closeStore, err := newStore(ctx, cfg, clock, logger.Named("store"))
	if err != nil {
		logger.Error("store init failed", zap.Error(err))
		return
	}
	defer closeStore()

	fetcher, closeFetcher, err := newFetcher(cfg, logger.Named("fetcher"))
	if err != nil {
		logger.Error("fetcher init failed", zap.Error(err))
		return
	}
	defer closeFetcher()

	sites := cfg.SiteRegistry()
	logger.Info("site extractors registered", zap.Strings("domains", sites.Domains()))
	pipeline := extract.NewPipeline(sites, logger.Named("extract"))

	apiServer := api.NewServer(fetcher, pipeline, store, cfg, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func newStore(
	ctx context.Context,
	cfg config.Config,
	clock recipe.Clock,
	logger *zap.Logger,
) (recipe.Store, func(), error) {
	if cfg.DB.DSN == "" {
		logger.Warn("db.dsn not set; recipes are kept in memory")
		return memoryStorage.NewRecipeStore(clock), func() {}, nil
	}
	pgStore, err := postgres.NewRecipeStore(ctx, postgres.Config{
		DSN:             cfg.DB.DSN,
		MaxConns:        cfg.DB.MaxConns,
		MinConns:        cfg.DB.MinConns,
		MaxConnLifetime: cfg.ConnLifetime(),
	}, clock)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres store: %w", err)
	}
	if cfg.DB.AutoMigrate {
		if err := pgStore.Migrate(ctx); err != nil {
			pgStore.Close()
			return nil, nil, fmt.Errorf("migrate schema: %w", err)
		}
		logger.Info("schema ready")
	}
	return pgStore, pgStore.Close, nil
}

func newFetcher(cfg config.Config, logger *zap.Logger) (recipe.Fetcher, func(), error) {
	if cfg.Fetcher.Mode == config.FetcherHeadless {
		f, err := headlessfetcher.NewChromedp(headlessfetcher.Config{
			MaxParallel:       cfg.Headless.MaxParallel,
			UserAgent:         cfg.HTTP.UserAgent,
			NavigationTimeout: cfg.NavTimeout(),
			RecipeWait:        cfg.RecipeWait(),
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("headless fetcher: %w", err)
		}
		return f, f.Close, nil
	}
	return collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.HTTP.UserAgent,
		Timeout:   cfg.FetchTimeout(),
	}, logger), func() {}, nil
}
