package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"gentrack/internal/infra"
	"gentrack/internal/jobsim"
	"gentrack/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storagePath := cfg.StoragePath
	if !filepath.IsAbs(storagePath) {
		if abs, err := filepath.Abs(storagePath); err == nil {
			storagePath = abs
		}
	}
	store, err := storage.NewFileStore(storagePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("jobsim: failed to configure storage")
	}

	engine := jobsim.NewEngine(jobsim.EngineOptions{
		Logger:      logger,
		Generator:   jobsim.NewSyntheticGenerator(store, cfg.StorageBaseURL),
		QuotaPerKey: cfg.SimQuotaPerKey,
	})
	router := jobsim.NewRouter(engine, jobsim.RouterOptions{
		Logger:          logger,
		StaticDir:       storagePath,
		RateLimitPerMin: cfg.RateLimitPerMin,
	})
	server := infra.NewHTTPServer(cfg, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("port", cfg.Port).Msg("jobsim: listening")
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		err := engine.Run(gctx, cfg.SimTickInterval)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("jobsim: stopped with error")
	}
	logger.Info().Msg("jobsim: stopped")
}
