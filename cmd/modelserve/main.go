package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"modelserve/internal/api"
	"modelserve/internal/cfg"
	"modelserve/internal/enrich"
	"modelserve/internal/metrics"
	"modelserve/internal/registry"
	"modelserve/internal/serving"
	"modelserve/internal/storage"
)

const projectorCacheSize = 128

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	setupLogging(c.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()

	store, err := storage.Open(c.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", c.DatabasePath).Msg("storage initialization failed")
	}
	defer store.Close()

	shaps := openShapStore(c)
	if shaps != nil {
		defer shaps.Close()
	}

	// All configured models must load here or the process does not start.
	reg, err := registry.New(c.Models)
	if err != nil {
		log.Fatal().Err(err).Msg("model registry initialization failed")
	}
	log.Info().Int("models", reg.Len()).Msg("model registry ready")

	projectors, err := enrich.NewProjectorCache(projectorCacheSize)
	if err != nil {
		log.Fatal().Err(err).Msg("projector cache initialization failed")
	}

	svc := serving.New(reg, store, shaps, projectors, metrics.NewWrapper(m))
	server := api.New(c.HTTPPort, svc, store, m)

	go func() {
		if err := server.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	waitForShutdown(cancel, server)
}

// openShapStore is optional wiring: without an explanation path the
// service runs with explanations attached to responses but not retained.
func openShapStore(c cfg.Settings) *storage.ShapStore {
	if c.ExplanationPath == "" {
		return nil
	}
	shaps, err := storage.OpenShapStore(c.ExplanationPath)
	if err != nil {
		log.Warn().Err(err).Msg("explanation store unavailable, continuing without it")
		return nil
	}
	return shaps
}

func setupLogging(level string) {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

func waitForShutdown(cancel context.CancelFunc, server *api.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	cancel()

	ctx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
}
