package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apimodeling "fincast/pkg/api/modeling"
	apivaluation "fincast/pkg/api/valuation"
	"fincast/pkg/core/config"
	"fincast/pkg/core/logging"
	"fincast/pkg/core/metrics"
	"fincast/pkg/core/scenarios"
	"fincast/pkg/core/store"
)

func main() {
	godotenv.Load()

	configPath := os.Getenv("FINCAST_CONFIG")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := store.InitDB(ctx, cfg.Database.URL); err != nil {
		log.Fatal().Err(err).Msg("database init failed")
	}
	defer store.Close()

	presets := scenarios.Defaults()
	if cfg.Modeling.PresetsPath != "" {
		presets, err = scenarios.LoadFile(cfg.Modeling.PresetsPath)
		if err != nil {
			log.Fatal().Err(err).Msg("scenario presets failed to load")
		}
	}

	recorder := metrics.New()
	pool := store.GetPool()

	mux := http.NewServeMux()
	apimodeling.NewHandler(store.NewModelingRepo(pool), presets, recorder, log).Register(mux)
	apivaluation.NewHandler(store.NewValuationRepo(pool), recorder, log).Register(mux)
	if cfg.Metrics.Enabled {
		mux.Handle("GET "+cfg.Metrics.Path, promhttp.Handler())
	}
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("api server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown incomplete")
	}
}
