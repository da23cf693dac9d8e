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

	"github.com/cat-engine/backend/internal/api"
	"github.com/cat-engine/backend/internal/cat"
	"github.com/cat-engine/backend/internal/config"
	"github.com/cat-engine/backend/internal/itembank"
	"github.com/cat-engine/backend/internal/logger"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// version is set via -ldflags at build time.
var version = "(devel)"

func main() {
	configPath := flag.String("config", getEnv("CAT_CONFIG", "cat.yaml"), "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// No logger yet.
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize item bank; the server refuses to start without one.
	bank, err := itembank.Open(ctx, cfg.ItemBank)
	if err != nil {
		log.Fatal("failed to load item bank",
			zap.String("source", cfg.ItemBank.Kind),
			zap.String("path", cfg.ItemBank.Path),
			zap.Error(err))
	}
	bMin, bMax := bank.DifficultyBounds()
	log.Info("item bank loaded",
		zap.String("source", cfg.ItemBank.Kind),
		zap.Int("items", bank.Len()),
		zap.Float64("b_min", bMin),
		zap.Float64("b_max", bMax))

	engine, err := cat.NewEngine(bank, cat.WithLogger(log), cat.WithStopOptions(cfg.Stop))
	if err != nil {
		log.Fatal("failed to build engine", zap.Error(err))
	}

	// Setup router
	h := api.NewHandler(engine, log, version)
	r := h.NewRouter()

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", api.RequestIDHeader},
		ExposedHeaders: []string{api.RequestIDHeader},
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           c.Handler(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("addr", cfg.HTTPAddr), zap.String("version", version))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", zap.Error(err))
		}
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
