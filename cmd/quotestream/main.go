package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/finsight/quotestream/internal/config"
	"github.com/finsight/quotestream/internal/pricing"
	"github.com/finsight/quotestream/internal/quotes"
	"github.com/finsight/quotestream/internal/server"
	"github.com/finsight/quotestream/pkg/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	sim := pricing.NewSimulated(cfg.Quotes.Deterministic)
	var source pricing.Source = sim
	if cfg.Quotes.Provider == config.ProviderExternal {
		source = pricing.NewAlphaVantage(
			cfg.Quotes.Alpha.APIKey,
			cfg.Quotes.Alpha.PollInterval(),
			sim,
			zapLogger,
		)
	}

	store := pricing.NewStateStore()
	registry := quotes.NewRegistry(cfg.Quotes.DefaultSymbols, zapLogger)
	engine := quotes.NewBroadcaster(source, store, registry, cfg.Quotes.TickInterval(), zapLogger)
	snapshots := quotes.NewSnapshotService(source, store, cfg.Quotes.DefaultSymbols)

	if err := engine.Start(); err != nil {
		zapLogger.Fatal("Failed to start broadcaster", zap.Error(err))
	}

	srv := server.NewServer(zapLogger, registry, engine, snapshots)
	go func() {
		if err := srv.Start(cfg.Server.Addr); err != nil {
			zapLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	zapLogger.Info("quotestream started",
		zap.String("provider", cfg.Quotes.Provider),
		zap.Strings("default_symbols", cfg.Quotes.DefaultSymbols))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zapLogger.Info("shutting down")

	if err := engine.Stop(); err != nil {
		zapLogger.Error("Failed to stop broadcaster", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("HTTP server shutdown failed", zap.Error(err))
	}

	zapLogger.Info("quotestream stopped")
}
