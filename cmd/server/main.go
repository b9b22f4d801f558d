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
	"go.uber.org/zap/zapcore"

	"github.com/tricktake/tricktake-server-go/internal/config"
	"github.com/tricktake/tricktake-server-go/internal/lobby"
	"github.com/tricktake/tricktake-server-go/internal/repository"
	"github.com/tricktake/tricktake-server-go/internal/server"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

const shutdownTimeout = 10 * time.Second

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting tricktake server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Optional result archive
	var results *repository.ResultRepository
	if cfg.Database.Enabled {
		db, dbErr := repository.NewDB(ctx, cfg.Database, logger)
		if dbErr != nil {
			logger.Warn("result archive disabled, database unavailable", zap.Error(dbErr))
		} else {
			defer db.Close()
			results, dbErr = repository.NewResultRepository(ctx, db, logger)
			if dbErr != nil {
				logger.Warn("result archive disabled", zap.Error(dbErr))
				results = nil
			} else {
				logger.Info("result archive initialized")
			}
		}
	}

	// Initialize lobby registry
	registry := lobby.NewRegistry(logger)
	logger.Info("lobby registry initialized")

	// Initialize session gateway
	gateway := server.NewGateway(registry, results, cfg.Server.MaxPlayersPerLobby, logger)
	logger.Info("session gateway initialized",
		zap.Int("max_players_per_lobby", cfg.Server.MaxPlayersPerLobby),
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", gateway.ServeWS)
	mux.HandleFunc("/health", gateway.ServeHealth)

	httpServer := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: mux,
	}

	go func() {
		logger.Info("listening", zap.String("address", cfg.Server.Address))
		if serveErr := httpServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(serveErr))
		}
	}()

	// Wait for termination signal
	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	logger.Info("shutting down gracefully...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}

	gateway.CloseAll()

	logger.Info("tricktake server stopped")
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
