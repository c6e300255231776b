package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/joshua-takyi/slotbook/internal/config"
	"github.com/joshua-takyi/slotbook/internal/connect"
	"github.com/joshua-takyi/slotbook/internal/container"
	"github.com/joshua-takyi/slotbook/internal/routes"
	"github.com/joshua-takyi/slotbook/internal/telemetry"
)

const sweepInterval = time.Minute

func main() {
	cfg, err := config.LoadConfig(".env.local")
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg)
	slog.SetDefault(logger)
	logger.Info("Starting slotbook API server", "environment", cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:       cfg.OtelEnabled,
		ServiceName:   "slotbook-api",
		Environment:   cfg.Environment,
		CollectorAddr: cfg.OtelCollectorAddr,
	})
	if err != nil {
		logger.Error("Failed to initialise tracing", "error", err)
		os.Exit(1)
	}

	supaClient, err := connect.InitSupabase(cfg.SupabaseURL, cfg.SupabaseAnonKey)
	if err != nil {
		logger.Error("Failed to connect to Supabase", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to Supabase successfully")

	mongoClient, err := connect.MongoDBConnect(ctx, cfg.MongoURI())
	if err != nil {
		logger.Error("Failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to MongoDB successfully")

	var redisClient *redis.Client
	if cfg.ReservationBackend == "redis" {
		redisClient, err = connect.RedisConnect(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			logger.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		logger.Info("Connected to Redis successfully", "addr", cfg.RedisAddr)
	}

	appContainer, err := container.NewContainer(cfg, logger, supaClient, mongoClient, redisClient)
	if err != nil {
		logger.Error("Failed to build container", "error", err)
		os.Exit(1)
	}
	if err := appContainer.Mongo.EnsureIndexes(ctx); err != nil {
		logger.Error("Failed to create indexes", "error", err)
		os.Exit(1)
	}

	go appContainer.BookingService.RunHoldSweeper(ctx, sweepInterval)

	router := routes.SetupRoutes(appContainer)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port, "gateway", appContainer.Gateway.Name(), "reservations", cfg.ReservationBackend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	appContainer.Tokens.Close()
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("Error closing Redis", "error", err)
		}
	}
	if err := connect.MongoDBDisconnect(mongoClient); err != nil {
		logger.Error("Error disconnecting from MongoDB", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("Error flushing traces", "error", err)
	}

	logger.Info("Server exited")
}

func setupLogger(cfg *config.Config) *slog.Logger {
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}

	if cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
