package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auction-relay/internal/api/handlers"
	"auction-relay/internal/config"
	"auction-relay/internal/infrastructure/redis"
	"auction-relay/internal/relay"
	"auction-relay/internal/services"
	"auction-relay/pkg/logger"
	"auction-relay/pkg/utils"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.New().Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.NewWithLevel(cfg.Log.Level)
	log.Info("Starting relay service", "config", cfg.GetConfigString())

	// Initialize Redis
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rdb, err := utils.InitializeRedis(ctx, cfg.Redis)
	if err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()
	log.Info("Connected to Redis", "address", cfg.Redis.Address)

	// Relay core
	registry := relay.NewTopicRegistry(log)
	publisher := relay.NewPublisher(registry, log)

	eventSubscriber := redis.NewRedisEventSubscriber(rdb, cfg.Relay.EventsChannel, log)
	eventListener := services.NewEventListener(publisher, log)
	statsReporter := services.NewStatsReporter(registry, cfg.Relay.StatsSchedule, log)

	relayHandlers := handlers.NewRelayHandlers(registry, cfg.Relay.SendBuffer, log)
	router := handlers.NewRelayRouter(relayHandlers, cfg.Relay.WSPath, log)

	// Start background services
	listenCtx, stopListening := context.WithCancel(context.Background())
	defer stopListening()

	go func() {
		if err := eventListener.Start(listenCtx, eventSubscriber); err != nil {
			log.Error("Event listener stopped", "error", err)
		}
	}()

	if err := statsReporter.Start(); err != nil {
		log.Error("Failed to start stats reporter", "error", err)
		os.Exit(1)
	}

	// Start HTTP server
	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Info("Starting relay server", "address", server.Addr, "ws_path", cfg.Relay.WSPath)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down relay service...")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	stopListening()
	statsReporter.Stop()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	// Upgraded connections are hijacked, Shutdown leaves them alone.
	relayHandlers.CloseConnections()

	log.Info("Relay service stopped")
}
