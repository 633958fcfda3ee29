// Command relay-watch subscribes to auctions on a relay and logs what arrives.
//
//	relay-watch [-url ws://localhost:8080/ws] auction-1 auction-2
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"auction-relay/internal/config"
	"auction-relay/internal/domain"
	"auction-relay/internal/relayclient"
	"auction-relay/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New().Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	url := flag.String("url", cfg.Client.URL, "relay WebSocket URL")
	interval := flag.Duration("reconnect", cfg.Client.ReconnectInterval, "reconnect interval")
	flag.Parse()

	auctionIDs := flag.Args()
	if len(auctionIDs) == 0 {
		fmt.Fprintln(os.Stderr, "usage: relay-watch [-url URL] [-reconnect DURATION] AUCTION_ID...")
		os.Exit(2)
	}

	log := logger.NewWithLevel(cfg.Log.Level)

	client := relayclient.New(relayclient.Config{
		URL:               *url,
		ReconnectInterval: *interval,
		Dialer:            relayclient.NewWebSocketDialer(cfg.Client.HandshakeTimeout),
		Logger:            log,
	})

	client.OnStatusChange(func(s relayclient.Status) {
		log.Info("Relay status changed", "status", string(s))
	})
	client.OnMessage(func(m *domain.BidBroadcastMessage) {
		log.Info("Broadcast received", "type", m.Type, "auction_id", m.AuctionID, "data", string(m.Data))
	})

	for _, id := range auctionIDs {
		client.Subscribe(id)
	}

	// A failed first dial is retried in the background.
	if err := client.Connect(context.Background()); err != nil {
		log.Warn("Initial connect failed", "url", *url, "error", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	client.Disconnect()
	log.Info("relay-watch stopped")
}
