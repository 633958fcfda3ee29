package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auction-relay/internal/domain"
	"auction-relay/pkg/logger"
)

func TestEventListener_ForwardsEvents(t *testing.T) {
	broadcaster := &mockBroadcaster{}
	listener := NewEventListener(broadcaster, logger.NewNop())
	subscriber := &mockSubscriber{events: []*domain.BidBroadcastMessage{
		{Type: domain.BidPlaced, AuctionID: "A"},
		{Type: domain.AuctionEnded, AuctionID: "B"},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- listener.Start(ctx, subscriber) }()

	require.Eventually(t, func() bool { return len(broadcaster.getPublished()) == 2 },
		time.Second, 5*time.Millisecond)
	published := broadcaster.getPublished()
	assert.Equal(t, "A", published[0].AuctionID)
	assert.Equal(t, "B", published[1].AuctionID)

	cancel()
	assert.NoError(t, <-done)
}

func TestEventListener_SubscribeError(t *testing.T) {
	listener := NewEventListener(&mockBroadcaster{}, logger.NewNop())
	boom := errors.New("no redis")

	err := listener.Start(context.Background(), &mockSubscriber{err: boom})
	assert.ErrorIs(t, err, boom)
}
