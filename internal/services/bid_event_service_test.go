package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auction-relay/internal/domain"
	"auction-relay/pkg/logger"
)

var fixedNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestService(repo *mockRepo, pub *mockEventPublisher, latest *mockLatestCache) *BidEventService {
	var cache domain.LatestEventCache
	if latest != nil {
		cache = latest
	}
	s := NewBidEventService(repo, pub, cache, logger.NewNop())
	s.now = func() time.Time { return fixedNow }
	return s
}

func TestAcceptEvent_DefaultsAndStamps(t *testing.T) {
	repo, pub, latest := &mockRepo{}, &mockEventPublisher{}, newMockLatestCache()
	s := newTestService(repo, pub, latest)

	event, err := s.AcceptEvent(context.Background(), &domain.BidBroadcastMessage{
		AuctionID: "auction-42",
		Data:      json.RawMessage(`{"amount":650}`),
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(event.ID, "evt_"))
	assert.Equal(t, domain.BidPlaced, event.Message.Type)
	assert.Equal(t, "2024-03-01T10:00:00Z", event.Message.Timestamp)
	assert.Equal(t, fixedNow, event.CreatedAt)

	require.Len(t, repo.saved, 1)
	require.Len(t, pub.published, 1)
	assert.Equal(t, "auction-42", pub.published[0].AuctionID)

	cached, err := s.LatestEvent(context.Background(), "auction-42")
	require.NoError(t, err)
	assert.Equal(t, domain.BidPlaced, cached.Type)
}

func TestAcceptEvent_KeepsProvidedTimestamp(t *testing.T) {
	repo, pub := &mockRepo{}, &mockEventPublisher{}
	s := newTestService(repo, pub, nil)

	// not RFC 3339, still kept exactly as sent
	event, err := s.AcceptEvent(context.Background(), &domain.BidBroadcastMessage{
		Type:      domain.AuctionExtended,
		AuctionID: "A",
		Timestamp: "2024-03-01T09:59:00.000+0000",
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01T09:59:00.000+0000", event.Message.Timestamp)
	assert.Equal(t, "2024-03-01T09:59:00.000+0000", pub.published[0].Timestamp)

	latest, err := s.LatestEvent(context.Background(), "A")
	assert.NoError(t, err)
	assert.Nil(t, latest)
}

func TestAcceptEvent_Invalid(t *testing.T) {
	tests := []struct {
		name string
		msg  *domain.BidBroadcastMessage
	}{
		{name: "nil", msg: nil},
		{name: "missing auction", msg: &domain.BidBroadcastMessage{Type: domain.BidPlaced}},
		{name: "unknown type", msg: &domain.BidBroadcastMessage{Type: "bid_retracted", AuctionID: "A"}},
		{name: "bad data", msg: &domain.BidBroadcastMessage{AuctionID: "A", Data: json.RawMessage(`{`)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, pub := &mockRepo{}, &mockEventPublisher{}
			s := newTestService(repo, pub, nil)

			_, err := s.AcceptEvent(context.Background(), tt.msg)
			assert.ErrorIs(t, err, ErrInvalidEvent)
			assert.Empty(t, repo.saved)
			assert.Empty(t, pub.published)
		})
	}
}

func TestAcceptEvent_ArchiveFailureSkipsPublish(t *testing.T) {
	repo := &mockRepo{saveErr: errors.New("db down")}
	pub := &mockEventPublisher{}
	s := newTestService(repo, pub, nil)

	_, err := s.AcceptEvent(context.Background(), &domain.BidBroadcastMessage{AuctionID: "A"})
	assert.Error(t, err)
	assert.Empty(t, pub.published)
}

func TestAcceptEvent_PublishFailure(t *testing.T) {
	repo := &mockRepo{}
	pub := &mockEventPublisher{publishErr: errors.New("redis down")}
	latest := newMockLatestCache()
	s := newTestService(repo, pub, latest)

	_, err := s.AcceptEvent(context.Background(), &domain.BidBroadcastMessage{AuctionID: "A"})
	assert.Error(t, err)
	assert.Empty(t, latest.latest)
}

func TestAcceptEvent_CacheFailureIsNotFatal(t *testing.T) {
	latest := newMockLatestCache()
	latest.setErr = errors.New("redis down")
	s := newTestService(&mockRepo{}, &mockEventPublisher{}, latest)

	_, err := s.AcceptEvent(context.Background(), &domain.BidBroadcastMessage{AuctionID: "A"})
	assert.NoError(t, err)
}

func TestListEvents(t *testing.T) {
	s := newTestService(&mockRepo{}, &mockEventPublisher{}, nil)
	ctx := context.Background()

	for _, id := range []string{"A", "B", "A"} {
		_, err := s.AcceptEvent(ctx, &domain.BidBroadcastMessage{AuctionID: id})
		require.NoError(t, err)
	}

	events, err := s.ListEvents(ctx, "A", 10)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}
