package services

import (
	"context"
	"sync"

	"auction-relay/internal/domain"
)

type mockRepo struct {
	mu      sync.Mutex
	saved   []*domain.ArchivedEvent
	saveErr error
}

func (m *mockRepo) SaveEvent(ctx context.Context, event *domain.ArchivedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, event)
	return nil
}

func (m *mockRepo) ListEvents(ctx context.Context, auctionID string, limit int) ([]*domain.ArchivedEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.ArchivedEvent
	for _, e := range m.saved {
		if e.Message.AuctionID == auctionID {
			out = append(out, e)
		}
	}
	return out, nil
}

type mockEventPublisher struct {
	mu         sync.Mutex
	published  []*domain.BidBroadcastMessage
	publishErr error
}

func (m *mockEventPublisher) PublishBidEvent(ctx context.Context, msg *domain.BidBroadcastMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	m.published = append(m.published, msg)
	return nil
}

type mockLatestCache struct {
	mu     sync.Mutex
	latest map[string]*domain.BidBroadcastMessage
	setErr error
}

func newMockLatestCache() *mockLatestCache {
	return &mockLatestCache{latest: make(map[string]*domain.BidBroadcastMessage)}
}

func (m *mockLatestCache) SetLatest(ctx context.Context, msg *domain.BidBroadcastMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.latest[msg.AuctionID] = msg
	return nil
}

func (m *mockLatestCache) GetLatest(ctx context.Context, auctionID string) (*domain.BidBroadcastMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latest[auctionID], nil
}

type mockBroadcaster struct {
	mu        sync.Mutex
	published []*domain.BidBroadcastMessage
}

func (m *mockBroadcaster) Publish(msg *domain.BidBroadcastMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, msg)
}

func (m *mockBroadcaster) getPublished() []*domain.BidBroadcastMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.BidBroadcastMessage, len(m.published))
	copy(out, m.published)
	return out
}

// mockSubscriber delivers its events and then waits for cancellation.
type mockSubscriber struct {
	events []*domain.BidBroadcastMessage
	err    error
}

func (m *mockSubscriber) SubscribeToBidEvents(ctx context.Context, handler domain.EventHandler) error {
	if m.err != nil {
		return m.err
	}
	for _, e := range m.events {
		_ = handler(e)
	}
	<-ctx.Done()
	return ctx.Err()
}

type mockRegistry struct {
	mu    sync.Mutex
	calls int
	stats domain.RegistryStats
}

func (m *mockRegistry) Subscribe(topic string, conn domain.Connection)   {}
func (m *mockRegistry) Unsubscribe(topic string, conn domain.Connection) {}
func (m *mockRegistry) RemoveConnection(conn domain.Connection)          {}
func (m *mockRegistry) SubscribersOf(topic string) []domain.Connection  { return nil }

func (m *mockRegistry) Stats() domain.RegistryStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.stats
}

func (m *mockRegistry) statsCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
