package domain

import (
	"context"
)

// Connection is an open channel to one client. Implementations must be safe for
// concurrent use.
type Connection interface {
	ID() string
	Send(data []byte) error
	IsOpen() bool
	Close() error
}

type TopicRegistry interface {
	Subscribe(topic string, conn Connection)
	Unsubscribe(topic string, conn Connection)
	RemoveConnection(conn Connection)
	SubscribersOf(topic string) []Connection
	Stats() RegistryStats
}

type BroadcastPublisher interface {
	Publish(message *BidBroadcastMessage)
}

// Event interfaces
type EventPublisher interface {
	PublishBidEvent(ctx context.Context, message *BidBroadcastMessage) error
}

type EventSubscriber interface {
	SubscribeToBidEvents(ctx context.Context, handler EventHandler) error
}

type EventHandler func(message *BidBroadcastMessage) error

type LatestEventCache interface {
	SetLatest(ctx context.Context, message *BidBroadcastMessage) error
	GetLatest(ctx context.Context, auctionID string) (*BidBroadcastMessage, error)
}

// Repository interfaces
type EventRepository interface {
	SaveEvent(ctx context.Context, event *ArchivedEvent) error
	ListEvents(ctx context.Context, auctionID string, limit int) ([]*ArchivedEvent, error)
}
