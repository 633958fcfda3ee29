package services

import (
	"context"
	"errors"

	"auction-relay/internal/domain"
	"auction-relay/pkg/logger"
)

// EventListener feeds accepted bid events from the event source into the relay.
type EventListener struct {
	publisher domain.BroadcastPublisher
	log       logger.Logger
}

func NewEventListener(publisher domain.BroadcastPublisher, log logger.Logger) *EventListener {
	return &EventListener{
		publisher: publisher,
		log:       log,
	}
}

// Start blocks until ctx is done or the subscription fails.
func (el *EventListener) Start(ctx context.Context, subscriber domain.EventSubscriber) error {
	el.log.Info("Starting event listener")
	err := subscriber.SubscribeToBidEvents(ctx, el.handleBidEvent)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (el *EventListener) handleBidEvent(event *domain.BidBroadcastMessage) error {
	el.log.Debug("Handling bid event", "type", event.Type, "auction_id", event.AuctionID)
	el.publisher.Publish(event)
	return nil
}
