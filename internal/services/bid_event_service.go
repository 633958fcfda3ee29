package services

import (
	"context"
	"fmt"
	"time"

	"auction-relay/internal/domain"
	"auction-relay/pkg/logger"
	"auction-relay/pkg/utils"
)

// BidEventService is the gateway side of the pipeline: it archives accepted
// bid events and publishes them towards the relays.
type BidEventService struct {
	repo      domain.EventRepository
	publisher domain.EventPublisher
	latest    domain.LatestEventCache
	log       logger.Logger
	now       func() time.Time
}

func NewBidEventService(
	repo domain.EventRepository,
	publisher domain.EventPublisher,
	latest domain.LatestEventCache,
	log logger.Logger,
) *BidEventService {
	return &BidEventService{
		repo:      repo,
		publisher: publisher,
		latest:    latest,
		log:       log,
		now:       time.Now,
	}
}

// AcceptEvent defaults the type to bid_placed and the timestamp to now, then
// archives and publishes the event.
func (s *BidEventService) AcceptEvent(ctx context.Context, msg *domain.BidBroadcastMessage) (*domain.ArchivedEvent, error) {
	if msg != nil && msg.Type == "" {
		msg.Type = domain.BidPlaced
	}
	if err := ValidateEvent(msg); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if msg.Timestamp == "" {
		msg.Timestamp = now.Format(time.RFC3339Nano)
	}

	event := &domain.ArchivedEvent{
		ID:        utils.GenerateID("evt"),
		Message:   *msg,
		CreatedAt: now,
	}

	if err := s.repo.SaveEvent(ctx, event); err != nil {
		s.log.Error("Failed to archive bid event", "auction_id", msg.AuctionID, "error", err)
		return nil, fmt.Errorf("archive event: %w", err)
	}

	if err := s.publisher.PublishBidEvent(ctx, msg); err != nil {
		s.log.Error("Failed to publish bid event", "event_id", event.ID, "auction_id", msg.AuctionID, "error", err)
		return nil, fmt.Errorf("publish event: %w", err)
	}

	// The cache only backs the latest-event lookup, a miss there is not fatal.
	if s.latest != nil {
		if err := s.latest.SetLatest(ctx, msg); err != nil {
			s.log.Warn("Failed to cache latest event", "auction_id", msg.AuctionID, "error", err)
		}
	}

	s.log.Info("Accepted bid event", "event_id", event.ID, "auction_id", msg.AuctionID, "type", msg.Type)
	return event, nil
}

func (s *BidEventService) ListEvents(ctx context.Context, auctionID string, limit int) ([]*domain.ArchivedEvent, error) {
	return s.repo.ListEvents(ctx, auctionID, limit)
}

// LatestEvent returns nil when nothing was accepted for the auction yet.
func (s *BidEventService) LatestEvent(ctx context.Context, auctionID string) (*domain.BidBroadcastMessage, error) {
	if s.latest == nil {
		return nil, nil
	}
	return s.latest.GetLatest(ctx, auctionID)
}
