package services

import (
	"encoding/json"
	"errors"
	"fmt"

	"auction-relay/internal/domain"
)

var ErrInvalidEvent = errors.New("invalid bid event")

var knownTypes = map[domain.BroadcastType]bool{
	domain.BidPlaced:       true,
	domain.AuctionExtended: true,
	domain.AuctionEnded:    true,
}

// ValidateEvent checks an event before it is archived and published. Data is
// not interpreted beyond being well-formed JSON.
func ValidateEvent(msg *domain.BidBroadcastMessage) error {
	if msg == nil {
		return fmt.Errorf("%w: empty event", ErrInvalidEvent)
	}
	if msg.AuctionID == "" {
		return fmt.Errorf("%w: missing auction id", ErrInvalidEvent)
	}
	if !knownTypes[msg.Type] {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, msg.Type)
	}
	if len(msg.Data) > 0 && !json.Valid(msg.Data) {
		return fmt.Errorf("%w: data is not valid JSON", ErrInvalidEvent)
	}
	return nil
}
