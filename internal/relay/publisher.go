package relay

import (
	"encoding/json"

	"auction-relay/internal/domain"
	"auction-relay/pkg/logger"
)

// Publisher fans a broadcast out to the current subscribers of its auction.
// Delivery is best effort: closed connections and failed sends are skipped.
type Publisher struct {
	registry domain.TopicRegistry
	log      logger.Logger
}

func NewPublisher(registry domain.TopicRegistry, log logger.Logger) *Publisher {
	return &Publisher{
		registry: registry,
		log:      log,
	}
}

func (p *Publisher) Publish(message *domain.BidBroadcastMessage) {
	if message == nil {
		return
	}

	messageBytes, err := json.Marshal(message)
	if err != nil {
		p.log.Error("Failed to serialize broadcast", "auction_id", message.AuctionID, "error", err)
		return
	}

	connections := p.registry.SubscribersOf(message.AuctionID)
	delivered := 0
	for _, conn := range connections {
		if !conn.IsOpen() {
			continue
		}
		if err := conn.Send(messageBytes); err != nil {
			// The connection's own close handler cleans it up.
			p.log.Debug("Dropped broadcast", "connection_id", conn.ID(),
				"auction_id", message.AuctionID, "error", err)
			continue
		}
		delivered++
	}

	p.log.Debug("Broadcast published", "auction_id", message.AuctionID, "type", message.Type,
		"subscribers", len(connections), "delivered", delivered)
}
