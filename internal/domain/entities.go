package domain

import (
	"encoding/json"
	"time"
)

type ControlType string

const (
	ControlSubscribe   ControlType = "subscribe"
	ControlUnsubscribe ControlType = "unsubscribe"
)

// ControlMessage is sent by a client to change its topic subscriptions.
type ControlMessage struct {
	Type      ControlType `json:"type"`
	AuctionID string      `json:"auctionId"`
}

type BroadcastType string

const (
	BidPlaced       BroadcastType = "bid_placed"
	AuctionExtended BroadcastType = "auction_extended"
	AuctionEnded    BroadcastType = "auction_ended"
)

// BidBroadcastMessage is fanned out to every connection subscribed to AuctionID.
// Data and Timestamp are opaque to the relay. Timestamp is an ISO-8601 string
// forwarded exactly as the source sent it.
type BidBroadcastMessage struct {
	Type      BroadcastType   `json:"type"`
	AuctionID string          `json:"auctionId"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
}

// ArchivedEvent is an accepted bid event as stored by the gateway.
type ArchivedEvent struct {
	ID        string              `json:"id"`
	Message   BidBroadcastMessage `json:"message"`
	CreatedAt time.Time           `json:"createdAt"`
}

type ConnectionState int

const (
	StateConnected ConnectionState = iota
	StateDisconnected
)

func (s ConnectionState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

type RegistryStats struct {
	Topics      int `json:"topics"`
	Connections int `json:"connections"`
}
