package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"auction-relay/internal/domain"
	"auction-relay/pkg/logger"
)

var ErrMalformedControl = errors.New("malformed control message")

// Session owns the subscription lifecycle of a single connection.
type Session struct {
	conn     domain.Connection
	registry domain.TopicRegistry
	log      logger.Logger

	mu    sync.Mutex
	state domain.ConnectionState
}

func NewSession(conn domain.Connection, registry domain.TopicRegistry, log logger.Logger) *Session {
	return &Session{
		conn:     conn,
		registry: registry,
		log:      log,
		state:    domain.StateConnected,
	}
}

func (s *Session) State() domain.ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// HandleMessage applies one inbound control message. Malformed input is logged
// and dropped, it never closes the connection.
func (s *Session) HandleMessage(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == domain.StateDisconnected {
		return
	}

	msg, err := ParseControlMessage(data)
	if err != nil {
		s.log.Warn("Discarding control message", "connection_id", s.conn.ID(),
			"payload", string(data), "error", err)
		return
	}

	switch msg.Type {
	case domain.ControlSubscribe:
		s.registry.Subscribe(msg.AuctionID, s.conn)
		s.log.Info("Client subscribed to auction", "connection_id", s.conn.ID(), "auction_id", msg.AuctionID)
	case domain.ControlUnsubscribe:
		s.registry.Unsubscribe(msg.AuctionID, s.conn)
		s.log.Info("Client unsubscribed from auction", "connection_id", s.conn.ID(), "auction_id", msg.AuctionID)
	}
}

// Close removes the connection from every topic. Only the first call has any
// effect; the cause is logged.
func (s *Session) Close(cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == domain.StateDisconnected {
		return
	}
	s.registry.RemoveConnection(s.conn)
	s.state = domain.StateDisconnected

	if cause != nil {
		s.log.Info("Client disconnected", "connection_id", s.conn.ID(), "reason", cause.Error())
	} else {
		s.log.Info("Client disconnected", "connection_id", s.conn.ID())
	}
}

func ParseControlMessage(data []byte) (*domain.ControlMessage, error) {
	var msg domain.ControlMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedControl, err)
	}
	switch msg.Type {
	case domain.ControlSubscribe, domain.ControlUnsubscribe:
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformedControl)
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformedControl, msg.Type)
	}
	if msg.AuctionID == "" {
		return nil, fmt.Errorf("%w: missing auctionId", ErrMalformedControl)
	}
	return &msg, nil
}
