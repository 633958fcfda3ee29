package relayclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"auction-relay/internal/domain"
	"auction-relay/pkg/logger"
)

const (
	DefaultReconnectInterval = 5 * time.Second
	DefaultHandshakeTimeout  = 10 * time.Second
)

var (
	ErrDisconnected     = errors.New("client disconnected")
	ErrMalformedMessage = errors.New("malformed broadcast message")
)

type Status string

const (
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
	StatusReconnecting Status = "reconnecting"
)

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

type MessageHandler func(msg *domain.BidBroadcastMessage)

type StatusHandler func(status Status)

type Config struct {
	URL               string
	ReconnectInterval time.Duration
	Dialer            Dialer
	Logger            logger.Logger
}

type messageEntry struct {
	id int
	fn MessageHandler
}

type statusEntry struct {
	id int
	fn StatusHandler
}

// Client keeps one connection to the relay alive. After a drop it retries on a
// fixed interval, forever, and replays every tracked subscription once a new
// connection is up. Broadcasts missed while disconnected are lost.
type Client struct {
	url      string
	interval time.Duration
	dialer   Dialer
	tracker  *Tracker
	log      logger.Logger

	// mu serializes state changes, tracker updates, control sends and replay.
	mu        sync.Mutex
	state     State
	channel   Channel
	reconnect chan struct{} // non-nil while the reconnect timer is armed
	epoch     uint64        // bumped by Disconnect to invalidate in-flight dials

	handlerMu       sync.RWMutex
	nextHandlerID   int
	messageHandlers []messageEntry
	statusHandlers  []statusEntry
}

func New(cfg Config) *Client {
	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = DefaultReconnectInterval
	}
	if cfg.Dialer == nil {
		cfg.Dialer = NewWebSocketDialer(DefaultHandshakeTimeout)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}

	return &Client{
		url:      cfg.URL,
		interval: cfg.ReconnectInterval,
		dialer:   cfg.Dialer,
		tracker:  NewTracker(),
		log:      cfg.Logger,
		state:    StateDisconnected,
	}
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Status reports the last externally visible status.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.state == StateConnected:
		return StatusConnected
	case c.reconnect != nil:
		return StatusReconnecting
	default:
		return StatusDisconnected
	}
}

// Subscriptions returns the tracked auction IDs in the order they will be replayed.
func (c *Client) Subscriptions() []string {
	return c.tracker.Snapshot()
}

// Connect dials the relay unless a connection is already up or being set up.
// A failed dial arms the reconnect timer and returns the dial error.
func (c *Client) Connect(ctx context.Context) error {
	return c.connect(ctx, nil)
}

// connect with a non-nil timer only proceeds while that timer is still armed.
func (c *Client) connect(ctx context.Context, timer chan struct{}) error {
	c.mu.Lock()
	if timer != nil && c.reconnect != timer {
		c.mu.Unlock()
		return nil
	}
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return nil
	}
	c.state = StateConnecting
	epoch := c.epoch
	c.mu.Unlock()

	ch, err := c.dialer.Dial(ctx, c.url)
	if err != nil {
		c.mu.Lock()
		stale := c.epoch != epoch
		if !stale {
			c.state = StateDisconnected
		}
		c.mu.Unlock()

		if stale {
			return ErrDisconnected
		}
		c.log.Warn("Failed to connect to relay", "url", c.url, "error", err)
		c.notifyStatus(StatusDisconnected)
		c.attemptReconnect(epoch)
		return err
	}

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		ch.Close()
		return ErrDisconnected
	}
	c.channel = ch
	c.state = StateConnected
	c.disarmLocked()

	replay := c.tracker.Snapshot()
	for _, auctionID := range replay {
		c.sendControlLocked(domain.ControlSubscribe, auctionID)
	}
	c.mu.Unlock()

	c.log.Info("Connected to relay", "url", c.url, "replayed", len(replay))
	c.notifyStatus(StatusConnected)

	go c.readLoop(ch, epoch)
	return nil
}

// Disconnect closes the current connection and stops reconnecting. Connect may
// be called again afterwards.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.epoch++
	c.disarmLocked()
	ch := c.channel
	wasConnected := c.state == StateConnected
	c.channel = nil
	c.state = StateDisconnected
	c.mu.Unlock()

	if ch != nil {
		if err := ch.Close(); err != nil {
			c.log.Debug("Failed to close relay channel", "error", err)
		}
	}
	if wasConnected {
		c.notifyStatus(StatusDisconnected)
	}
}

// Subscribe tracks auctionID and, when connected, tells the relay right away.
// Otherwise the subscription goes out with the next replay.
func (c *Client) Subscribe(auctionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tracker.Add(auctionID)
	if c.state == StateConnected {
		c.sendControlLocked(domain.ControlSubscribe, auctionID)
	}
}

// Unsubscribe is safe at any point, including mid-reconnect.
func (c *Client) Unsubscribe(auctionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tracker.Remove(auctionID)
	if c.state == StateConnected {
		c.sendControlLocked(domain.ControlUnsubscribe, auctionID)
	}
}

// OnMessage registers h for every broadcast and returns a function removing it.
func (c *Client) OnMessage(h MessageHandler) func() {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()

	id := c.nextHandlerID
	c.nextHandlerID++
	c.messageHandlers = append(c.messageHandlers, messageEntry{id: id, fn: h})

	return func() {
		c.handlerMu.Lock()
		defer c.handlerMu.Unlock()
		for i, e := range c.messageHandlers {
			if e.id == id {
				c.messageHandlers = append(c.messageHandlers[:i], c.messageHandlers[i+1:]...)
				return
			}
		}
	}
}

// OnStatusChange registers h for status transitions and returns a function removing it.
func (c *Client) OnStatusChange(h StatusHandler) func() {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()

	id := c.nextHandlerID
	c.nextHandlerID++
	c.statusHandlers = append(c.statusHandlers, statusEntry{id: id, fn: h})

	return func() {
		c.handlerMu.Lock()
		defer c.handlerMu.Unlock()
		for i, e := range c.statusHandlers {
			if e.id == id {
				c.statusHandlers = append(c.statusHandlers[:i], c.statusHandlers[i+1:]...)
				return
			}
		}
	}
}

func (c *Client) sendControlLocked(t domain.ControlType, auctionID string) {
	data, err := json.Marshal(domain.ControlMessage{Type: t, AuctionID: auctionID})
	if err != nil {
		c.log.Error("Failed to encode control message", "type", t, "auction_id", auctionID, "error", err)
		return
	}
	if err := c.channel.Send(data); err != nil {
		// The read loop notices the broken channel and reconnects; replay covers it.
		c.log.Warn("Failed to send control message", "type", t, "auction_id", auctionID, "error", err)
	}
}

func (c *Client) readLoop(ch Channel, epoch uint64) {
	for {
		data, err := ch.Receive()
		if err != nil {
			c.handleDrop(ch, epoch, err)
			return
		}

		msg, err := ParseBroadcast(data)
		if err != nil {
			c.log.Warn("Discarding broadcast", "payload", string(data), "error", err)
			continue
		}
		c.dispatch(msg)
	}
}

func (c *Client) handleDrop(ch Channel, epoch uint64, cause error) {
	c.mu.Lock()
	if c.channel != ch || c.epoch != epoch {
		c.mu.Unlock()
		return
	}
	c.channel = nil
	c.state = StateDisconnected
	c.mu.Unlock()

	ch.Close()
	c.log.Warn("Relay connection lost", "url", c.url, "error", cause)
	c.notifyStatus(StatusDisconnected)
	c.attemptReconnect(epoch)
}

// attemptReconnect arms the recurring reconnect timer unless it is already
// armed, another dial got there first, or the client was disconnected on
// purpose since epoch.
func (c *Client) attemptReconnect(epoch uint64) {
	c.mu.Lock()
	if c.reconnect != nil || c.epoch != epoch || c.state != StateDisconnected {
		c.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	c.reconnect = stop
	c.mu.Unlock()

	c.notifyStatus(StatusReconnecting)
	go c.reconnectLoop(stop)
}

func (c *Client) reconnectLoop(stop chan struct{}) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.log.Info("Attempting to reconnect to relay", "url", c.url)
			_ = c.connect(context.Background(), stop)
		}
	}
}

func (c *Client) disarmLocked() {
	if c.reconnect != nil {
		close(c.reconnect)
		c.reconnect = nil
	}
}

func (c *Client) reconnectArmed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reconnect != nil
}

func (c *Client) dispatch(msg *domain.BidBroadcastMessage) {
	c.handlerMu.RLock()
	handlers := make([]MessageHandler, 0, len(c.messageHandlers))
	for _, e := range c.messageHandlers {
		handlers = append(handlers, e.fn)
	}
	c.handlerMu.RUnlock()

	for _, h := range handlers {
		h(msg)
	}
}

func (c *Client) notifyStatus(status Status) {
	c.handlerMu.RLock()
	handlers := make([]StatusHandler, 0, len(c.statusHandlers))
	for _, e := range c.statusHandlers {
		handlers = append(handlers, e.fn)
	}
	c.handlerMu.RUnlock()

	for _, h := range handlers {
		h(status)
	}
}

// ParseBroadcast accepts any JSON object. Fields are not checked, handlers
// filter on Type themselves.
func ParseBroadcast(data []byte) (*domain.BidBroadcastMessage, error) {
	if trimmed := bytes.TrimSpace(data); len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: not a JSON object", ErrMalformedMessage)
	}
	var msg domain.BidBroadcastMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return &msg, nil
}
