package websocket

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"auction-relay/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pingPeriod     = 30 * time.Second
	// Frames above this are a transport error and end the connection.
	// Control messages are a few dozen bytes.
	maxMessageSize = 64 * 1024
)

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrSendBufferFull   = errors.New("send buffer full")
)

// MessageHandler receives inbound frames and the terminal close of a connection.
type MessageHandler interface {
	HandleMessage(data []byte)
	Close(cause error)
}

// WebSocketConnection adapts a gorilla connection to domain.Connection. Writes
// go through a buffered queue drained by a single writer goroutine.
type WebSocketConnection struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	log  logger.Logger

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

func NewWebSocketConnection(id string, conn *websocket.Conn, sendBuffer int, log logger.Logger) *WebSocketConnection {
	return &WebSocketConnection{
		id:   id,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
		log:  log,
	}
}

func (wsc *WebSocketConnection) ID() string {
	return wsc.id
}

func (wsc *WebSocketConnection) IsOpen() bool {
	wsc.mu.RLock()
	defer wsc.mu.RUnlock()
	return !wsc.closed
}

// Send queues data without blocking.
func (wsc *WebSocketConnection) Send(data []byte) error {
	wsc.mu.RLock()
	defer wsc.mu.RUnlock()

	if wsc.closed {
		return ErrConnectionClosed
	}
	select {
	case wsc.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

func (wsc *WebSocketConnection) Close() error {
	var err error
	wsc.closeOnce.Do(func() {
		wsc.mu.Lock()
		wsc.closed = true
		wsc.mu.Unlock()
		close(wsc.done)
		err = wsc.conn.Close()
	})
	return err
}

// Shutdown tells the peer the server is going away, then closes.
func (wsc *WebSocketConnection) Shutdown() error {
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	if err := wsc.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
		wsc.log.Debug("Failed to send close frame", "connection_id", wsc.id, "error", err)
	}
	return wsc.Close()
}

// Serve runs the write pump in the background and the read pump on the calling
// goroutine. It returns once the connection is gone and handler.Close has run.
func (wsc *WebSocketConnection) Serve(handler MessageHandler) {
	go wsc.writePump()
	wsc.readPump(handler)
}

func (wsc *WebSocketConnection) readPump(handler MessageHandler) {
	var cause error
	defer func() {
		handler.Close(cause)
		wsc.Close()
	}()

	wsc.conn.SetReadLimit(maxMessageSize)

	for {
		msgType, data, err := wsc.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				wsc.log.Error("Failed to read message", "connection_id", wsc.id, "error", err)
			}
			cause = err
			return
		}
		if msgType != websocket.TextMessage {
			wsc.log.Warn("Ignoring non-text frame", "connection_id", wsc.id, "frame_type", msgType)
			continue
		}
		handler.HandleMessage(data)
	}
}

func (wsc *WebSocketConnection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		wsc.Close()
	}()

	for {
		select {
		case message := <-wsc.send:
			wsc.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsc.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				wsc.log.Debug("Failed to write message", "connection_id", wsc.id, "error", err)
				return
			}
		case <-ticker.C:
			wsc.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsc.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-wsc.done:
			return
		}
	}
}
