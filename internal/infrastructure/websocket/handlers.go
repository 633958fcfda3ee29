package websocket

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"auction-relay/internal/domain"
	"auction-relay/internal/relay"
	"auction-relay/pkg/logger"
	"auction-relay/pkg/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // subscriptions are not access controlled
	},
}

type WebSocketHandler struct {
	registry   domain.TopicRegistry
	sendBuffer int
	log        logger.Logger

	mu     sync.Mutex
	active map[string]*WebSocketConnection
}

func NewWebSocketHandler(registry domain.TopicRegistry, sendBuffer int, log logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		registry:   registry,
		sendBuffer: sendBuffer,
		log:        log,
		active:     make(map[string]*WebSocketConnection),
	}
}

// HandleConnection upgrades the request and serves the connection until it
// closes. Topic scoping happens through subscribe/unsubscribe messages only.
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err, "remote_addr", r.RemoteAddr)
		return
	}

	wsConn := NewWebSocketConnection(utils.GenerateID("conn"), conn, h.sendBuffer, h.log)
	h.log.Info("WebSocket client connected", "connection_id", wsConn.ID(), "remote_addr", r.RemoteAddr)

	h.mu.Lock()
	h.active[wsConn.ID()] = wsConn
	h.mu.Unlock()

	wsConn.Serve(relay.NewSession(wsConn, h.registry, h.log))

	h.mu.Lock()
	delete(h.active, wsConn.ID())
	h.mu.Unlock()
}

// CloseAll sends a going-away close to every live connection, subscribed or
// not, and returns how many were closed.
func (h *WebSocketHandler) CloseAll() int {
	h.mu.Lock()
	conns := make([]*WebSocketConnection, 0, len(h.active))
	for _, c := range h.active {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		c.Shutdown()
	}
	h.log.Info("Closed WebSocket connections", "count", len(conns))
	return len(conns)
}
