package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"auction-relay/internal/api/middleware"
	"auction-relay/internal/domain"
	"auction-relay/internal/infrastructure/websocket"
	"auction-relay/pkg/logger"
)

type RelayHandlers struct {
	wsHandler *websocket.WebSocketHandler
	registry  domain.TopicRegistry
	log       logger.Logger
}

func NewRelayHandlers(registry domain.TopicRegistry, sendBuffer int, log logger.Logger) *RelayHandlers {
	return &RelayHandlers{
		wsHandler: websocket.NewWebSocketHandler(registry, sendBuffer, log),
		registry:  registry,
		log:       log,
	}
}

func (h *RelayHandlers) HandleConnection(w http.ResponseWriter, r *http.Request) {
	h.wsHandler.HandleConnection(w, r)
}

// CloseConnections ends every live WebSocket with a going-away close so clients
// start reconnecting right away.
func (h *RelayHandlers) CloseConnections() int {
	return h.wsHandler.CloseAll()
}

func (h *RelayHandlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"service":   "relay",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *RelayHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.registry.Stats())
}

// NewRelayRouter wires the WebSocket endpoint at wsPath next to /health and /stats.
func NewRelayRouter(h *RelayHandlers, wsPath string, log logger.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.CORS(log))

	// WebSocket routes
	router.HandleFunc(wsPath, h.HandleConnection).Methods(http.MethodGet)

	router.HandleFunc("/health", h.Health).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/stats", h.Stats).Methods(http.MethodGet, http.MethodOptions)

	return router
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
