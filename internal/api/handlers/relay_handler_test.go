package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auction-relay/internal/domain"
	"auction-relay/internal/relay"
	"auction-relay/internal/relayclient"
	"auction-relay/pkg/logger"
)

type relayServer struct {
	server    *httptest.Server
	registry  *relay.TopicRegistry
	publisher *relay.Publisher
	wsURL     string
}

func newRelayServer(t *testing.T) *relayServer {
	t.Helper()
	log := logger.NewNop()
	registry := relay.NewTopicRegistry(log)
	router := NewRelayRouter(NewRelayHandlers(registry, 16, log), "/ws", log)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &relayServer{
		server:    server,
		registry:  registry,
		publisher: relay.NewPublisher(registry, log),
		wsURL:     "ws" + strings.TrimPrefix(server.URL, "http") + "/ws",
	}
}

func TestRelayRouter_HealthAndStats(t *testing.T) {
	rs := newRelayServer(t)

	resp, err := http.Get(rs.server.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	conn, _, err := websocket.DefaultDialer.Dial(rs.wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"subscribe","auctionId":"A"}`)))
	require.Eventually(t, func() bool { return len(rs.registry.SubscribersOf("A")) == 1 },
		2*time.Second, 10*time.Millisecond)

	resp, err = http.Get(rs.server.URL + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	var stats domain.RegistryStats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, domain.RegistryStats{Topics: 1, Connections: 1}, stats)
}

func TestRelayRouter_Preflight(t *testing.T) {
	rs := newRelayServer(t)

	req, err := http.NewRequest(http.MethodOptions, rs.server.URL+"/stats", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRelayClient_EndToEndReconnect(t *testing.T) {
	rs := newRelayServer(t)

	client := relayclient.New(relayclient.Config{
		URL:               rs.wsURL,
		ReconnectInterval: 20 * time.Millisecond,
		Logger:            logger.NewNop(),
	})
	t.Cleanup(client.Disconnect)

	got := make(chan *domain.BidBroadcastMessage, 8)
	client.OnMessage(func(m *domain.BidBroadcastMessage) { got <- m })

	client.Subscribe("auction-42")
	require.NoError(t, client.Connect(context.Background()))
	require.Eventually(t, func() bool { return len(rs.registry.SubscribersOf("auction-42")) == 1 },
		2*time.Second, 10*time.Millisecond)

	rs.publisher.Publish(&domain.BidBroadcastMessage{
		Type:      domain.BidPlaced,
		AuctionID: "auction-42",
		Data:      json.RawMessage(`{"amount":650}`),
	})
	select {
	case m := <-got:
		assert.JSONEq(t, `{"amount":650}`, string(m.Data))
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast not delivered")
	}

	// Drop the connection from the relay side; the client must come back
	// with its subscription replayed.
	old := rs.registry.SubscribersOf("auction-42")[0]
	require.NoError(t, old.Close())
	require.Eventually(t, func() bool {
		subs := rs.registry.SubscribersOf("auction-42")
		return client.State() == relayclient.StateConnected &&
			len(subs) == 1 && subs[0].ID() != old.ID()
	}, 3*time.Second, 10*time.Millisecond)

	rs.publisher.Publish(&domain.BidBroadcastMessage{Type: domain.AuctionEnded, AuctionID: "auction-42"})
	select {
	case m := <-got:
		assert.Equal(t, domain.AuctionEnded, m.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast not delivered after reconnect")
	}
}
