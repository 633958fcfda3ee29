package relay

import (
	"sync"

	"auction-relay/internal/domain"
	"auction-relay/pkg/logger"
)

// TopicRegistry maps auction IDs to the connections subscribed to them. Topics
// are created on first subscribe and dropped as soon as they become empty.
type TopicRegistry struct {
	topics    map[string]map[string]domain.Connection // auctionID -> connID -> connection
	connTopic map[string]map[string]struct{}          // connID -> auctionIDs
	mutex     sync.RWMutex
	log       logger.Logger
}

func NewTopicRegistry(log logger.Logger) *TopicRegistry {
	return &TopicRegistry{
		topics:    make(map[string]map[string]domain.Connection),
		connTopic: make(map[string]map[string]struct{}),
		log:       log,
	}
}

func (r *TopicRegistry) Subscribe(topic string, conn domain.Connection) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.topics[topic] == nil {
		r.topics[topic] = make(map[string]domain.Connection)
	}
	r.topics[topic][conn.ID()] = conn

	if r.connTopic[conn.ID()] == nil {
		r.connTopic[conn.ID()] = make(map[string]struct{})
	}
	r.connTopic[conn.ID()][topic] = struct{}{}

	r.log.Debug("Connection subscribed", "connection_id", conn.ID(), "auction_id", topic)
}

func (r *TopicRegistry) Unsubscribe(topic string, conn domain.Connection) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.removeLocked(topic, conn.ID())

	if topics, exists := r.connTopic[conn.ID()]; exists {
		delete(topics, topic)
		if len(topics) == 0 {
			delete(r.connTopic, conn.ID())
		}
	}

	r.log.Debug("Connection unsubscribed", "connection_id", conn.ID(), "auction_id", topic)
}

func (r *TopicRegistry) RemoveConnection(conn domain.Connection) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	topics, exists := r.connTopic[conn.ID()]
	if !exists {
		return
	}
	for topic := range topics {
		r.removeLocked(topic, conn.ID())
	}
	delete(r.connTopic, conn.ID())

	r.log.Debug("Connection removed from all topics", "connection_id", conn.ID(), "topics", len(topics))
}

func (r *TopicRegistry) removeLocked(topic, connID string) {
	if conns, exists := r.topics[topic]; exists {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(r.topics, topic)
		}
	}
}

// SubscribersOf returns a snapshot of the connections subscribed to topic.
func (r *TopicRegistry) SubscribersOf(topic string) []domain.Connection {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	conns, exists := r.topics[topic]
	if !exists {
		return nil
	}

	connections := make([]domain.Connection, 0, len(conns))
	for _, conn := range conns {
		connections = append(connections, conn)
	}
	return connections
}

func (r *TopicRegistry) Stats() domain.RegistryStats {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return domain.RegistryStats{
		Topics:      len(r.topics),
		Connections: len(r.connTopic),
	}
}
