package stream

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Event kinds published by the workout engine.
const (
	EventMetricsTick    = "metrics_tick"
	EventQuestGenerated = "quest_generated"
	EventQuestCompleted = "quest_completed"
	EventQuestExpired   = "quest_expired"
	EventSessionSummary = "session_summary"
)

// Event is one outward notification for a workout session. Payload is the
// already-encoded body (snapshot, quest, summary).
type Event struct {
	Kind      string          `json:"kind"`
	SessionID string          `json:"session_id"`
	Payload   json.RawMessage `json:"payload"`
}

// Hub fans workout events out to websocket subscribers and bridges them
// through redis pubsub so subscribers on other instances see them too.
// Delivery is fire-and-forget: a slow subscriber never blocks the rest.
type Hub struct {
	redis   *redis.Client
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
}

type Client struct {
	SessionID string
	Send      chan []byte
}

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{
		redis:   redisClient,
		clients: map[string]map[*Client]struct{}{},
	}

	if redisClient != nil {
		go h.subscribeRedis()
	}
	return h
}

func (h *Hub) Register(sessionID string) *Client {
	client := &Client{
		SessionID: sessionID,
		Send:      make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[sessionID] == nil {
		h.clients[sessionID] = map[*Client]struct{}{}
	}
	h.clients[sessionID][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sessionClients, ok := h.clients[client.SessionID]; ok {
		delete(sessionClients, client)
		if len(sessionClients) == 0 {
			delete(h.clients, client.SessionID)
		}
	}
	close(client.Send)
}

// Notify encodes body into an Event and broadcasts it. Encoding failures
// are logged and dropped; events never propagate errors into the engine.
func (h *Hub) Notify(kind, sessionID string, body any) {
	payload, err := json.Marshal(body)
	if err != nil {
		log.Printf("event payload marshal error: %v", err)
		return
	}
	raw, err := json.Marshal(Event{Kind: kind, SessionID: sessionID, Payload: payload})
	if err != nil {
		log.Printf("event marshal error: %v", err)
		return
	}
	h.Broadcast(sessionID, raw)
}

// Broadcast routes the payload through redis when a client is configured so
// subscribers on every instance see it. Without redis, or when the publish
// fails, it delivers to local subscribers directly.
func (h *Hub) Broadcast(sessionID string, payload []byte) {
	if h.redis != nil {
		err := h.redis.Publish(context.Background(), redisChannel(sessionID), payload).Err()
		if err == nil {
			return
		}
		log.Printf("redis publish error: %v", err)
	}
	h.deliver(sessionID, payload)
}

func (h *Hub) deliver(sessionID string, payload []byte) {
	h.mu.RLock()
	clients := h.clients[sessionID]
	h.mu.RUnlock()

	for client := range clients {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *Hub) subscribeRedis() {
	ctx := context.Background()
	pubsub := h.redis.PSubscribe(ctx, "workout:*:events")
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		h.deliver(sessionIDFromChannel(msg.Channel), []byte(msg.Payload))
	}
}

func redisChannel(sessionID string) string {
	return "workout:" + sessionID + ":events"
}

func sessionIDFromChannel(ch string) string {
	// workout:{session}:events
	const prefix = "workout:"
	const suffix = ":events"
	if len(ch) <= len(prefix)+len(suffix) {
		return ""
	}
	return ch[len(prefix) : len(ch)-len(suffix)]
}
