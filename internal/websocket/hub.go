package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"ai-tunemate-be/internal/dto"
	"ai-tunemate-be/internal/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// redisChannel carries activity entries between instances so every connected
// dashboard sees the same feed regardless of which node served it.
const redisChannel = "activity_events"

// Hub fans completed-recommendation activity out to connected admin
// dashboards. Clients are anonymous; every message is a broadcast.
type Hub struct {
	clients map[*Client]struct{}

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	mu sync.RWMutex

	// Redis connection for cross-instance fanout; nil disables it.
	rdb *redis.Client

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]struct{}),
		rdb:        rdb,
		logger:     log,
	}
}

func (h *Hub) Run() {
	if h.rdb != nil {
		go h.subscribeToRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			h.mu.Unlock()
			h.logger.Info("Hub", "Dashboard client registered", map[string]interface{}{"clients": h.ClientCount()})

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mu.Unlock()
			h.logger.Info("Hub", "Dashboard client unregistered", map[string]interface{}{"clients": h.ClientCount()})
		}
	}
}

// Broadcast pushes one activity entry to every local client and publishes it
// to Redis for the other instances.
func (h *Hub) Broadcast(event dto.ActivityEvent) {
	data, err := json.Marshal(map[string]interface{}{
		"type": "activity",
		"data": event,
	})
	if err != nil {
		h.logger.Error("Hub", "Failed to encode activity event", map[string]interface{}{"error": err.Error()})
		return
	}

	// With Redis available the entry comes back through the subscription,
	// which also delivers it to local clients; publishing AND sending locally
	// would show every entry twice.
	if h.rdb != nil {
		if err := h.rdb.Publish(context.Background(), redisChannel, data).Err(); err != nil {
			h.logger.Warn("Hub", "Redis fanout failed, delivering locally only", map[string]interface{}{"error": err.Error()})
			h.sendLocal(data)
		}
		return
	}

	h.sendLocal(data)
}

func (h *Hub) sendLocal(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		select {
		case client.Send <- data:
		default:
			// Slow consumer: drop it rather than stall the feed.
			h.logger.Warn("Hub", "Client send buffer full, dropping client", nil)
			go func(c *Client) { h.unregister <- c }(client)
		}
	}
}

// subscribeToRedis relays entries from the shared channel to the local
// clients. Entries published by this instance arrive here too, which is how
// they reach the local dashboards.
func (h *Hub) subscribeToRedis() {
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, redisChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		h.sendLocal([]byte(msg.Payload))
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
