package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"casino-engine/models"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// WSMessage is a control message sent by a client.
type WSMessage struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
}

const (
	MessageSubscribe   = "subscribe"
	MessageUnsubscribe = "unsubscribe"
)

// Envelope is what clients receive: the engine event tagged with the channel
// it was published on.
type Envelope struct {
	Channel string `json:"channel"`
	models.Event
}

// Hub fans engine events out to websocket clients. It implements the
// engine's Publisher.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}

	allowedOrigins []string
	upgrader       websocket.Upgrader
	logger         *log.Logger
}

func NewHub(allowedOrigins []string, logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default().WithPrefix("ws")
	}
	h := &Hub{
		clients:        make(map[*Client]struct{}),
		allowedOrigins: allowedOrigins,
		logger:         logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// checkOrigin requires an exact Origin match unless "*" is configured.
func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	for _, allowed := range h.allowedOrigins {
		if allowed == "*" {
			return true
		}
		if origin != "" && origin == allowed {
			return true
		}
	}
	if origin != "" {
		h.logger.Warn("rejected websocket origin", "origin", origin)
	}
	return false
}

// ServeWS upgrades the request. Channels named in ?channel= are subscribed
// immediately; more can be added with subscribe messages.
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "err", err)
		return
	}

	client := newClient(h, conn)
	for _, ch := range c.QueryArray("channel") {
		client.subscribe(ch)
	}
	h.register(client)

	go client.writePump()
	go client.readPump()
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("client connected", "clients", count)
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		c.closeSend()
	}
}

// Publish never blocks: a client whose buffer is full is disconnected.
func (h *Hub) Publish(_ context.Context, channel string, event models.Event) error {
	data, err := json.Marshal(Envelope{Channel: channel, Event: event})
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.Event, err)
	}

	var slow []*Client
	h.mu.RLock()
	for c := range h.clients {
		if !c.subscribed(channel) {
			continue
		}
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("dropping slow websocket client", "channel", channel)
		h.unregister(c)
	}
	return nil
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SubscriberCount returns how many clients listen on channel.
func (h *Hub) SubscriberCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for c := range h.clients {
		if c.subscribed(channel) {
			n++
		}
	}
	return n
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*Client]struct{})
	h.mu.Unlock()
	for c := range clients {
		c.closeSend()
	}
}
