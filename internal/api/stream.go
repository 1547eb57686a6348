package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"modelserve/internal/model"
)

const (
	clientSendBuffer = 16
	writeWait        = 10 * time.Second
)

// StreamTelemetry reports feed connectivity.
type StreamTelemetry interface {
	StreamClientsSet(n float64)
}

type feedMessage struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub broadcasts every persisted prediction to connected WebSocket
// clients. Publishing never blocks the pipeline: a client that cannot
// keep up is dropped.
type Hub struct {
	mu        sync.RWMutex
	clients   map[*client]bool
	upgrader  websocket.Upgrader
	telemetry StreamTelemetry
}

func NewHub(telemetry StreamTelemetry) *Hub {
	return &Hub{
		clients: make(map[*client]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		telemetry: telemetry,
	}
}

// Run keeps the hub alive until the context is cancelled, then closes
// every connection.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

// PublishPrediction implements serving.Broadcaster.
func (h *Hub) PublishPrediction(p *model.Prediction) {
	data, err := json.Marshal(toPredictionResponse(p))
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal feed message")
		return
	}
	msg, err := json.Marshal(feedMessage{
		Type:      "prediction",
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			// Slow client: drop the message rather than block the pipeline.
		}
	}
}

func (h *Hub) handleConnect(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientSendBuffer)}
	h.register(c)
	go h.writePump(c)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = true
	n := len(h.clients)
	h.mu.Unlock()

	if h.telemetry != nil {
		h.telemetry.StreamClientsSet(float64(n))
	}
	log.Debug().Int("clients", n).Msg("feed client connected")
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if h.telemetry != nil {
		h.telemetry.StreamClientsSet(float64(n))
	}
}

func (h *Hub) writePump(c *client) {
	defer c.conn.Close()

	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.unregister(c)
			return
		}
	}
}
