package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/sablepoint/dealdesk/internal/models"
)

const eventWriteTimeout = 5 * time.Second

// StageEvent is broadcast on /events whenever a deal changes stage
type StageEvent struct {
	DealID  int64          `json:"deal_id"`
	Company string         `json:"company"`
	From    models.Stage   `json:"from"`
	To      models.Stage   `json:"to"`
	Outcome models.Outcome `json:"outcome"`
	At      time.Time      `json:"at"`
}

// Hub fans stage events out to connected websocket clients
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewHub creates an event hub. Origins are restricted to localhost, same
// as the server's CORS policy.
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				return strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1")
			},
		},
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// Broadcast sends an event to all connected clients. Clients that fail a
// write are dropped.
func (hub *Hub) Broadcast(event StageEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal stage event")
		return
	}

	hub.mu.Lock()
	defer hub.mu.Unlock()
	for conn := range hub.clients {
		conn.SetWriteDeadline(time.Now().Add(eventWriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Debug().Err(err).Msg("dropping slow event client")
			conn.Close()
			delete(hub.clients, conn)
		}
	}
}

// ClientCount returns the number of connected clients
func (hub *Hub) ClientCount() int {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	return len(hub.clients)
}

func (hub *Hub) register(conn *websocket.Conn) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	hub.clients[conn] = struct{}{}
}

func (hub *Hub) unregister(conn *websocket.Conn) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	if _, ok := hub.clients[conn]; ok {
		conn.Close()
		delete(hub.clients, conn)
	}
}

// Events handles GET /events by upgrading to a websocket and streaming
// stage events until the client disconnects.
func (h *Handlers) Events(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		h.writeError(w, r, http.StatusServiceUnavailable, "events_disabled",
			"event streaming is not enabled")
		return
	}

	conn, err := h.hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	h.hub.register(conn)
	defer h.hub.unregister(conn)

	// Clients are read-only listeners; the read loop just detects closes.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
