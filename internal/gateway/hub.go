// Package gateway serves the dashboard: a WebSocket feed of live analysis
// and forecast events plus a small REST API over the forecast store.
package gateway

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"signal-analyzer/internal/analysis"
	"signal-analyzer/internal/metrics"
	"signal-analyzer/internal/model"
)

// Hub manages WebSocket clients and fans analyzer events out to them.
// It keeps the latest analysis per symbol so a new client gets current
// state immediately on connect.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	latest  map[string]json.RawMessage

	metrics *metrics.Metrics
}

// NewHub creates an empty hub. metrics may be nil.
func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		latest:  make(map[string]json.RawMessage),
		metrics: m,
	}
}

// BroadcastAnalysis pushes an analysis result to all clients and records it
// as the symbol's latest state.
func (h *Hub) BroadcastAnalysis(symbol string, res analysis.Result) {
	payload, _ := json.Marshal(struct {
		Symbol string `json:"symbol"`
		analysis.Result
	}{Symbol: symbol, Result: res})

	envelope := envelope("analysis", payload)

	h.mu.Lock()
	h.latest[symbol] = envelope
	h.mu.Unlock()

	h.broadcast(envelope)
}

// BroadcastForecast pushes a forecast creation or settlement event.
func (h *Hub) BroadcastForecast(f model.Forecast) {
	h.broadcast(envelope("forecast", f.JSON()))
}

func envelope(kind string, data []byte) []byte {
	b, _ := json.Marshal(map[string]interface{}{
		"type": kind,
		"data": json.RawMessage(data),
		"ts":   time.Now().UTC().Format(time.RFC3339Nano),
	})
	return b
}

func (h *Hub) broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- msg:
		default:
			// Slow client: drop the message rather than stall the scan loop.
		}
	}
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	count := len(h.clients)

	// Snapshot current state for the new client before releasing the lock
	// so it cannot miss an update between snapshot and registration.
	initial := make([]json.RawMessage, 0, len(h.latest))
	for _, entry := range h.latest {
		initial = append(initial, entry)
	}
	h.mu.Unlock()

	for _, msg := range initial {
		select {
		case c.send <- msg:
		default:
		}
	}

	if h.metrics != nil {
		h.metrics.WSClients.Set(float64(count))
	}
	log.Printf("[gateway] ws client connected (%d total)", count)
}

// RemoveClient removes a client from the hub.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	count := len(h.clients)
	h.mu.Unlock()
	close(c.send)

	if h.metrics != nil {
		h.metrics.WSClients.Set(float64(count))
	}
	log.Printf("[gateway] ws client disconnected (%d total)", count)
}

// ClientCount returns the number of connected WS clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
