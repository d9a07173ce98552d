package gateway

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"signal-analyzer/internal/forecast"
	"signal-analyzer/internal/model"

	"github.com/gorilla/websocket"
)

const (
	defaultRecentLimit = 50
	maxRecentLimit     = 500
	defaultStatsWindow = 24 * time.Hour
)

// ForecastReader is the read side of the forecast store used by the REST API.
type ForecastReader interface {
	Recent(ctx context.Context, limit int) ([]model.Forecast, error)
	EvaluatedSince(ctx context.Context, cutoff time.Time) ([]model.Forecast, error)
}

// Server exposes the WebSocket feed and the forecast REST API.
type Server struct {
	hub       *Hub
	forecasts ForecastReader
	srv       *http.Server
	upgrader  websocket.Upgrader
}

// NewServer builds the gateway HTTP server on addr.
func NewServer(addr string, hub *Hub, forecasts ForecastReader) *Server {
	s := &Server{
		hub:       hub,
		forecasts: forecasts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Dashboard is served from arbitrary origins in deployments.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/api/v1/forecasts", s.handleForecasts)
	mux.HandleFunc("/api/v1/stats", s.handleStats)

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler, used by tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[gateway] listening on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[gateway] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[gateway] ws upgrade: %v", err)
		return
	}

	client := &Client{
		conn: conn,
		send: make(chan []byte, 256),
		hub:  s.hub,
	}
	s.hub.addClient(client)

	go client.writePump()
	go client.readPump()
}

// handleForecasts returns the most recent forecasts, newest first.
// Query params: limit (default 50, max 500).
func (s *Server) handleForecasts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := defaultRecentLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		if n > maxRecentLimit {
			n = maxRecentLimit
		}
		limit = n
	}

	rows, err := s.forecasts.Recent(r.Context(), limit)
	if err != nil {
		log.Printf("[gateway] forecasts query: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []model.Forecast{}
	}

	writeJSON(w, rows)
}

// handleStats returns aggregate stats over a window.
// Query params: hours (default 24).
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	window := defaultStatsWindow
	if v := r.URL.Query().Get("hours"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid hours", http.StatusBadRequest)
			return
		}
		window = time.Duration(n) * time.Hour
	}

	rows, err := s.forecasts.EvaluatedSince(r.Context(), time.Now().Add(-window))
	if err != nil {
		log.Printf("[gateway] stats query: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, struct {
		WindowHours float64 `json:"window_hours"`
		forecast.Stats
	}{
		WindowHours: window.Hours(),
		Stats:       forecast.Aggregate(rows),
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
