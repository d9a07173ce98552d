// Package metrics exposes Prometheus metrics and a JSON health endpoint for
// the signal analyzer.
package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the analyzer.
type Metrics struct {
	ScansTotal        prometheus.Counter
	ScanErrors        *prometheus.CounterVec // labels: symbol
	FetchErrors       *prometheus.CounterVec // labels: symbol
	SignalsTotal      *prometheus.CounterVec // labels: signal
	SignalsSuppressed *prometheus.CounterVec // labels: symbol (cooldown)
	AnalyzeDur        prometheus.Histogram

	ForecastsCreated   prometheus.Counter
	ForecastsEvaluated *prometheus.CounterVec // labels: outcome
	EvalSweepDur       prometheus.Histogram
	PendingForecasts   prometheus.Gauge

	AlertsSent   prometheus.Counter
	AlertsFailed prometheus.Counter

	WSClients prometheus.Gauge
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		ScansTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "analyzer_scans_total",
			Help: "Total market scan cycles completed",
		}),
		ScanErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "analyzer_scan_errors_total",
			Help: "Scan failures per symbol",
		}, []string{"symbol"}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "analyzer_fetch_errors_total",
			Help: "Market data fetch failures per symbol",
		}, []string{"symbol"}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "analyzer_signals_total",
			Help: "Signals classified (BUY, SELL, HOLD)",
		}, []string{"signal"}),
		SignalsSuppressed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "analyzer_signals_suppressed_total",
			Help: "Actionable signals suppressed by the cooldown window",
		}, []string{"symbol"}),
		AnalyzeDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "analyzer_analyze_duration_seconds",
			Help:    "Scoring engine latency per market",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),

		ForecastsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "analyzer_forecasts_created_total",
			Help: "Forecast records persisted",
		}),
		ForecastsEvaluated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "analyzer_forecasts_evaluated_total",
			Help: "Forecasts settled, by outcome (CORRECT, WRONG, NEUTRAL)",
		}, []string{"outcome"}),
		EvalSweepDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "analyzer_eval_sweep_duration_seconds",
			Help:    "Evaluation sweep latency",
			Buckets: prometheus.DefBuckets,
		}),
		PendingForecasts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "analyzer_pending_forecasts",
			Help: "Forecasts awaiting evaluation after the last sweep",
		}),

		AlertsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "analyzer_alerts_sent_total",
			Help: "Alerts handed to notification backends",
		}),
		AlertsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "analyzer_alerts_failed_total",
			Help: "Alert deliveries that returned an error",
		}),

		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "analyzer_ws_clients",
			Help: "Connected dashboard WebSocket clients",
		}),
	}

	prometheus.MustRegister(
		m.ScansTotal,
		m.ScanErrors,
		m.FetchErrors,
		m.SignalsTotal,
		m.SignalsSuppressed,
		m.AnalyzeDur,
		m.ForecastsCreated,
		m.ForecastsEvaluated,
		m.EvalSweepDur,
		m.PendingForecasts,
		m.AlertsSent,
		m.AlertsFailed,
		m.WSClients,
	)

	return m
}

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	RedisConnected bool      `json:"redis_connected"`
	SQLiteOK       bool      `json:"sqlite_ok"`
	LastScanTime   time.Time `json:"last_scan_time"`

	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`

	redisOptional bool
}

// NewHealthStatus returns a default health status. When redisOptional is
// true a missing Redis does not degrade overall health.
func NewHealthStatus(redisOptional bool) *HealthStatus {
	return &HealthStatus{
		StartedAt:     time.Now(),
		redisOptional: redisOptional,
	}
}

func (h *HealthStatus) SetLastScanTime(t time.Time) {
	h.mu.Lock()
	h.LastScanTime = t
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite runs a trivial query and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(probeCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK

	if !h.SQLiteOK {
		overallStatus = "unhealthy"
		httpCode = http.StatusServiceUnavailable
	} else if !h.RedisConnected && !h.redisOptional {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}

	scanAge := ""
	if !h.LastScanTime.IsZero() {
		scanAge = time.Since(h.LastScanTime).Round(time.Millisecond).String()
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		LastScanTime    string  `json:"last_scan_time"`
		ScanAge         string  `json:"scan_age"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		LastScanTime:    h.LastScanTime.Format(time.RFC3339),
		ScanAge:         scanAge,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
