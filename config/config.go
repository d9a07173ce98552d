// Package config loads analyzer configuration from environment variables.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Markets to scan, "SYMBOL:INTERVAL" comma-separated,
	// e.g. "BTCUSDT:1h,ETHUSDT:4h"
	Markets string

	// Analysis
	RiskProfile         string
	CandleLimit         int
	ConfidenceThreshold int
	ScanInterval        time.Duration
	CooldownWindow      time.Duration

	// Forecast evaluation
	EvalHorizon    time.Duration
	StopLossPct    float64
	TakeProfitPct  float64
	TradeSize      float64
	ReportInterval time.Duration

	// Market data
	BinanceBaseURL string

	// Infrastructure
	SQLitePath    string
	RedisAddr     string // empty disables Redis
	RedisPassword string
	MetricsAddr   string
	GatewayAddr   string

	// Notifications (empty disables the channel)
	TelegramToken  string
	TelegramChatID string
	WebhookURL     string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Markets: getEnv("MARKETS", "BTCUSDT:1h,ETHUSDT:1h,SOLUSDT:1h,BNBUSDT:1h"),

		RiskProfile:         getEnv("RISK_PROFILE", "balanced"),
		CandleLimit:         getEnvInt("CANDLE_LIMIT", 200),
		ConfidenceThreshold: getEnvInt("CONFIDENCE_THRESHOLD", 75),
		ScanInterval:        getEnvDuration("SCAN_INTERVAL", 5*time.Minute),
		CooldownWindow:      time.Duration(getEnvInt("COOLDOWN_MINUTES", 60)) * time.Minute,

		EvalHorizon:    time.Duration(getEnvInt("EVAL_HORIZON_HOURS", 4)) * time.Hour,
		StopLossPct:    getEnvFloat("STOP_LOSS_PCT", 1.5),
		TakeProfitPct:  getEnvFloat("TAKE_PROFIT_PCT", 3.0),
		TradeSize:      getEnvFloat("TRADE_SIZE", 1000),
		ReportInterval: time.Duration(getEnvInt("REPORT_INTERVAL_HOURS", 24)) * time.Hour,

		BinanceBaseURL: getEnv("BINANCE_BASE_URL", "https://api.binance.com"),

		SQLitePath:    getEnv("SQLITE_PATH", "data/forecasts.db"),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		GatewayAddr:   getEnv("GATEWAY_ADDR", ":8080"),

		TelegramToken:  getEnv("TELEGRAM_TOKEN", ""),
		TelegramChatID: getEnv("TELEGRAM_CHAT_ID", ""),
		WebhookURL:     getEnv("WEBHOOK_URL", ""),
	}
}

// Market is one parsed symbol/interval pair.
type Market struct {
	Symbol   string
	Interval string
}

// ParseMarkets parses the Markets string. Entries without an interval
// default to 1h; malformed entries are skipped with a log line.
func (c *Config) ParseMarkets() []Market {
	parts := strings.Split(c.Markets, ",")
	markets := make([]Market, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		symbol, interval := p, "1h"
		if i := strings.IndexByte(p, ':'); i >= 0 {
			symbol, interval = p[:i], p[i+1:]
		}
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		interval = strings.TrimSpace(interval)
		if symbol == "" || interval == "" {
			log.Printf("[config] skipping invalid market entry: %q", p)
			continue
		}
		markets = append(markets, Market{Symbol: symbol, Interval: interval})
	}
	return markets
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %v", key, v, fallback)
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		// Bare numbers are treated as seconds.
		if n, nerr := strconv.Atoi(v); nerr == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
		log.Printf("[config] invalid %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}
