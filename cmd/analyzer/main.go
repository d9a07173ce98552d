// cmd/analyzer runs the market scanner: it fetches candles for each
// configured market, scores them, persists actionable signals as forecasts,
// settles due forecasts against live prices and serves the dashboard
// gateway plus Prometheus metrics.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"signal-analyzer/config"
	"signal-analyzer/internal/analysis"
	"signal-analyzer/internal/forecast"
	"signal-analyzer/internal/gateway"
	"signal-analyzer/internal/logger"
	"signal-analyzer/internal/marketdata"
	"signal-analyzer/internal/metrics"
	"signal-analyzer/internal/notification"
	"signal-analyzer/internal/scanner"
	redisstore "signal-analyzer/internal/store/redis"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	slogger := logger.Init("analyzer", slog.LevelInfo)
	slogger.Info("starting")

	cfg := config.Load()

	markets := parseMarkets(cfg)
	if len(markets) == 0 {
		slogger.Error("no valid markets configured")
		os.Exit(1)
	}
	profile := analysis.ProfileFor(cfg.RiskProfile)
	slogger.Info("configuration loaded",
		"markets", len(markets),
		"profile", profile.Key,
		"confidence_threshold", cfg.ConfidenceThreshold,
		"scan_interval", cfg.ScanInterval.String())

	// ---- Metrics & health ----
	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus(cfg.RedisAddr == "")
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	// ---- Graceful shutdown ----
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- Forecast store ----
	os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755)
	store, err := forecast.Open(cfg.SQLitePath)
	if err != nil {
		slogger.Error("sqlite init failed", "err", err)
		os.Exit(1)
	}
	defer store.Close()
	health.CheckSQLite(ctx, store.DB())

	// ---- Redis (optional) ----
	var rstore *redisstore.Store
	var cooldown scanner.CooldownTracker = scanner.NewMemoryCooldown()
	var snapshots scanner.Snapshotter
	if cfg.RedisAddr != "" {
		rstore, err = redisstore.New(redisstore.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			slogger.Warn("redis init failed, continuing without redis", "err", err)
		} else {
			defer rstore.Close()
			cooldown = redisCooldown{rstore}
			snapshots = rstore
			health.CheckRedis(ctx, rstore.Client())
		}
	}

	if rstore != nil {
		health.StartLivenessChecker(ctx, rstore.Client(), store.DB(), 15*time.Second)
	} else {
		health.StartLivenessChecker(ctx, nil, store.DB(), 15*time.Second)
	}

	// ---- Market data & evaluator ----
	client := marketdata.NewClient(marketdata.Config{BaseURL: cfg.BinanceBaseURL})
	evaluator := forecast.NewEvaluator(store, client, forecast.EvalParams{
		StopLossPct:   cfg.StopLossPct,
		TakeProfitPct: cfg.TakeProfitPct,
		TradeSize:     cfg.TradeSize,
	})

	// ---- Notifications ----
	notifier := buildNotifier(cfg, slogger)

	// ---- Dashboard gateway ----
	hub := gateway.NewHub(prom)
	gwSrv := gateway.NewServer(cfg.GatewayAddr, hub, store)
	gwSrv.Start()

	// ---- Scanner ----
	s := &scanner.Scanner{
		Cfg: scanner.Config{
			Markets:             markets,
			Profile:             profile,
			CandleLimit:         cfg.CandleLimit,
			ConfidenceThreshold: cfg.ConfidenceThreshold,
			ScanInterval:        cfg.ScanInterval,
			Cooldown:            cfg.CooldownWindow,
			EvalHorizon:         cfg.EvalHorizon,
			ReportInterval:      cfg.ReportInterval,
		},
		Source:    client,
		Store:     store,
		Evaluator: evaluator,
		Cooldown:  cooldown,
		Notifier:  notifier,
		Metrics:   prom,
		Snapshots: snapshots,
		Broadcast: hub,
		Health:    health,
	}

	notifier.Send(ctx, notification.FormatStartup(marketNames(markets), profile.Key, cfg.EvalHorizon))

	go s.Run(ctx)

	<-sigCh
	slogger.Info("shutdown signal received")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	gwSrv.Stop(shutdownCtx)
	metricsSrv.Stop(shutdownCtx)
	slogger.Info("stopped")
}

func parseMarkets(cfg *config.Config) []scanner.Market {
	parsed := cfg.ParseMarkets()
	markets := make([]scanner.Market, 0, len(parsed))
	for _, m := range parsed {
		markets = append(markets, scanner.Market{Symbol: m.Symbol, Interval: m.Interval})
	}
	return markets
}

func marketNames(markets []scanner.Market) []string {
	names := make([]string, 0, len(markets))
	for _, m := range markets {
		names = append(names, m.Symbol)
	}
	return names
}

func buildNotifier(cfg *config.Config, slogger *slog.Logger) notification.Notifier {
	backends := []notification.Notifier{notification.NewLogNotifier()}
	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		backends = append(backends, notification.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID))
		slogger.Info("telegram notifications enabled")
	}
	if cfg.WebhookURL != "" {
		backends = append(backends, notification.NewWebhookNotifier(cfg.WebhookURL))
		slogger.Info("webhook notifications enabled")
	}
	return notification.NewMulti(backends...)
}

// redisCooldown adapts the Redis store to the scanner's tracker interface.
type redisCooldown struct {
	store *redisstore.Store
}

func (r redisCooldown) Active(ctx context.Context, symbol string) bool {
	return r.store.InCooldown(ctx, symbol)
}

func (r redisCooldown) Mark(ctx context.Context, symbol string, d time.Duration) error {
	return r.store.MarkCooldown(ctx, symbol, d)
}
