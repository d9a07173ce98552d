// Package scanner drives the analysis loop: fetch candles for each watched
// market, score them, persist actionable signals as forecasts, settle due
// forecasts and send the periodic performance report.
package scanner

import (
	"context"
	"fmt"
	"log"
	"time"

	"signal-analyzer/internal/analysis"
	"signal-analyzer/internal/forecast"
	"signal-analyzer/internal/logger"
	"signal-analyzer/internal/metrics"
	"signal-analyzer/internal/model"
	"signal-analyzer/internal/notification"
)

// Market is one symbol/interval pair to watch.
type Market struct {
	Symbol   string
	Interval string
}

func (m Market) String() string { return m.Symbol + ":" + m.Interval }

// CandleSource fetches candle history for a market.
type CandleSource interface {
	Candles(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error)
}

// ForecastStore is the subset of the forecast store the scanner uses.
type ForecastStore interface {
	Create(ctx context.Context, f model.Forecast) (int64, error)
	EvaluatedSince(ctx context.Context, cutoff time.Time) ([]model.Forecast, error)
	PendingCount(ctx context.Context) (int, error)
}

// Sweeper settles due forecasts.
type Sweeper interface {
	SweepDue(ctx context.Context, now time.Time) ([]model.Forecast, error)
}

// Snapshotter receives the latest analysis per symbol (Redis, when enabled).
type Snapshotter interface {
	PublishAnalysis(ctx context.Context, symbol string, snapshot []byte)
}

// Broadcaster pushes live events to dashboard clients.
type Broadcaster interface {
	BroadcastAnalysis(symbol string, res analysis.Result)
	BroadcastForecast(f model.Forecast)
}

// Config holds the scanner's tunables.
type Config struct {
	Markets             []Market
	Profile             analysis.Profile
	CandleLimit         int
	ConfidenceThreshold int
	ScanInterval        time.Duration
	Cooldown            time.Duration
	EvalHorizon         time.Duration
	ReportInterval      time.Duration // 0 disables reports
}

// Scanner runs the scan/evaluate/report cycle. Snapshots, Broadcast and
// Metrics are optional; a nil field disables that concern.
type Scanner struct {
	Cfg       Config
	Source    CandleSource
	Store     ForecastStore
	Evaluator Sweeper
	Cooldown  CooldownTracker
	Notifier  notification.Notifier
	Metrics   *metrics.Metrics
	Snapshots Snapshotter
	Broadcast Broadcaster
	Health    *metrics.HealthStatus

	lastReport time.Time
}

// Run executes scan cycles until ctx is cancelled. The first cycle starts
// immediately.
func (s *Scanner) Run(ctx context.Context) {
	log.Printf("[scanner] watching %d markets every %s (profile %s)",
		len(s.Cfg.Markets), s.Cfg.ScanInterval, s.Cfg.Profile.Key)

	s.lastReport = time.Now()
	s.Cycle(ctx, time.Now())

	ticker := time.NewTicker(s.Cfg.ScanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Printf("[scanner] stopped")
			return
		case now := <-ticker.C:
			s.Cycle(ctx, now)
		}
	}
}

// Cycle runs one full scan: every market, then the evaluation sweep, then
// the report when its window has elapsed.
func (s *Scanner) Cycle(ctx context.Context, now time.Time) {
	for _, market := range s.Cfg.Markets {
		// Each market scan carries its own trace ID so its fetch and store
		// calls can be correlated in the logs.
		mctx := logger.WithTraceID(ctx, logger.GenerateTraceID(market.Symbol, now))
		if err := s.scanMarket(mctx, market, now); err != nil {
			log.Printf("[scanner] %s (trace %s): %v", market, logger.TraceID(mctx), err)
			if s.Metrics != nil {
				s.Metrics.ScanErrors.WithLabelValues(market.Symbol).Inc()
			}
		}
		if ctx.Err() != nil {
			return
		}
	}

	s.sweep(ctx, now)

	if s.Cfg.ReportInterval > 0 && now.Sub(s.lastReport) >= s.Cfg.ReportInterval {
		s.report(ctx, now)
		s.lastReport = now
	}

	if s.Metrics != nil {
		s.Metrics.ScansTotal.Inc()
	}
	if s.Health != nil {
		s.Health.SetLastScanTime(now)
	}
}

func (s *Scanner) scanMarket(ctx context.Context, market Market, now time.Time) error {
	candles, err := s.Source.Candles(ctx, market.Symbol, market.Interval, s.Cfg.CandleLimit)
	if err != nil {
		if s.Metrics != nil {
			s.Metrics.FetchErrors.WithLabelValues(market.Symbol).Inc()
		}
		return fmt.Errorf("fetch candles: %w", err)
	}
	if len(candles) == 0 {
		return fmt.Errorf("no candles returned")
	}

	start := time.Now()
	res := analysis.Analyze(candles, s.Cfg.Profile)
	if s.Metrics != nil {
		s.Metrics.AnalyzeDur.Observe(time.Since(start).Seconds())
		s.Metrics.SignalsTotal.WithLabelValues(string(res.Signal)).Inc()
	}

	log.Printf("[scanner] %s: %s score=%+.2f confidence=%d%%",
		market.Symbol, res.Signal, res.Score, res.Confidence)

	if s.Snapshots != nil {
		s.Snapshots.PublishAnalysis(ctx, market.Symbol, analysisJSON(market.Symbol, res, now))
	}
	if s.Broadcast != nil {
		s.Broadcast.BroadcastAnalysis(market.Symbol, res)
	}

	if res.Signal == model.SignalHold || res.Confidence < s.Cfg.ConfidenceThreshold {
		return nil
	}

	if s.Cooldown != nil && s.Cooldown.Active(ctx, market.Symbol) {
		if s.Metrics != nil {
			s.Metrics.SignalsSuppressed.WithLabelValues(market.Symbol).Inc()
		}
		log.Printf("[scanner] %s: %s suppressed by cooldown", market.Symbol, res.Signal)
		return nil
	}

	f := model.Forecast{
		Symbol:      market.Symbol,
		Signal:      res.Signal,
		Confidence:  res.Confidence,
		EntryPrice:  res.Price,
		RiskProfile: res.Profile,
		CreatedAt:   now.UTC(),
		EvalAt:      now.UTC().Add(s.Cfg.EvalHorizon),
		Status:      model.StatusPending,
	}
	id, err := s.Store.Create(ctx, f)
	if err != nil {
		return fmt.Errorf("persist forecast: %w", err)
	}
	f.ID = id
	if s.Metrics != nil {
		s.Metrics.ForecastsCreated.Inc()
	}

	if s.Cooldown != nil {
		if err := s.Cooldown.Mark(ctx, market.Symbol, s.Cfg.Cooldown); err != nil {
			log.Printf("[scanner] %s: cooldown mark failed: %v", market.Symbol, err)
		}
	}

	s.notify(ctx, notification.FormatSignal(market.Symbol, res, s.Cfg.EvalHorizon))
	if s.Broadcast != nil {
		s.Broadcast.BroadcastForecast(f)
	}
	return nil
}

func (s *Scanner) sweep(ctx context.Context, now time.Time) {
	start := time.Now()
	settled, err := s.Evaluator.SweepDue(ctx, now)
	if s.Metrics != nil {
		s.Metrics.EvalSweepDur.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		log.Printf("[scanner] evaluation sweep: %v", err)
		return
	}

	for _, f := range settled {
		log.Printf("[scanner] %s forecast %d settled %s (%+.2f%%)", f.Symbol, f.ID, f.Outcome, f.ReturnPct)
		if s.Metrics != nil {
			s.Metrics.ForecastsEvaluated.WithLabelValues(string(f.Outcome)).Inc()
		}
		s.notify(ctx, notification.FormatEvaluation(f))
		if s.Broadcast != nil {
			s.Broadcast.BroadcastForecast(f)
		}
	}

	if s.Metrics != nil {
		if pending, err := s.Store.PendingCount(ctx); err == nil {
			s.Metrics.PendingForecasts.Set(float64(pending))
		}
	}
}

func (s *Scanner) report(ctx context.Context, now time.Time) {
	rows, err := s.Store.EvaluatedSince(ctx, now.Add(-s.Cfg.ReportInterval))
	if err != nil {
		log.Printf("[scanner] report query: %v", err)
		return
	}
	stats := forecast.Aggregate(rows)
	log.Printf("[scanner] report: %d evaluated, hit rate %.1f%%, total pnl %+.2f",
		stats.Count, stats.HitRate, stats.TotalPnL)
	s.notify(ctx, notification.FormatReport(stats, s.Cfg.ReportInterval))
}

func (s *Scanner) notify(ctx context.Context, alert notification.Alert) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.Send(ctx, alert); err != nil {
		if s.Metrics != nil {
			s.Metrics.AlertsFailed.Inc()
		}
		log.Printf("[scanner] alert delivery: %v", err)
		return
	}
	if s.Metrics != nil {
		s.Metrics.AlertsSent.Inc()
	}
}
