package scanner

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"signal-analyzer/internal/analysis"
	"signal-analyzer/internal/forecast"
	"signal-analyzer/internal/logger"
	"signal-analyzer/internal/model"
	"signal-analyzer/internal/notification"
)

// fakeSource serves a fixed candle history. Ten steadily rising candles keep
// every long-window indicator silent, so the trend reading alone classifies
// a BUY with confidence 80 under the aggressive profile.
type fakeSource struct {
	candles []model.Candle
	err     error
	trace   string
}

func (f *fakeSource) Candles(ctx context.Context, _, _ string, _ int) ([]model.Candle, error) {
	f.trace = logger.TraceID(ctx)
	return f.candles, f.err
}

type fakePrices struct {
	price float64
	err   error
}

func (f *fakePrices) Price(context.Context, string) (float64, error) { return f.price, f.err }

type recordingNotifier struct {
	alerts []notification.Alert
}

func (r *recordingNotifier) Send(_ context.Context, a notification.Alert) error {
	r.alerts = append(r.alerts, a)
	return nil
}

func (r *recordingNotifier) titled(prefixTitle string) int {
	n := 0
	for _, a := range r.alerts {
		if len(a.Title) >= len(prefixTitle) && a.Title[:len(prefixTitle)] == prefixTitle {
			n++
		}
	}
	return n
}

type recordingBroadcast struct {
	analyses  int
	forecasts []model.Forecast
}

func (r *recordingBroadcast) BroadcastAnalysis(string, analysis.Result) { r.analyses++ }
func (r *recordingBroadcast) BroadcastForecast(f model.Forecast)        { r.forecasts = append(r.forecasts, f) }

func risingCandles(n int) []model.Candle {
	candles := make([]model.Candle, n)
	price := 100.0
	for i := range candles {
		candles[i] = model.Candle{
			Time:  int64(i) * 3600_000,
			Open:  price,
			High:  price + 1.5,
			Low:   price - 0.5,
			Close: price + 1,
		}
		price++
	}
	return candles
}

func newTestScanner(t *testing.T, source CandleSource, prices forecast.PriceSource) (*Scanner, *forecast.Store, *recordingNotifier, *recordingBroadcast) {
	t.Helper()

	store, err := forecast.Open(filepath.Join(t.TempDir(), "forecasts.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	notifier := &recordingNotifier{}
	broadcast := &recordingBroadcast{}

	s := &Scanner{
		Cfg: Config{
			Markets:             []Market{{Symbol: "BTCUSDT", Interval: "1h"}},
			Profile:             analysis.ProfileFor(analysis.ProfileAggressive),
			CandleLimit:         200,
			ConfidenceThreshold: 75,
			ScanInterval:        time.Minute,
			Cooldown:            time.Hour,
			EvalHorizon:         4 * time.Hour,
			ReportInterval:      0,
		},
		Source:    source,
		Store:     store,
		Evaluator: forecast.NewEvaluator(store, prices, forecast.EvalParams{StopLossPct: 1.5, TakeProfitPct: 3.0, TradeSize: 1000}),
		Cooldown:  NewMemoryCooldown(),
		Notifier:  notifier,
		Broadcast: broadcast,
	}
	return s, store, notifier, broadcast
}

func TestScanner_CycleCreatesForecast(t *testing.T) {
	source := &fakeSource{candles: risingCandles(10)}
	s, store, notifier, broadcast := newTestScanner(t, source, &fakePrices{price: 100})

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.Cycle(context.Background(), now)

	due, err := store.Due(context.Background(), now.Add(5*time.Hour))
	if err != nil {
		t.Fatalf("due: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("expected 1 forecast created, got %d", len(due))
	}
	f := due[0]
	if f.Signal != model.SignalBuy || f.Confidence != 80 {
		t.Errorf("expected BUY/80 forecast, got %s/%d", f.Signal, f.Confidence)
	}
	if !f.EvalAt.Equal(now.Add(4 * time.Hour)) {
		t.Errorf("horizon mismatch: %v", f.EvalAt)
	}

	if got := notifier.titled("BTCUSDT signal"); got != 1 {
		t.Errorf("expected 1 signal alert, got %d", got)
	}
	if broadcast.analyses != 1 || len(broadcast.forecasts) != 1 {
		t.Errorf("broadcast counts: analyses=%d forecasts=%d", broadcast.analyses, len(broadcast.forecasts))
	}
}

func TestScanner_ScanCarriesTraceID(t *testing.T) {
	source := &fakeSource{candles: risingCandles(10)}
	s, _, _, _ := newTestScanner(t, source, &fakePrices{price: 100})

	s.Cycle(context.Background(), time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	if !strings.HasPrefix(source.trace, "BTCUSDT-") {
		t.Errorf("fetch context must carry a per-market trace id, got %q", source.trace)
	}
}

func TestScanner_CooldownSuppressesRepeat(t *testing.T) {
	source := &fakeSource{candles: risingCandles(10)}
	s, store, notifier, _ := newTestScanner(t, source, &fakePrices{price: 100})

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.Cycle(context.Background(), now)
	s.Cycle(context.Background(), now.Add(time.Minute))

	due, err := store.Due(context.Background(), now.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("due: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("cooldown must suppress the repeat signal, got %d forecasts", len(due))
	}
	if got := notifier.titled("BTCUSDT signal"); got != 1 {
		t.Errorf("expected 1 signal alert, got %d", got)
	}
}

func TestScanner_SweepSettlesDueForecast(t *testing.T) {
	source := &fakeSource{candles: risingCandles(10)}
	prices := &fakePrices{price: 100}
	s, store, notifier, broadcast := newTestScanner(t, source, prices)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.Cycle(context.Background(), now)

	// Entry was the last close (110). Settle 4h later with the price up
	// past the 3% target.
	prices.price = 114
	s.Cycle(context.Background(), now.Add(4*time.Hour))

	rows, err := store.EvaluatedSince(context.Background(), now)
	if err != nil {
		t.Fatalf("evaluated since: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 evaluated forecast, got %d", len(rows))
	}
	if rows[0].Outcome != model.OutcomeCorrect || !rows[0].TakeProfitHit {
		t.Errorf("expected CORRECT with TP hit, got %+v", rows[0])
	}

	if got := notifier.titled("BTCUSDT forecast evaluated"); got != 1 {
		t.Errorf("expected 1 evaluation alert, got %d", got)
	}
	// Two creations (the cooldown expired by the second cycle) plus one
	// settlement.
	if len(broadcast.forecasts) != 3 {
		t.Errorf("expected 3 forecast broadcasts, got %d", len(broadcast.forecasts))
	}
}

func TestScanner_ReportAfterWindow(t *testing.T) {
	source := &fakeSource{candles: risingCandles(10)}
	s, _, notifier, _ := newTestScanner(t, source, &fakePrices{price: 100})
	s.Cfg.ReportInterval = 24 * time.Hour

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.lastReport = now.Add(-25 * time.Hour)
	s.Cycle(context.Background(), now)

	if got := notifier.titled("Forecast performance report"); got != 1 {
		t.Errorf("expected 1 report alert, got %d", got)
	}
}

func TestScanner_FetchErrorDoesNotCreateForecast(t *testing.T) {
	source := &fakeSource{err: errors.New("exchange down")}
	s, store, notifier, _ := newTestScanner(t, source, &fakePrices{price: 100})

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.Cycle(context.Background(), now)

	due, err := store.Due(context.Background(), now.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("due: %v", err)
	}
	if len(due) != 0 {
		t.Errorf("no forecast should exist after a fetch failure")
	}
	if len(notifier.alerts) != 0 {
		t.Errorf("no alerts expected, got %d", len(notifier.alerts))
	}
}

func TestMemoryCooldown(t *testing.T) {
	c := NewMemoryCooldown()
	ctx := context.Background()

	if c.Active(ctx, "BTCUSDT") {
		t.Fatal("fresh tracker must not be active")
	}
	if err := c.Mark(ctx, "BTCUSDT", time.Minute); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if !c.Active(ctx, "BTCUSDT") {
		t.Fatal("expected active cooldown after mark")
	}
	if c.Active(ctx, "ETHUSDT") {
		t.Fatal("cooldown must be per symbol")
	}

	if err := c.Mark(ctx, "SOLUSDT", -time.Second); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if c.Active(ctx, "SOLUSDT") {
		t.Fatal("expired window must not be active")
	}
}
