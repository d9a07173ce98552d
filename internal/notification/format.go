package notification

import (
	"fmt"
	"strings"
	"time"

	"signal-analyzer/internal/analysis"
	"signal-analyzer/internal/forecast"
	"signal-analyzer/internal/model"
)

// FormatSignal renders an alert for a freshly emitted signal.
func FormatSignal(symbol string, res analysis.Result, horizon time.Duration) Alert {
	emoji := "🟢"
	if res.Signal == model.SignalSell {
		emoji = "🔴"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s @ %s\n", emoji, res.Signal, symbol, formatPrice(res.Price))
	fmt.Fprintf(&b, "Confidence: %d%%  |  Score: %+.2f  |  Profile: %s\n", res.Confidence, res.Score, res.Profile)
	fmt.Fprintf(&b, "Volatility: %.2f%%  |  Evaluation in %s\n", res.Volatility, formatDuration(horizon))

	if len(res.Explanations) > 0 {
		b.WriteString("\nSignals:\n")
		for _, e := range res.Explanations {
			fmt.Fprintf(&b, "  • %s\n", e)
		}
	}

	return Alert{
		Level:   AlertInfo,
		Title:   fmt.Sprintf("%s signal: %s", symbol, res.Signal),
		Message: strings.TrimRight(b.String(), "\n"),
		Fields: map[string]string{
			"symbol":     symbol,
			"signal":     string(res.Signal),
			"confidence": fmt.Sprintf("%d", res.Confidence),
			"price":      formatPrice(res.Price),
		},
	}
}

// FormatEvaluation renders the settlement of a forecast.
func FormatEvaluation(f model.Forecast) Alert {
	emoji, level := "➖", AlertInfo
	switch f.Outcome {
	case model.OutcomeCorrect:
		emoji = "✅"
	case model.OutcomeWrong:
		emoji, level = "❌", AlertWarning
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s forecast %s\n", emoji, f.Symbol, f.Signal, f.Outcome)
	fmt.Fprintf(&b, "Entry %s → Exit %s (%+.2f%%)\n", formatPrice(f.EntryPrice), formatPrice(f.ExitPrice), f.ReturnPct)
	fmt.Fprintf(&b, "P&L: %+.2f", f.PnL)
	if f.StopLossHit {
		b.WriteString("  |  stop loss hit")
	}
	if f.TakeProfitHit {
		b.WriteString("  |  take profit hit")
	}

	return Alert{
		Level:   level,
		Title:   fmt.Sprintf("%s forecast evaluated: %s", f.Symbol, f.Outcome),
		Message: b.String(),
		Fields: map[string]string{
			"symbol":     f.Symbol,
			"signal":     string(f.Signal),
			"outcome":    string(f.Outcome),
			"return_pct": fmt.Sprintf("%+.2f", f.ReturnPct),
		},
	}
}

// FormatReport renders the periodic performance report for a window.
func FormatReport(stats forecast.Stats, window time.Duration) Alert {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Performance over the last %s\n", formatDuration(window))
	fmt.Fprintf(&b, "Evaluated: %d (✅ %d  ❌ %d  ➖ %d)\n", stats.Count, stats.Correct, stats.Wrong, stats.Neutral)
	if stats.Correct+stats.Wrong > 0 {
		fmt.Fprintf(&b, "Hit rate: %.1f%%\n", stats.HitRate)
	} else {
		b.WriteString("Hit rate: n/a (no decided forecasts)\n")
	}
	fmt.Fprintf(&b, "Avg return: %+.2f%%  |  Total P&L: %+.2f", stats.AvgReturn, stats.TotalPnL)

	return Alert{
		Level:   AlertInfo,
		Title:   "Forecast performance report",
		Message: b.String(),
	}
}

// FormatStartup announces service start with its active configuration.
func FormatStartup(markets []string, profile string, horizon time.Duration) Alert {
	return Alert{
		Level: AlertInfo,
		Title: "Signal analyzer started",
		Message: fmt.Sprintf("Watching %s\nProfile: %s  |  Evaluation horizon: %s",
			strings.Join(markets, ", "), profile, formatDuration(horizon)),
	}
}

// formatPrice trims trailing zeros so BTC prints as 68400.5 and micro-cap
// prices keep their precision.
func formatPrice(p float64) string {
	s := strings.TrimRight(fmt.Sprintf("%.8f", p), "0")
	return strings.TrimRight(s, ".")
}

func formatDuration(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	if d >= time.Minute && d%time.Minute == 0 {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	return d.String()
}
