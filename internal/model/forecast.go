package model

import (
	"encoding/json"
	"time"
)

// Signal is the directional classification produced by the scoring engine.
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
	SignalHold Signal = "HOLD"
)

// ForecastStatus is the lifecycle state of a persisted forecast.
// The only legal transition is PENDING → EVALUATED; forecasts are never deleted.
type ForecastStatus string

const (
	StatusPending   ForecastStatus = "PENDING"
	StatusEvaluated ForecastStatus = "EVALUATED"
)

// Outcome classifies an evaluated forecast against its entry price.
type Outcome string

const (
	OutcomeCorrect Outcome = "CORRECT"
	OutcomeWrong   Outcome = "WRONG"
	OutcomeNeutral Outcome = "NEUTRAL"
)

// Forecast is a persisted record of an emitted signal awaiting (or holding)
// its outcome evaluation. Evaluation fields (ExitPrice, ReturnPct, Outcome,
// StopLossHit, TakeProfitHit, PnL) are meaningful only when Status is EVALUATED.
type Forecast struct {
	ID          int64          `json:"id"`
	Symbol      string         `json:"symbol"`
	Signal      Signal         `json:"signal"` // BUY or SELL, never HOLD
	Confidence  int            `json:"confidence"`
	EntryPrice  float64        `json:"entry_price"`
	RiskProfile string         `json:"risk_profile"`
	CreatedAt   time.Time      `json:"created_at"`
	EvalAt      time.Time      `json:"eval_at"`
	Status      ForecastStatus `json:"status"`

	ExitPrice     float64 `json:"exit_price,omitempty"`
	ReturnPct     float64 `json:"return_pct,omitempty"`
	Outcome       Outcome `json:"outcome,omitempty"`
	StopLossHit   bool    `json:"stop_loss_hit,omitempty"`
	TakeProfitHit bool    `json:"take_profit_hit,omitempty"`
	PnL           float64 `json:"pnl,omitempty"`
}

// Evaluated reports whether the forecast has reached its terminal state.
func (f *Forecast) Evaluated() bool {
	return f.Status == StatusEvaluated
}

// JSON returns the JSON-encoded forecast (ignoring errors for hot-path usage).
func (f *Forecast) JSON() []byte {
	b, _ := json.Marshal(f)
	return b
}
