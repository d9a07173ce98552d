package forecast

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"signal-analyzer/internal/model"
)

// Outcome band: moves inside +/- this percentage count as NEUTRAL.
const neutralBandPct = 0.3

// EvalParams fixes the risk frame applied at settlement time.
type EvalParams struct {
	StopLossPct   float64 // percent distance from entry, e.g. 1.5
	TakeProfitPct float64 // percent distance from entry, e.g. 3.0
	TradeSize     float64 // notional per forecast for P&L accounting
}

// PriceSource supplies the current price for a symbol.
type PriceSource interface {
	Price(ctx context.Context, symbol string) (float64, error)
}

// Settle computes the evaluated form of a pending forecast from a single
// price sample taken at (or after) the forecast's horizon.
//
// The exit price is a point sample, not the traded path, so stop-loss and
// take-profit hits are approximations: a wick through the stop that recovered
// by the horizon is not seen. When the sample lands beyond a threshold, P&L
// is clamped to what the protective order would have realized, with the
// take-profit clamp applied last when both thresholds are crossed.
func Settle(f model.Forecast, exitPrice float64, p EvalParams) model.Forecast {
	returnPct := (exitPrice - f.EntryPrice) / f.EntryPrice * 100

	var slHit, tpHit bool
	var directional float64 // favorable return in percent

	if f.Signal == model.SignalBuy {
		stopPrice := f.EntryPrice * (1 - p.StopLossPct/100)
		targetPrice := f.EntryPrice * (1 + p.TakeProfitPct/100)
		slHit = exitPrice <= stopPrice
		tpHit = exitPrice >= targetPrice
		directional = returnPct
	} else {
		stopPrice := f.EntryPrice * (1 + p.StopLossPct/100)
		targetPrice := f.EntryPrice * (1 - p.TakeProfitPct/100)
		slHit = exitPrice >= stopPrice
		tpHit = exitPrice <= targetPrice
		directional = -returnPct
	}

	pnl := p.TradeSize * directional / 100
	if slHit {
		pnl = -p.TradeSize * p.StopLossPct / 100
	}
	if tpHit {
		pnl = p.TradeSize * p.TakeProfitPct / 100
	}

	outcome := model.OutcomeNeutral
	if directional > neutralBandPct {
		outcome = model.OutcomeCorrect
	} else if directional < -neutralBandPct {
		outcome = model.OutcomeWrong
	}

	f.Status = model.StatusEvaluated
	f.ExitPrice = exitPrice
	f.ReturnPct = returnPct
	f.Outcome = outcome
	f.StopLossHit = slHit
	f.TakeProfitHit = tpHit
	f.PnL = pnl
	return f
}

// DirectionalReturn is the forecast's return in the direction it called:
// positive when the call was right, negative when it was wrong. For SELL
// forecasts this is the negated price return.
func DirectionalReturn(f model.Forecast) float64 {
	if f.Signal == model.SignalSell {
		return -f.ReturnPct
	}
	return f.ReturnPct
}

// Evaluator settles due forecasts against live prices.
type Evaluator struct {
	store  *Store
	prices PriceSource
	params EvalParams
}

// NewEvaluator wires an evaluator over a store and a price source.
func NewEvaluator(store *Store, prices PriceSource, params EvalParams) *Evaluator {
	return &Evaluator{store: store, prices: prices, params: params}
}

// SweepDue settles every forecast whose horizon has passed and returns the
// newly evaluated records. A price fetch failure skips that forecast; it
// stays PENDING and is retried on the next sweep. A lost MarkEvaluated race
// is dropped silently since the winner already recorded the settlement.
func (e *Evaluator) SweepDue(ctx context.Context, now time.Time) ([]model.Forecast, error) {
	due, err := e.store.Due(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("query due forecasts: %w", err)
	}

	var settled []model.Forecast
	for _, f := range due {
		price, err := e.prices.Price(ctx, f.Symbol)
		if err != nil {
			log.Printf("[evaluator] price fetch failed for %s (forecast %d), will retry: %v", f.Symbol, f.ID, err)
			continue
		}
		if price <= 0 || math.IsNaN(price) {
			log.Printf("[evaluator] unusable price %v for %s (forecast %d), will retry", price, f.Symbol, f.ID)
			continue
		}

		evaluated := Settle(f, price, e.params)
		if err := e.store.MarkEvaluated(ctx, evaluated); err != nil {
			if errors.Is(err, ErrAlreadyEvaluated) {
				continue
			}
			return settled, fmt.Errorf("mark forecast %d evaluated: %w", f.ID, err)
		}
		settled = append(settled, evaluated)
	}
	return settled, nil
}
