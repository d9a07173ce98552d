package forecast

import (
	"math"
	"testing"
	"time"

	"signal-analyzer/internal/model"
)

var testParams = EvalParams{
	StopLossPct:   1.5,
	TakeProfitPct: 3.0,
	TradeSize:     1000,
}

func pendingForecast(signal model.Signal, entry float64) model.Forecast {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return model.Forecast{
		ID:          1,
		Symbol:      "BTCUSDT",
		Signal:      signal,
		Confidence:  80,
		EntryPrice:  entry,
		RiskProfile: "balanced",
		CreatedAt:   created,
		EvalAt:      created.Add(4 * time.Hour),
		Status:      model.StatusPending,
	}
}

func TestSettle_BuyStopLossClampsLoss(t *testing.T) {
	// Exit at 97 on a BUY from 100: the raw move is -3% but the stop at
	// 98.5 would have closed the position at -1.5%.
	got := Settle(pendingForecast(model.SignalBuy, 100), 97, testParams)

	if !got.StopLossHit {
		t.Fatal("expected stop loss hit at exit 97")
	}
	if got.TakeProfitHit {
		t.Fatal("take profit cannot hit on a 3% drop")
	}
	if math.Abs(got.PnL - -15.0) > 1e-9 {
		t.Errorf("expected PnL -15.00 (stop clamp on 1000), got %v", got.PnL)
	}
	if got.Outcome != model.OutcomeWrong {
		t.Errorf("expected WRONG, got %s", got.Outcome)
	}
	if math.Abs(got.ReturnPct - -3.0) > 1e-9 {
		t.Errorf("expected raw return -3%%, got %v", got.ReturnPct)
	}
	if got.Status != model.StatusEvaluated {
		t.Errorf("expected EVALUATED status, got %s", got.Status)
	}
}

func TestSettle_BuyTakeProfitClampsGain(t *testing.T) {
	got := Settle(pendingForecast(model.SignalBuy, 100), 105, testParams)

	if !got.TakeProfitHit || got.StopLossHit {
		t.Fatalf("expected TP only, got sl=%v tp=%v", got.StopLossHit, got.TakeProfitHit)
	}
	if math.Abs(got.PnL-30.0) > 1e-9 {
		t.Errorf("expected PnL 30.00 (target clamp), got %v", got.PnL)
	}
	if got.Outcome != model.OutcomeCorrect {
		t.Errorf("expected CORRECT, got %s", got.Outcome)
	}
}

func TestSettle_BuyInsideBands(t *testing.T) {
	got := Settle(pendingForecast(model.SignalBuy, 100), 101, testParams)

	if got.StopLossHit || got.TakeProfitHit {
		t.Fatal("no protective level crossed at +1%")
	}
	if math.Abs(got.PnL-10.0) > 1e-9 {
		t.Errorf("expected raw PnL 10.00, got %v", got.PnL)
	}
	if got.Outcome != model.OutcomeCorrect {
		t.Errorf("expected CORRECT at +1%%, got %s", got.Outcome)
	}
}

func TestSettle_NeutralBand(t *testing.T) {
	cases := []struct {
		exit float64
		want model.Outcome
	}{
		{100.2, model.OutcomeNeutral},
		{99.8, model.OutcomeNeutral},
		{100.3, model.OutcomeNeutral}, // boundary is exclusive
		{100.31, model.OutcomeCorrect},
		{99.69, model.OutcomeWrong},
	}
	for _, c := range cases {
		got := Settle(pendingForecast(model.SignalBuy, 100), c.exit, testParams)
		if got.Outcome != c.want {
			t.Errorf("exit %v: expected %s, got %s", c.exit, c.want, got.Outcome)
		}
	}
}

func TestSettle_SellMirrorsBuy(t *testing.T) {
	// A SELL from 100 profits on the way down. Stop sits at 101.5,
	// target at 97.
	got := Settle(pendingForecast(model.SignalSell, 100), 102, testParams)
	if !got.StopLossHit {
		t.Fatal("expected stop loss on a SELL with price up 2%")
	}
	if math.Abs(got.PnL - -15.0) > 1e-9 {
		t.Errorf("expected PnL -15.00, got %v", got.PnL)
	}
	if got.Outcome != model.OutcomeWrong {
		t.Errorf("expected WRONG, got %s", got.Outcome)
	}

	got = Settle(pendingForecast(model.SignalSell, 100), 96, testParams)
	if !got.TakeProfitHit {
		t.Fatal("expected take profit on a SELL with price down 4%")
	}
	if math.Abs(got.PnL-30.0) > 1e-9 {
		t.Errorf("expected PnL 30.00, got %v", got.PnL)
	}
	if got.Outcome != model.OutcomeCorrect {
		t.Errorf("expected CORRECT, got %s", got.Outcome)
	}
	if math.Abs(got.ReturnPct - -4.0) > 1e-9 {
		t.Errorf("raw return keeps price direction, expected -4%%, got %v", got.ReturnPct)
	}
}

func TestSettle_ClampOrderDirect(t *testing.T) {
	// Zero-distance levels make any move cross both; the take-profit
	// clamp must be the one that sticks.
	params := EvalParams{StopLossPct: 0, TakeProfitPct: 0, TradeSize: 1000}
	got := Settle(pendingForecast(model.SignalBuy, 100), 101, params)
	if !got.StopLossHit || !got.TakeProfitHit {
		t.Fatalf("expected both levels crossed, got sl=%v tp=%v", got.StopLossHit, got.TakeProfitHit)
	}
	if got.PnL != 0 {
		t.Errorf("expected take-profit clamp (0) to win, got %v", got.PnL)
	}
}

func TestDirectionalReturn(t *testing.T) {
	buy := model.Forecast{Signal: model.SignalBuy, ReturnPct: -2}
	if DirectionalReturn(buy) != -2 {
		t.Errorf("BUY keeps raw return, got %v", DirectionalReturn(buy))
	}
	sell := model.Forecast{Signal: model.SignalSell, ReturnPct: -2}
	if DirectionalReturn(sell) != 2 {
		t.Errorf("SELL negates raw return, got %v", DirectionalReturn(sell))
	}
}

func TestAggregate_WindowStats(t *testing.T) {
	evaluated := func(sig model.Signal, outcome model.Outcome, retPct, pnl float64) model.Forecast {
		return model.Forecast{
			Signal: sig, Status: model.StatusEvaluated,
			Outcome: outcome, ReturnPct: retPct, PnL: pnl,
		}
	}

	stats := Aggregate([]model.Forecast{
		evaluated(model.SignalBuy, model.OutcomeCorrect, 2.0, 20),
		evaluated(model.SignalSell, model.OutcomeCorrect, -1.0, 10),
		evaluated(model.SignalBuy, model.OutcomeWrong, -1.5, -15),
		evaluated(model.SignalBuy, model.OutcomeNeutral, 0.1, 1),
		{Signal: model.SignalBuy, Status: model.StatusPending}, // ignored
	})

	if stats.Count != 4 {
		t.Errorf("expected 4 evaluated, got %d", stats.Count)
	}
	if stats.Correct != 2 || stats.Wrong != 1 || stats.Neutral != 1 {
		t.Errorf("outcome split wrong: %+v", stats)
	}
	// Hit rate excludes the NEUTRAL: 2 of 3 decided.
	if math.Abs(stats.HitRate-200.0/3.0) > 1e-9 {
		t.Errorf("expected hit rate 66.67, got %v", stats.HitRate)
	}
	// Directional returns: 2.0, 1.0, -1.5, 0.1 over 4 forecasts.
	if math.Abs(stats.AvgReturn-0.4) > 1e-9 {
		t.Errorf("expected avg return 0.4, got %v", stats.AvgReturn)
	}
	if math.Abs(stats.TotalPnL-16.0) > 1e-9 {
		t.Errorf("expected total PnL 16, got %v", stats.TotalPnL)
	}
}

func TestAggregate_EmptyAndAllNeutral(t *testing.T) {
	if s := Aggregate(nil); s.Count != 0 || s.HitRate != 0 {
		t.Errorf("empty window must be all zero, got %+v", s)
	}

	s := Aggregate([]model.Forecast{
		{Signal: model.SignalBuy, Status: model.StatusEvaluated, Outcome: model.OutcomeNeutral},
	})
	if s.HitRate != 0 {
		t.Errorf("all-neutral window must report zero hit rate, got %v", s.HitRate)
	}
	if s.Count != 1 {
		t.Errorf("neutral still counts toward volume, got %d", s.Count)
	}
}
