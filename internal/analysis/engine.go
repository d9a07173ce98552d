// Package analysis implements the weighted multi-indicator scoring engine.
//
// Analyze converts a candle history and a risk profile into a classified
// BUY/SELL/HOLD signal with a confidence score. The engine is pure: it takes
// the profile as an explicit argument and reads no ambient state, so results
// are deterministic for a given input.
package analysis

import (
	"fmt"
	"math"

	"signal-analyzer/internal/indicator"
	"signal-analyzer/internal/model"
)

// Default indicator parameters.
const (
	rsiPeriod       = 14
	macdFast        = 12
	macdSlow        = 26
	macdSignal      = 9
	emaFastPeriod   = 20
	emaSlowPeriod   = 50
	smaTrendPeriod  = 200
	bollingerPeriod = 20
	bollingerMult   = 2.0
	volumePeriod    = 20
	srLookback      = 5
	volatilityCap   = 20 // returns window for volatility
)

// Component is one indicator's contribution to the composite score.
type Component struct {
	Name   string  `json:"name"`
	Score  float64 `json:"score"`  // in [-1, 1]
	Weight float64 `json:"weight"` // profile weight, >= 0
}

// Result is the immutable output of one analysis run.
type Result struct {
	Signal       model.Signal `json:"signal"`
	Confidence   int          `json:"confidence"` // 0-100
	Score        float64      `json:"score"`      // composite, weight-normalized
	Components   []Component  `json:"components"`
	Explanations []string     `json:"explanations"`
	Volatility   float64      `json:"volatility"` // RMS of pct returns, in %
	Price        float64      `json:"price"`
	Profile      string       `json:"profile"`
}

// Analyze scores a candle history against a risk profile.
//
// Indicators that cannot produce a defined value (insufficient history) are
// silently excluded; a short history therefore degrades to HOLD with low
// confidence rather than failing. Candles must be ordered oldest to newest.
func Analyze(candles []model.Candle, profile Profile) Result {
	res := Result{
		Signal:  model.SignalHold,
		Profile: profile.Key,
	}
	if len(candles) == 0 {
		return res
	}

	closes := model.Closes(candles)
	res.Price = closes[len(closes)-1]

	var components []Component
	var explanations []string
	add := func(name, weightKey string, score float64, explanation string) {
		components = append(components, Component{
			Name:   name,
			Score:  score,
			Weight: profile.Weights[weightKey],
		})
		explanations = append(explanations, explanation)
	}

	// RSI
	if rsi, ok := indicator.RSI(closes, rsiPeriod).Last(); ok {
		score, label := scoreRSI(rsi, profile)
		add("RSI", WeightRSI, score, fmt.Sprintf("RSI %.1f - %s", rsi, label))
	}

	// MACD line vs signal, with weak-momentum dampening.
	macd := indicator.MACD(closes, macdFast, macdSlow, macdSignal)
	if line, ok := macd.Line.Last(); ok {
		if sig, ok := macd.Signal.Last(); ok {
			var score float64
			var label string
			switch {
			case line > sig:
				score, label = 0.8, "above signal, bullish"
			case line < sig:
				score, label = -0.8, "below signal, bearish"
			default:
				score, label = 0, "on signal, flat"
			}
			if hist, ok := macd.Histogram.Last(); ok && math.Abs(hist) < math.Abs(line)*0.05 {
				score *= 0.35
				label += " (weak momentum)"
			}
			add("MACD", WeightMACD, score, "MACD "+label)
		}
	}

	// EMA 20/50 cross.
	if fast, ok := indicator.EMA(closes, emaFastPeriod).Last(); ok {
		if slow, ok := indicator.EMA(closes, emaSlowPeriod).Last(); ok {
			var score float64
			var label string
			switch {
			case fast > slow:
				score, label = 0.7, "uptrend"
			case fast < slow:
				score, label = -0.7, "downtrend"
			default:
				score, label = 0, "flat"
			}
			add("EMA20/50", WeightEMA, score, fmt.Sprintf("EMA20 vs EMA50 - %s", label))
		}
	}

	// Price vs long trend SMA. The period adapts down so short histories
	// still produce a trend reading.
	trendPeriod := smaTrendPeriod
	if len(closes) < trendPeriod {
		trendPeriod = len(closes)
	}
	if sma, ok := indicator.SMA(closes, trendPeriod).Last(); ok {
		var score float64
		var label string
		switch {
		case res.Price > sma:
			score, label = 0.6, "above SMA200, bullish"
		case res.Price < sma:
			score, label = -0.6, "below SMA200, bearish"
		default:
			score, label = 0, "on SMA200"
		}
		add("SMA200", WeightSMA, score, "Price "+label)
	}

	// Support/resistance zone position.
	if support, resistance := indicator.SupportResistance(candles, srLookback); support > 0 && resistance > support {
		pos := (res.Price - support) / (resistance - support)
		var score float64
		var label string
		switch {
		case pos < 0.2:
			score, label = 0.85, "price near support"
		case pos > 0.8:
			score, label = -0.85, "price near resistance"
		case pos < 0.5:
			score, label = 0.25, "price in lower S/R half"
		default:
			score, label = -0.25, "price in upper S/R half"
		}
		add("S/R Zone", WeightSR, score, label)
	}

	// Bollinger %B.
	bands := indicator.Bollinger(closes, bollingerPeriod, bollingerMult)
	if pb, ok := bands.PercentB.Last(); ok {
		var score float64
		var label string
		switch {
		case pb < 0.1:
			score, label = 0.9, "deep below lower band"
		case pb < 0.2:
			score, label = 0.5, "near lower band"
		case pb > 0.9:
			score, label = -0.9, "far above upper band"
		case pb > 0.8:
			score, label = -0.5, "near upper band"
		default:
			score, label = 0, "inside bands"
		}
		add("Bollinger", WeightBB, score, fmt.Sprintf("%%B %.2f - %s", pb, label))
	}

	// Volume conviction, sign already carries candle direction.
	if vol, ok := indicator.VolumeSignal(candles, volumePeriod).Last(); ok {
		label := "volume confirms move"
		if vol == 0 {
			label = "volume flat"
		}
		add("Volume", WeightVolume, vol, label)
	}

	res.Components = components
	res.Explanations = explanations
	res.Score = composite(components)
	res.Volatility = volatility(closes)
	res.Signal, res.Confidence = classify(res.Score, profile.SignalThreshold)
	return res
}

// scoreRSI maps the latest RSI value into [-1, 1] using the profile's bands.
func scoreRSI(rsi float64, p Profile) (float64, string) {
	switch {
	case rsi < p.RSIOversold-10:
		return 1.0, "strongly oversold"
	case rsi < p.RSIOversold:
		return 0.7, "oversold"
	case rsi > p.RSIOverbought+10:
		return -1.0, "strongly overbought"
	case rsi > p.RSIOverbought:
		return -0.7, "overbought"
	case rsi < 48:
		return 0.2, "slightly weak"
	case rsi > 52:
		return -0.2, "slightly strong"
	default:
		return 0, "neutral"
	}
}

// composite renormalizes the weighted sum over the components that fired.
// A zero weight sum falls back to 1 so an all-zero-weight configuration
// cannot divide by zero.
func composite(components []Component) float64 {
	totalWeight := 0.0
	weighted := 0.0
	for _, c := range components {
		totalWeight += c.Weight
		weighted += c.Score * c.Weight
	}
	if totalWeight == 0 {
		totalWeight = 1
	}
	return weighted / totalWeight
}

// volatility is the root-mean-square of percentage returns over the last
// min(20, n-1) candles, expressed as a percentage.
func volatility(closes []float64) float64 {
	n := len(closes)
	if n < 2 {
		return 0
	}
	start := n - volatilityCap
	if start < 1 {
		start = 1
	}
	sumSq := 0.0
	count := 0
	for i := start; i < n; i++ {
		r := (closes[i] - closes[i-1]) / closes[i-1]
		sumSq += r * r
		count++
	}
	return math.Sqrt(sumSq/float64(count)) * 100
}

// classify maps the composite score to a signal and confidence against the
// profile threshold. BUY requires score > threshold (so a BUY's composite is
// always positive), SELL is the mirror, anything else is HOLD.
func classify(score, threshold float64) (model.Signal, int) {
	abs := math.Abs(score)
	switch {
	case score > threshold:
		return model.SignalBuy, int(math.Round(math.Min(50+score*50, 95)))
	case score < -threshold:
		return model.SignalSell, int(math.Round(math.Min(50+abs*50, 95)))
	default:
		return model.SignalHold, int(math.Round(math.Max(38, 50-abs*70)))
	}
}
