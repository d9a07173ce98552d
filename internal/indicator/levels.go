package indicator

import "signal-analyzer/internal/model"

// SupportResistance detects swing levels from a candle sequence.
//
// A candle is a support point when its low is the minimum low within the
// symmetric window [i-lookback, i+lookback], and a resistance point when its
// high is the window maximum. The aggregate level of each kind is the mean of
// the last three detected points, or 0 when none were detected.
func SupportResistance(candles []model.Candle, lookback int) (support, resistance float64) {
	var supports, resistances []float64

	for i := lookback; i < len(candles)-lookback; i++ {
		isSupport := true
		isResistance := true
		for j := i - lookback; j <= i+lookback; j++ {
			if candles[j].Low < candles[i].Low {
				isSupport = false
			}
			if candles[j].High > candles[i].High {
				isResistance = false
			}
		}
		if isSupport {
			supports = append(supports, candles[i].Low)
		}
		if isResistance {
			resistances = append(resistances, candles[i].High)
		}
	}

	return meanOfTail(supports, 3), meanOfTail(resistances, 3)
}

func meanOfTail(values []float64, n int) float64 {
	if len(values) == 0 {
		return 0
	}
	if len(values) > n {
		values = values[len(values)-n:]
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
