package indicator

import "signal-analyzer/internal/model"

// VolumeSignal scores each candle's volume against its trailing average.
//
// The ratio is volume / SMA(volume, period). Magnitude thresholds:
//
//	ratio > 1.5 → 0.8
//	ratio > 1.2 → 0.4
//	ratio < 0.6 → 0.0 (flat volume carries no conviction either way)
//	otherwise   → 0.2
//
// The sign follows the candle direction: close at or above open is positive.
// Undefined wherever the volume average is undefined or non-positive.
func VolumeSignal(candles []model.Candle, period int) Series {
	out := newSeries(len(candles))

	volumes := make([]float64, len(candles))
	for i := range candles {
		volumes[i] = candles[i].Volume
	}
	avg := SMA(volumes, period)

	for i := range candles {
		mean, ok := avg.At(i)
		if !ok || mean <= 0 {
			continue
		}
		ratio := candles[i].Volume / mean

		var magnitude float64
		switch {
		case ratio > 1.5:
			magnitude = 0.8
		case ratio > 1.2:
			magnitude = 0.4
		case ratio < 0.6:
			magnitude = 0.0
		default:
			magnitude = 0.2
		}

		if candles[i].Bullish() {
			out[i] = magnitude
		} else {
			out[i] = -magnitude
		}
	}
	return out
}
