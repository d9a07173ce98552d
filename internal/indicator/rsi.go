package indicator

// RSI computes the Relative Strength Index using Wilder's smoothing method.
// The seed averages are simple means of the positive and negative deltas over
// the first period price changes (losses stored as positive magnitudes), so
// the first defined value sits at index period. Thereafter:
//
//	avgGain = (avgGain*(period-1) + gain) / period
//
// and symmetrically for losses. When avgLoss is zero but gains exist, the
// relative strength is treated as infinite and RSI is 100; a window with no
// movement at all reads 50. There is never a division by zero.
func RSI(closes []float64, period int) Series {
	out := newSeries(len(closes))
	if period <= 0 || len(closes) < period+1 {
		return out
	}

	avgGain := 0.0
	avgLoss := 0.0
	for i := 1; i <= period; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss -= delta
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	p := float64(period)
	for i := period + 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			// No movement at all in the window: neutral, not overbought.
			return 50.0
		}
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}
