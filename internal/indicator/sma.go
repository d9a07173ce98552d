package indicator

// SMA computes the simple moving average of values over a trailing window.
// Defined from index period-1 onward. Uses a rolling sum for O(n) total work.
func SMA(values []float64, period int) Series {
	out := newSeries(len(values))
	if period <= 0 || len(values) < period {
		return out
	}

	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}
