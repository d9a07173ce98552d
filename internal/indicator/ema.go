package indicator

// EMA computes the exponential moving average of values.
// The series is seeded with the SMA of the first period values at index
// period-1; later positions use the standard recurrence with smoothing
// factor k = 2/(period+1):
//
//	ema[i] = value[i]*k + ema[i-1]*(1-k)
//
// Every index before the seed is undefined. EMA is path-dependent on the
// whole prefix: computing it over a shorter slice yields different values
// than slicing a longer computation, so callers must pass full history.
func EMA(values []float64, period int) Series {
	out := newSeries(len(values))
	if period <= 0 || len(values) < period {
		return out
	}

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	out[period-1] = sum / float64(period)

	k := 2.0 / float64(period+1)
	for i := period; i < len(values); i++ {
		out[i] = values[i]*k + out[i-1]*(1-k)
	}
	return out
}
