package indicator

// MACDResult holds the three index-aligned MACD series.
type MACDResult struct {
	Line      Series
	Signal    Series
	Histogram Series
}

// MACD computes Moving Average Convergence Divergence.
//
// The MACD line is EMA(fast) - EMA(slow) pointwise, undefined wherever either
// operand is undefined. The signal line is an EMA over the compacted sequence
// of defined MACD values only; the compacted result is then re-expanded back
// to the original index positions by advancing a cursor wherever the MACD
// line itself is defined. Index equality between the two sequences is never
// assumed. Histogram = line - signal, pointwise.
func MACD(closes []float64, fast, slow, signal int) MACDResult {
	n := len(closes)
	line := newSeries(n)

	emaFast := EMA(closes, fast)
	emaSlow := EMA(closes, slow)
	for i := 0; i < n; i++ {
		if Defined(emaFast[i]) && Defined(emaSlow[i]) {
			line[i] = emaFast[i] - emaSlow[i]
		}
	}

	// Signal line over the compacted MACD values, re-expanded via cursor.
	compactSignal := EMA(line.compact(), signal)
	sig := newSeries(n)
	cursor := 0
	for i := 0; i < n; i++ {
		if !Defined(line[i]) {
			continue
		}
		if cursor < len(compactSignal) {
			sig[i] = compactSignal[cursor]
		}
		cursor++
	}

	hist := newSeries(n)
	for i := 0; i < n; i++ {
		if Defined(line[i]) && Defined(sig[i]) {
			hist[i] = line[i] - sig[i]
		}
	}

	return MACDResult{Line: line, Signal: sig, Histogram: hist}
}
