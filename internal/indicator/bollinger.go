package indicator

import "math"

// BollingerResult holds the Bollinger band series for one input.
type BollingerResult struct {
	Mid      Series // rolling mean (SMA)
	Upper    Series // mid + k*stddev
	Lower    Series // mid - k*stddev
	PercentB Series // (close-lower)/(upper-lower); undefined where width is zero
}

// Bollinger computes Bollinger Bands over closes with the given period and
// standard deviation multiplier. The rolling standard deviation is the
// population deviation over the same window as the SMA.
func Bollinger(closes []float64, period int, mult float64) BollingerResult {
	n := len(closes)
	res := BollingerResult{
		Mid:      SMA(closes, period),
		Upper:    newSeries(n),
		Lower:    newSeries(n),
		PercentB: newSeries(n),
	}
	if period <= 0 || n < period {
		return res
	}

	for i := period - 1; i < n; i++ {
		mean := res.Mid[i]
		variance := 0.0
		for j := i - period + 1; j <= i; j++ {
			d := closes[j] - mean
			variance += d * d
		}
		sd := math.Sqrt(variance / float64(period))

		res.Upper[i] = mean + mult*sd
		res.Lower[i] = mean - mult*sd

		width := res.Upper[i] - res.Lower[i]
		if width != 0 {
			res.PercentB[i] = (closes[i] - res.Lower[i]) / width
		}
	}
	return res
}
