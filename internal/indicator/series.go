// Package indicator provides technical indicator calculations over candle data.
//
// All functions are pure: they take a full-length input series and return a
// Series of the same length. Positions without enough trailing history are
// undefined (NaN), never zero, so absence propagates through every derived
// calculation. Callers must always supply the complete available history;
// recursive indicators such as EMA depend on the entire prefix.
package indicator

import "math"

// Series is an index-aligned sequence of indicator values. Undefined
// positions hold NaN.
type Series []float64

// undefined marks a position with insufficient history.
var undefined = math.NaN()

// Defined reports whether v is a computed value (not NaN).
func Defined(v float64) bool {
	return !math.IsNaN(v)
}

// newSeries allocates a fully-undefined series of length n.
func newSeries(n int) Series {
	s := make(Series, n)
	for i := range s {
		s[i] = undefined
	}
	return s
}

// At returns the value at index i and whether it is defined.
// Out-of-range indices are undefined.
func (s Series) At(i int) (float64, bool) {
	if i < 0 || i >= len(s) {
		return 0, false
	}
	if !Defined(s[i]) {
		return 0, false
	}
	return s[i], true
}

// Last returns the latest defined value in the series, scanning backwards.
func (s Series) Last() (float64, bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if Defined(s[i]) {
			return s[i], true
		}
	}
	return 0, false
}

// compact returns the defined values of s in order, dropping undefined entries.
func (s Series) compact() []float64 {
	out := make([]float64, 0, len(s))
	for _, v := range s {
		if Defined(v) {
			out = append(out, v)
		}
	}
	return out
}
