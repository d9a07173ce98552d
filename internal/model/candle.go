package model

import "encoding/json"

// Candle represents one interval's OHLCV sample for a single symbol.
// Time is the bucket open time in epoch milliseconds, as delivered by the
// market-data API. Candle sequences are always ordered oldest to newest.
type Candle struct {
	Time   int64   `json:"time"` // epoch ms
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// Bullish reports whether the candle closed at or above its open.
func (c *Candle) Bullish() bool {
	return c.Close >= c.Open
}

// JSON returns the JSON-encoded candle (ignoring errors for hot-path usage).
func (c *Candle) JSON() []byte {
	b, _ := json.Marshal(c)
	return b
}

// Closes extracts the close price series from a candle sequence.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i := range candles {
		out[i] = candles[i].Close
	}
	return out
}
