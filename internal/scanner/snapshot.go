package scanner

import (
	"encoding/json"
	"time"

	"signal-analyzer/internal/analysis"
)

// analysisJSON renders the per-symbol snapshot stored in Redis.
func analysisJSON(symbol string, res analysis.Result, ts time.Time) []byte {
	b, _ := json.Marshal(struct {
		Symbol string `json:"symbol"`
		Ts     string `json:"ts"`
		analysis.Result
	}{
		Symbol: symbol,
		Ts:     ts.UTC().Format(time.RFC3339),
		Result: res,
	})
	return b
}
