package forecast

import "signal-analyzer/internal/model"

// Stats summarizes evaluated forecasts over a reporting window.
type Stats struct {
	Count     int     `json:"count"`      // evaluated forecasts in the window
	Correct   int     `json:"correct"`
	Wrong     int     `json:"wrong"`
	Neutral   int     `json:"neutral"`
	HitRate   float64 `json:"hit_rate"`   // CORRECT / (CORRECT + WRONG), in percent
	AvgReturn float64 `json:"avg_return"` // mean directional return, in percent
	TotalPnL  float64 `json:"total_pnl"`
}

// Aggregate folds evaluated forecasts into window statistics. NEUTRAL
// outcomes count toward volume and returns but are excluded from the hit
// rate denominator, so a run of small moves cannot dilute accuracy. An
// empty or all-neutral window reports a zero hit rate.
func Aggregate(forecasts []model.Forecast) Stats {
	var s Stats
	sumReturn := 0.0

	for _, f := range forecasts {
		if !f.Evaluated() {
			continue
		}
		s.Count++
		sumReturn += DirectionalReturn(f)
		s.TotalPnL += f.PnL

		switch f.Outcome {
		case model.OutcomeCorrect:
			s.Correct++
		case model.OutcomeWrong:
			s.Wrong++
		default:
			s.Neutral++
		}
	}

	if s.Count > 0 {
		s.AvgReturn = sumReturn / float64(s.Count)
	}
	if decided := s.Correct + s.Wrong; decided > 0 {
		s.HitRate = float64(s.Correct) / float64(decided) * 100
	}
	return s
}
