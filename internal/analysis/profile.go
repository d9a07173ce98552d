package analysis

// Profile is a named risk configuration controlling signal sensitivity.
// Weights are per-indicator and need not sum to 1; the engine renormalizes
// over the components that actually fire.
type Profile struct {
	Key             string
	Label           string
	SignalThreshold float64
	RSIOversold     float64
	RSIOverbought   float64
	Weights         map[string]float64
}

// Weight keys used by the scoring engine.
const (
	WeightRSI    = "RSI"
	WeightMACD   = "MACD"
	WeightEMA    = "EMA"
	WeightSMA    = "SMA"
	WeightSR     = "SR"
	WeightBB     = "BB"
	WeightVolume = "VOL"
)

// Predefined profile keys.
const (
	ProfileConservative = "conservative"
	ProfileBalanced     = "balanced"
	ProfileAggressive   = "aggressive"
)

// Profiles holds the three predefined risk profiles.
var Profiles = map[string]Profile{
	ProfileConservative: {
		Key:             ProfileConservative,
		Label:           "Conservative",
		SignalThreshold: 0.5,
		RSIOversold:     25,
		RSIOverbought:   75,
		Weights: map[string]float64{
			WeightRSI: 0.30, WeightMACD: 0.20, WeightEMA: 0.20,
			WeightSMA: 0.20, WeightSR: 0.10, WeightBB: 0.10, WeightVolume: 0.05,
		},
	},
	ProfileBalanced: {
		Key:             ProfileBalanced,
		Label:           "Balanced",
		SignalThreshold: 0.3,
		RSIOversold:     35,
		RSIOverbought:   65,
		Weights: map[string]float64{
			WeightRSI: 0.25, WeightMACD: 0.25, WeightEMA: 0.20,
			WeightSMA: 0.15, WeightSR: 0.15, WeightBB: 0.15, WeightVolume: 0.10,
		},
	},
	ProfileAggressive: {
		Key:             ProfileAggressive,
		Label:           "Aggressive",
		SignalThreshold: 0.15,
		RSIOversold:     45,
		RSIOverbought:   55,
		Weights: map[string]float64{
			WeightRSI: 0.20, WeightMACD: 0.30, WeightEMA: 0.25,
			WeightSMA: 0.10, WeightSR: 0.15, WeightBB: 0.15, WeightVolume: 0.15,
		},
	},
}

// ProfileFor returns the profile for key, falling back to balanced for
// unknown keys so a misconfigured deployment still produces sane signals.
func ProfileFor(key string) Profile {
	if p, ok := Profiles[key]; ok {
		return p
	}
	return Profiles[ProfileBalanced]
}
