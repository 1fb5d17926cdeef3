package capm

import "math"

// Control names used by the lab front end.
const (
	ControlRiskFreeRate          = "risk_free_rate"
	ControlBeta                  = "beta"
	ControlMarketReturn          = "market_return"
	ControlActualReturn          = "actual_return"
	ControlChallengeRiskFreeRate = "challenge_risk_free_rate"
	ControlChallengeMarketReturn = "challenge_market_return"
	ControlChallengeTargetReturn = "challenge_target_return"
)

// Bounds is the documented range of a numeric control. The range is a soft UI
// limit; the engine itself accepts any real.
type Bounds struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Step    float64 `json:"step"`
	Default float64 `json:"default"`
}

// Clamp limits v to [Min, Max]. NaN clamps to Default.
func (b Bounds) Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return b.Default
	}
	return math.Min(math.Max(v, b.Min), b.Max)
}

// Contains reports whether v lies inside [Min, Max].
func (b Bounds) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// Domains maps control names to their bounds.
type Domains map[string]Bounds

// DefaultDomains returns the slider and number-input table of the lab.
func DefaultDomains() Domains {
	return Domains{
		ControlRiskFreeRate:          {Min: 0.0, Max: 0.15, Step: 0.01, Default: 0.03},
		ControlBeta:                  {Min: -0.5, Max: 2.5, Step: 0.1, Default: 1.0},
		ControlMarketReturn:          {Min: 0.0, Max: 0.20, Step: 0.01, Default: 0.08},
		ControlActualReturn:          {Min: 0.0, Max: 0.30, Step: 0.01, Default: 0.10},
		ControlChallengeRiskFreeRate: {Min: 0.0, Max: 0.15, Step: 0.01, Default: 0.03},
		ControlChallengeMarketReturn: {Min: 0.0, Max: 0.20, Step: 0.01, Default: 0.10},
		ControlChallengeTargetReturn: {Min: 0.0, Max: 0.30, Step: 0.01, Default: 0.12},
	}
}

// ClampInputs clamps every field of in to its slider range.
func (d Domains) ClampInputs(in Inputs) Inputs {
	return Inputs{
		RiskFreeRate: d[ControlRiskFreeRate].Clamp(in.RiskFreeRate),
		Beta:         d[ControlBeta].Clamp(in.Beta),
		MarketReturn: d[ControlMarketReturn].Clamp(in.MarketReturn),
		ActualReturn: d[ControlActualReturn].Clamp(in.ActualReturn),
	}
}

// ClampChallenge clamps every challenge field to its number-input range.
func (d Domains) ClampChallenge(c ChallengeInputs) ChallengeInputs {
	return ChallengeInputs{
		RiskFreeRate: d[ControlChallengeRiskFreeRate].Clamp(c.RiskFreeRate),
		MarketReturn: d[ControlChallengeMarketReturn].Clamp(c.MarketReturn),
		TargetReturn: d[ControlChallengeTargetReturn].Clamp(c.TargetReturn),
	}
}

// DefaultInputs returns the slider defaults as an input tuple.
func (d Domains) DefaultInputs() Inputs {
	return Inputs{
		RiskFreeRate: d[ControlRiskFreeRate].Default,
		Beta:         d[ControlBeta].Default,
		MarketReturn: d[ControlMarketReturn].Default,
		ActualReturn: d[ControlActualReturn].Default,
	}
}

// DefaultChallenge returns the challenge calculator defaults.
func (d Domains) DefaultChallenge() ChallengeInputs {
	return ChallengeInputs{
		RiskFreeRate: d[ControlChallengeRiskFreeRate].Default,
		MarketReturn: d[ControlChallengeMarketReturn].Default,
		TargetReturn: d[ControlChallengeTargetReturn].Default,
	}
}
