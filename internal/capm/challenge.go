package capm

import "math"

// Required-beta interpretations shown by the challenge calculator.
const (
	StrategyUnrealistic = "unrealistic"
	StrategyAggressive  = "aggressive"
	StrategyMarket      = "market"
	StrategyDefensive   = "defensive"
	StrategyShortMarket = "short_market"
)

// UnrealisticBeta is the level above which a required beta fails the
// reality check.
const UnrealisticBeta = 2.0

const betaTolerance = 1e-9

// ChallengeInputs feeds the required-beta calculator.
type ChallengeInputs struct {
	RiskFreeRate float64 `json:"risk_free_rate"`
	MarketReturn float64 `json:"market_return"`
	TargetReturn float64 `json:"target_return"`
}

// ChallengeResult is the required beta with its qualitative reading.
type ChallengeResult struct {
	Inputs         ChallengeInputs `json:"inputs"`
	RequiredBeta   float64         `json:"required_beta"`
	Strategy       string          `json:"strategy"`
	Interpretation string          `json:"interpretation"`
}

// Challenge computes the beta a portfolio needs to hit the target return.
func Challenge(c ChallengeInputs) (ChallengeResult, error) {
	beta, err := RequiredBeta(c.TargetReturn, c.RiskFreeRate, c.MarketReturn)
	if err != nil {
		return ChallengeResult{Inputs: c}, err
	}
	strategy, text := InterpretBeta(beta)
	return ChallengeResult{
		Inputs:         c,
		RequiredBeta:   beta,
		Strategy:       strategy,
		Interpretation: text,
	}, nil
}

// InterpretBeta classifies a required beta.
func InterpretBeta(beta float64) (string, string) {
	switch {
	case beta > UnrealisticBeta:
		return StrategyUnrealistic, "Very high beta (>2): needs extreme leverage or aggressive stocks and may be unrealistic"
	case math.Abs(beta-1) <= betaTolerance:
		return StrategyMarket, "Beta of 1: hold the market portfolio"
	case beta > 1:
		return StrategyAggressive, "Beta above 1: needs stocks riskier than the market"
	case beta >= 0:
		return StrategyDefensive, "Beta below 1: blend the market portfolio with the risk-free asset"
	default:
		return StrategyShortMarket, "Negative beta: the target is below the risk-free rate and requires a short market position"
	}
}
