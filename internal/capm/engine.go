// Package capm implements the Capital Asset Pricing Model arithmetic used by the
// lab: expected return, market risk premium, alpha, the required-beta
// inversion and the Security Market Line.
package capm

import (
	"errors"
	"math"
)

// ErrZeroRiskPremium is returned when the market return equals the risk-free
// rate, or sits so close to it that the required-beta inversion overflows.
var ErrZeroRiskPremium = errors.New("market return equals risk-free rate: required beta is undefined")

const (
	PerformanceOutperforming   = "Outperforming"
	PerformanceUnderperforming = "Underperforming"
)

// Inputs is the immutable tuple driving every computation.
type Inputs struct {
	RiskFreeRate float64 `json:"risk_free_rate"`
	Beta         float64 `json:"beta"`
	MarketReturn float64 `json:"market_return"`
	ActualReturn float64 `json:"actual_return"`
}

// Outputs holds every value derived from Inputs.
type Outputs struct {
	ExpectedReturn float64 `json:"expected_return"`
	RiskPremium    float64 `json:"risk_premium"`
	Alpha          float64 `json:"alpha"`
	Performance    string  `json:"performance"`
}

// ExpectedReturn returns rf + beta*(market-rf).
func ExpectedReturn(rf, beta, market float64) float64 {
	return rf + beta*(market-rf)
}

// RiskPremium returns market - rf.
func RiskPremium(rf, market float64) float64 {
	return market - rf
}

// Alpha returns the realised return in excess of the CAPM expectation.
func Alpha(actual, expected float64) float64 {
	return actual - expected
}

// RequiredBeta inverts the CAPM formula for a target return. A premium whose
// quotient is not finite is treated like a zero premium.
func RequiredBeta(target, rf, market float64) (float64, error) {
	premium := RiskPremium(rf, market)
	if premium == 0 {
		return 0, ErrZeroRiskPremium
	}
	beta := (target - rf) / premium
	if math.IsInf(beta, 0) || math.IsNaN(beta) {
		return 0, ErrZeroRiskPremium
	}
	return beta, nil
}

// PerformanceLabel classifies alpha; zero counts as outperforming.
func PerformanceLabel(alpha float64) string {
	if alpha < 0 {
		return PerformanceUnderperforming
	}
	return PerformanceOutperforming
}

// Evaluate recomputes all outputs for in.
func Evaluate(in Inputs) Outputs {
	expected := ExpectedReturn(in.RiskFreeRate, in.Beta, in.MarketReturn)
	alpha := Alpha(in.ActualReturn, expected)
	return Outputs{
		ExpectedReturn: expected,
		RiskPremium:    RiskPremium(in.RiskFreeRate, in.MarketReturn),
		Alpha:          alpha,
		Performance:    PerformanceLabel(alpha),
	}
}
