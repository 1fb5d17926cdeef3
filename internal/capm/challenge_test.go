package capm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChallenge_PortfolioManagerCase(t *testing.T) {
	c := ChallengeInputs{RiskFreeRate: 0.03, MarketReturn: 0.10, TargetReturn: 0.12}

	result, err := Challenge(c)

	require.NoError(t, err)
	assert.Equal(t, c, result.Inputs)
	assert.InDelta(t, 1.2857, result.RequiredBeta, 1e-4)
	assert.Equal(t, StrategyAggressive, result.Strategy)
	assert.NotEmpty(t, result.Interpretation)
}

func TestChallenge_ZeroRiskPremium(t *testing.T) {
	c := ChallengeInputs{RiskFreeRate: 0.06, MarketReturn: 0.06, TargetReturn: 0.12}

	result, err := Challenge(c)

	assert.ErrorIs(t, err, ErrZeroRiskPremium)
	assert.Equal(t, c, result.Inputs)
	assert.Empty(t, result.Strategy)
}

func TestInterpretBeta(t *testing.T) {
	tests := []struct {
		beta     float64
		strategy string
	}{
		{beta: 3.1, strategy: StrategyUnrealistic},
		{beta: 2.0, strategy: StrategyAggressive},
		{beta: 1.29, strategy: StrategyAggressive},
		{beta: 1.0, strategy: StrategyMarket},
		{beta: 0.6, strategy: StrategyDefensive},
		{beta: 0, strategy: StrategyDefensive},
		{beta: -0.4, strategy: StrategyShortMarket},
	}

	for _, tt := range tests {
		strategy, text := InterpretBeta(tt.beta)
		assert.Equal(t, tt.strategy, strategy, "beta=%v", tt.beta)
		assert.NotEmpty(t, text)
	}
}
