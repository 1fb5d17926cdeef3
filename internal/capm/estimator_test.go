package capm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pricesFromReturns(start float64, returns []float64) []float64 {
	prices := []float64{start}
	for _, r := range returns {
		prices = append(prices, prices[len(prices)-1]*(1+r))
	}
	return prices
}

func TestEstimateBeta_ScaledMarket(t *testing.T) {
	marketReturns := []float64{0.01, -0.02, 0.015, 0.03, -0.01, 0.005}
	assetReturns := make([]float64, len(marketReturns))
	for i, r := range marketReturns {
		assetReturns[i] = 1.5 * r
	}

	estimate, err := EstimateBeta(pricesFromReturns(50, assetReturns), pricesFromReturns(100, marketReturns), 0)

	require.NoError(t, err)
	assert.InDelta(t, 1.5, estimate.Beta, 1e-9)
	assert.InDelta(t, 1.0, estimate.Correlation, 1e-9)
	assert.Equal(t, len(marketReturns), estimate.Observations)
	assert.Nil(t, estimate.RollingAssetReturn)
}

func TestEstimateBeta_InverseAsset(t *testing.T) {
	marketReturns := []float64{0.02, -0.01, 0.03, -0.02}
	assetReturns := []float64{-0.006, 0.003, -0.009, 0.006}

	estimate, err := EstimateBeta(pricesFromReturns(10, assetReturns), pricesFromReturns(10, marketReturns), 0)

	require.NoError(t, err)
	assert.InDelta(t, -0.3, estimate.Beta, 1e-9)
	assert.InDelta(t, -1.0, estimate.Correlation, 1e-9)
}

func TestEstimateBeta_RollingWindow(t *testing.T) {
	marketReturns := []float64{0.01, 0.02, -0.01, 0.03, 0.0}
	assetReturns := []float64{0.02, 0.01, 0.0, 0.05, -0.02}

	estimate, err := EstimateBeta(pricesFromReturns(20, assetReturns), pricesFromReturns(20, marketReturns), 2)

	require.NoError(t, err)
	assert.Equal(t, 2, estimate.Window)
	require.Len(t, estimate.RollingAssetReturn, len(assetReturns)-1)
	assert.InDelta(t, 0.015, estimate.RollingAssetReturn[0], 1e-9)
	assert.InDelta(t, 0.015, estimate.RollingAssetReturn[len(estimate.RollingAssetReturn)-1], 1e-9)
}

func TestEstimateBeta_Errors(t *testing.T) {
	_, err := EstimateBeta([]float64{1, 2, 3}, []float64{1, 2}, 0)
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = EstimateBeta([]float64{1, 2}, []float64{1, 2}, 0)
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = EstimateBeta([]float64{1, 2, 3}, []float64{5, 5, 5}, 0)
	assert.ErrorIs(t, err, ErrZeroMarketVariance)

	_, err = EstimateBeta([]float64{1, 0, 3}, []float64{1, 2, 3}, 0)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "asset series")
}
