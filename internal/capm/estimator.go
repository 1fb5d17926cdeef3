package capm

import (
	"errors"
	"fmt"
	"math"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
)

var (
	// ErrInsufficientData is returned when the price history is too short or
	// the two series are not aligned.
	ErrInsufficientData = errors.New("insufficient price data")
	// ErrZeroMarketVariance is returned when market returns never move.
	ErrZeroMarketVariance = errors.New("market returns have zero variance")
)

// MinEstimationPrices is the shortest price history accepted by EstimateBeta.
const MinEstimationPrices = 3

// BetaEstimate is a historical beta derived from two aligned price series.
type BetaEstimate struct {
	Beta               float64   `json:"beta"`
	Correlation        float64   `json:"correlation"`
	AssetMeanReturn    float64   `json:"asset_mean_return"`
	MarketMeanReturn   float64   `json:"market_mean_return"`
	Observations       int       `json:"observations"`
	Window             int       `json:"window,omitempty"`
	RollingAssetReturn []float64 `json:"rolling_asset_return,omitempty"`
}

// EstimateBeta computes cov(asset, market) / var(market) over simple returns.
// When 0 < window <= number of returns, a rolling mean of asset returns over
// window periods is included.
func EstimateBeta(assetPrices, marketPrices []float64, window int) (BetaEstimate, error) {
	if len(assetPrices) != len(marketPrices) {
		return BetaEstimate{}, fmt.Errorf("%w: %d asset prices vs %d market prices",
			ErrInsufficientData, len(assetPrices), len(marketPrices))
	}
	if len(assetPrices) < MinEstimationPrices {
		return BetaEstimate{}, fmt.Errorf("%w: need at least %d prices, got %d",
			ErrInsufficientData, MinEstimationPrices, len(assetPrices))
	}

	assetReturns, err := simpleReturns(assetPrices)
	if err != nil {
		return BetaEstimate{}, fmt.Errorf("asset series: %w", err)
	}
	marketReturns, err := simpleReturns(marketPrices)
	if err != nil {
		return BetaEstimate{}, fmt.Errorf("market series: %w", err)
	}

	assetMean := mean(assetReturns)
	marketMean := mean(marketReturns)

	var cov, varMarket, varAsset float64
	for i := range assetReturns {
		da := assetReturns[i] - assetMean
		dm := marketReturns[i] - marketMean
		cov += da * dm
		varMarket += dm * dm
		varAsset += da * da
	}
	if varMarket == 0 {
		return BetaEstimate{}, ErrZeroMarketVariance
	}

	estimate := BetaEstimate{
		Beta:             cov / varMarket,
		AssetMeanReturn:  assetMean,
		MarketMeanReturn: marketMean,
		Observations:     len(assetReturns),
	}
	if varAsset > 0 {
		estimate.Correlation = cov / math.Sqrt(varAsset*varMarket)
	}

	if window > 0 && window <= len(assetReturns) {
		sma := trend.NewSmaWithPeriod[float64](window)
		estimate.Window = window
		estimate.RollingAssetReturn = helper.ChanToSlice(sma.Compute(helper.SliceToChan(assetReturns)))
	}

	return estimate, nil
}

func simpleReturns(prices []float64) ([]float64, error) {
	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		prev, cur := prices[i-1], prices[i]
		if !validPrice(prev) {
			return nil, fmt.Errorf("price at index %d must be positive and finite, got %v", i-1, prev)
		}
		if !validPrice(cur) {
			return nil, fmt.Errorf("price at index %d must be positive and finite, got %v", i, cur)
		}
		returns = append(returns, cur/prev-1)
	}
	return returns, nil
}

func validPrice(p float64) bool {
	return p > 0 && !math.IsInf(p, 0)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
