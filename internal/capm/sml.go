package capm

import "iter"

// DefaultSMLPoints matches the resolution of the lab chart.
const DefaultSMLPoints = 50

// Point is a single (beta, expected return) coordinate.
type Point struct {
	Beta           float64 `json:"beta"`
	ExpectedReturn float64 `json:"expected_return"`
}

// BetaAxis describes the sampled beta range of a chart.
type BetaAxis struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Points int     `json:"points"`
}

// ChartData is the plot model for the Security Market Line view.
type ChartData struct {
	Line            []Point  `json:"line"`
	SelectedStock   Point    `json:"selected_stock"`
	MarketPortfolio Point    `json:"market_portfolio"`
	RiskFreeRate    float64  `json:"risk_free_rate"`
	Axis            BetaAxis `json:"axis"`
}

// SecurityMarketLine yields n evenly spaced (beta, expected return) pairs from
// lo to hi inclusive. n == 1 yields lo only; n <= 0 yields nothing. Every
// range over the returned sequence starts from lo again.
func SecurityMarketLine(rf, market, lo, hi float64, n int) iter.Seq2[float64, float64] {
	return func(yield func(float64, float64) bool) {
		if n <= 0 {
			return
		}
		step := 0.0
		if n > 1 {
			step = (hi - lo) / float64(n-1)
		}
		for i := 0; i < n; i++ {
			beta := lo + float64(i)*step
			if i == n-1 && n > 1 {
				beta = hi
			}
			if !yield(beta, ExpectedReturn(rf, beta, market)) {
				return
			}
		}
	}
}

// Chart builds the Security Market Line plot model for in.
func Chart(in Inputs, axis BetaAxis) ChartData {
	line := make([]Point, 0, max(axis.Points, 0))
	for beta, ret := range SecurityMarketLine(in.RiskFreeRate, in.MarketReturn, axis.Min, axis.Max, axis.Points) {
		line = append(line, Point{Beta: beta, ExpectedReturn: ret})
	}

	return ChartData{
		Line: line,
		SelectedStock: Point{
			Beta:           in.Beta,
			ExpectedReturn: ExpectedReturn(in.RiskFreeRate, in.Beta, in.MarketReturn),
		},
		MarketPortfolio: Point{Beta: 1, ExpectedReturn: in.MarketReturn},
		RiskFreeRate:    in.RiskFreeRate,
		Axis:            axis,
	}
}
