package models

import (
	"time"

	"github.com/irfndi/capm-lab-go/internal/capm"
)

// Session is the explicit per-visitor state of the lab.
type Session struct {
	ID         string               `json:"id"`
	Inputs     capm.Inputs          `json:"inputs"`
	Challenge  capm.ChallengeInputs `json:"challenge"`
	LastPreset string               `json:"last_preset,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
	UpdatedAt  time.Time            `json:"updated_at"`
}

// Metric is one formatted figure of the interactive model view.
type Metric struct {
	Key     string  `json:"key"`
	Label   string  `json:"label"`
	Value   float64 `json:"value"`
	Display string  `json:"display"`
	Delta   string  `json:"delta,omitempty"`
	Help    string  `json:"help,omitempty"`
}

// Snapshot is everything the interactive model view renders for one input
// tuple.
type Snapshot struct {
	SessionID string         `json:"session_id,omitempty"`
	Inputs    capm.Inputs    `json:"inputs"`
	Outputs   capm.Outputs   `json:"outputs"`
	Metrics   []Metric       `json:"metrics"`
	Chart     capm.ChartData `json:"chart"`
	Insights  []string       `json:"insights"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// ChallengeView is the challenge calculator result as shown to the student.
type ChallengeView struct {
	Inputs         capm.ChallengeInputs `json:"inputs"`
	RequiredBeta   float64              `json:"required_beta"`
	Display        string               `json:"display"`
	Strategy       string               `json:"strategy"`
	Interpretation string               `json:"interpretation"`
}

// InputPatch carries a partial slider update. Nil fields keep their value.
type InputPatch struct {
	RiskFreeRate *float64 `json:"risk_free_rate,omitempty"`
	Beta         *float64 `json:"beta,omitempty"`
	MarketReturn *float64 `json:"market_return,omitempty"`
	ActualReturn *float64 `json:"actual_return,omitempty"`
}

// Apply returns a new input tuple with the patch laid over in.
func (p InputPatch) Apply(in capm.Inputs) capm.Inputs {
	if p.RiskFreeRate != nil {
		in.RiskFreeRate = *p.RiskFreeRate
	}
	if p.Beta != nil {
		in.Beta = *p.Beta
	}
	if p.MarketReturn != nil {
		in.MarketReturn = *p.MarketReturn
	}
	if p.ActualReturn != nil {
		in.ActualReturn = *p.ActualReturn
	}
	return in
}

// PatchField is one optional value of a patch, named by its control.
type PatchField struct {
	Name  string
	Value *float64
}

// Fields returns the patch values in control order.
func (p InputPatch) Fields() []PatchField {
	return []PatchField{
		{capm.ControlRiskFreeRate, p.RiskFreeRate},
		{capm.ControlBeta, p.Beta},
		{capm.ControlMarketReturn, p.MarketReturn},
		{capm.ControlActualReturn, p.ActualReturn},
	}
}

// ChallengePatch carries a partial challenge calculator update.
type ChallengePatch struct {
	RiskFreeRate *float64 `json:"risk_free_rate,omitempty"`
	MarketReturn *float64 `json:"market_return,omitempty"`
	TargetReturn *float64 `json:"target_return,omitempty"`
}

// Apply returns new challenge inputs with the patch laid over c.
func (p ChallengePatch) Apply(c capm.ChallengeInputs) capm.ChallengeInputs {
	if p.RiskFreeRate != nil {
		c.RiskFreeRate = *p.RiskFreeRate
	}
	if p.MarketReturn != nil {
		c.MarketReturn = *p.MarketReturn
	}
	if p.TargetReturn != nil {
		c.TargetReturn = *p.TargetReturn
	}
	return c
}

// Fields returns the patch values in control order.
func (p ChallengePatch) Fields() []PatchField {
	return []PatchField{
		{capm.ControlChallengeRiskFreeRate, p.RiskFreeRate},
		{capm.ControlChallengeMarketReturn, p.MarketReturn},
		{capm.ControlChallengeTargetReturn, p.TargetReturn},
	}
}

// BetaEstimateRequest is the body of a historical beta estimation.
type BetaEstimateRequest struct {
	AssetPrices  []float64 `json:"asset_prices" binding:"required"`
	MarketPrices []float64 `json:"market_prices" binding:"required"`
	Window       int       `json:"window"`
}
