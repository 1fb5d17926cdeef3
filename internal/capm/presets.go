package capm

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownPreset is returned when a preset name is not in the table.
var ErrUnknownPreset = errors.New("unknown preset")

// PresetDefault restores the documented slider defaults.
const PresetDefault = "default"

// Preset is a named constant input tuple used to set up a guided exercise.
type Preset struct {
	Name    string   `json:"name"`
	Title   string   `json:"title"`
	Inputs  Inputs   `json:"inputs"`
	Summary string   `json:"summary,omitempty"`
	Tasks   []string `json:"tasks,omitempty"`
	BuiltIn bool     `json:"built_in"`
}

// PresetTable maps preset names to presets.
type PresetTable map[string]Preset

// DefaultPresets returns the reset tuple and the three lab scenarios.
func DefaultPresets() PresetTable {
	return PresetTable{
		PresetDefault: {
			Name:    PresetDefault,
			Title:   "Reset Defaults",
			Inputs:  Inputs{RiskFreeRate: 0.03, Beta: 1.0, MarketReturn: 0.08, ActualReturn: 0.10},
			BuiltIn: true,
		},
		"lab1": {
			Name:    "lab1",
			Title:   "Lab 1: Defensive vs Aggressive Stocks",
			Inputs:  Inputs{RiskFreeRate: 0.02, Beta: 0.5, MarketReturn: 0.10, ActualReturn: 0.07},
			Summary: "Compare a defensive utility (β=0.5) with an aggressive tech startup (β=1.5) in a +10% market.",
			Tasks: []string{
				"Calculate expected returns for both stocks",
				"Determine which outperformed CAPM predictions",
				"Analyze the risk-return tradeoff",
			},
			BuiltIn: true,
		},
		"lab2": {
			Name:    "lab2",
			Title:   "Lab 2: Negative Beta Assets",
			Inputs:  Inputs{RiskFreeRate: 0.05, Beta: -0.3, MarketReturn: 0.08, ActualReturn: 0.04},
			Summary: "Explore a gold ETF with β=-0.3 while the market returns 8% and the asset returns 4%.",
			Tasks: []string{
				"Calculate the expected return",
				"Explain why alpha is positive or negative",
				"Discuss uses in portfolio construction",
			},
			BuiltIn: true,
		},
		"lab3": {
			Name:    "lab3",
			Title:   "Lab 3: Alpha Hunters",
			Inputs:  Inputs{RiskFreeRate: 0.03, Beta: 1.5, MarketReturn: 0.09, ActualReturn: 0.16},
			Summary: "Analyze a high performer: β=1.5, actual return 16%, market return 9%.",
			Tasks: []string{
				"Calculate the expected return and alpha",
				"Determine if the stock is over- or undervalued",
				"Discuss alpha persistence",
			},
			BuiltIn: true,
		},
	}
}

// ApplyPreset returns the input tuple stored under name.
func ApplyPreset(table PresetTable, name string) (Inputs, error) {
	preset, ok := table[name]
	if !ok {
		return Inputs{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return preset.Inputs, nil
}

// Merge returns a copy of t overlaid with extra. The default preset cannot be
// replaced.
func (t PresetTable) Merge(extra []Preset) PresetTable {
	merged := make(PresetTable, len(t)+len(extra))
	for name, p := range t {
		merged[name] = p
	}
	for _, p := range extra {
		if p.Name == PresetDefault {
			continue
		}
		merged[p.Name] = p
	}
	return merged
}

// Sorted returns the presets with the default first, then by name.
func (t PresetTable) Sorted() []Preset {
	out := make([]Preset, 0, len(t))
	for _, p := range t {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == PresetDefault {
			return out[j].Name != PresetDefault
		}
		if out[j].Name == PresetDefault {
			return false
		}
		return out[i].Name < out[j].Name
	})
	return out
}
