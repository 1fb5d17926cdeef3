package capm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPresets_Table(t *testing.T) {
	table := DefaultPresets()

	require.Len(t, table, 4)
	assert.Equal(t, Inputs{RiskFreeRate: 0.03, Beta: 1.0, MarketReturn: 0.08, ActualReturn: 0.10}, table[PresetDefault].Inputs)
	assert.Equal(t, Inputs{RiskFreeRate: 0.02, Beta: 0.5, MarketReturn: 0.10, ActualReturn: 0.07}, table["lab1"].Inputs)
	assert.Equal(t, Inputs{RiskFreeRate: 0.05, Beta: -0.3, MarketReturn: 0.08, ActualReturn: 0.04}, table["lab2"].Inputs)
	assert.Equal(t, Inputs{RiskFreeRate: 0.03, Beta: 1.5, MarketReturn: 0.09, ActualReturn: 0.16}, table["lab3"].Inputs)

	for name, p := range table {
		assert.Equal(t, name, p.Name)
		assert.True(t, p.BuiltIn)
		assert.NotEmpty(t, p.Title)
	}
}

func TestDefaultPresets_MatchDomainDefaults(t *testing.T) {
	assert.Equal(t, DefaultDomains().DefaultInputs(), DefaultPresets()[PresetDefault].Inputs)
}

func TestApplyPreset(t *testing.T) {
	in, err := ApplyPreset(DefaultPresets(), "lab2")
	require.NoError(t, err)
	assert.Equal(t, -0.3, in.Beta)
}

func TestApplyPreset_Unknown(t *testing.T) {
	_, err := ApplyPreset(DefaultPresets(), "lab9")
	assert.ErrorIs(t, err, ErrUnknownPreset)
	assert.Contains(t, err.Error(), "lab9")
}

func TestPresetTable_Merge(t *testing.T) {
	base := DefaultPresets()
	custom := []Preset{
		{Name: "lab1", Title: "Custom Lab 1", Inputs: Inputs{RiskFreeRate: 0.01, Beta: 0.8, MarketReturn: 0.06, ActualReturn: 0.05}},
		{Name: "default", Title: "Hijacked", Inputs: Inputs{Beta: 9}},
		{Name: "bonds", Title: "Bond Proxies", Inputs: Inputs{RiskFreeRate: 0.04, Beta: 0.2, MarketReturn: 0.07, ActualReturn: 0.05}},
	}

	merged := base.Merge(custom)

	assert.Len(t, merged, 5)
	assert.Equal(t, "Custom Lab 1", merged["lab1"].Title)
	assert.Equal(t, "Reset Defaults", merged[PresetDefault].Title)
	assert.Equal(t, 0.2, merged["bonds"].Inputs.Beta)
	assert.Equal(t, "Lab 1: Defensive vs Aggressive Stocks", base["lab1"].Title, "base table must not change")
}

func TestPresetTable_Sorted(t *testing.T) {
	table := DefaultPresets().Merge([]Preset{{Name: "alpha"}})

	sorted := table.Sorted()

	names := make([]string, 0, len(sorted))
	for _, p := range sorted {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"default", "alpha", "lab1", "lab2", "lab3"}, names)
}
