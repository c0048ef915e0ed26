package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultAssumptions_Valid(t *testing.T) {
	assert.NoError(t, DefaultAssumptions().Validate())
}

func TestAssumptions_Validate_RateBounds(t *testing.T) {
	a := DefaultAssumptions()
	a.DiscountRate = 0.75

	err := a.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discount_rate must be between -0.5 and 0.5")
}

func TestAssumptions_Validate_ProjectionYears(t *testing.T) {
	a := DefaultAssumptions()
	a.ProjectionYears = 0
	err := a.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "projection_years must be between 1 and 20")

	a.ProjectionYears = 21
	err = a.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "projection_years")
}

func TestAssumptions_Validate_DiscountMustExceedTerminalGrowth(t *testing.T) {
	a := DefaultAssumptions()
	a.DiscountRate = 0.02
	a.TerminalGrowthRate = 0.02

	err := a.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must exceed terminal_growth_rate")
}

func TestAssumptions_Validate_ReportsAllViolations(t *testing.T) {
	a := DcfAssumptions{
		DiscountRate:       0.9,  // out of range
		GrowthRate:         -0.8, // out of range
		TerminalGrowthRate: 0.02,
		ProjectionYears:    0, // out of range
	}

	err := a.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discount_rate")
	assert.Contains(t, err.Error(), "growth_rate")
	assert.Contains(t, err.Error(), "projection_years")
}

func TestAssumptions_Validate_BoundaryRatesAccepted(t *testing.T) {
	a := DcfAssumptions{
		DiscountRate:       0.5,
		GrowthRate:         -0.5,
		TerminalGrowthRate: -0.5,
		ProjectionYears:    20,
	}
	assert.NoError(t, a.Validate())
}
