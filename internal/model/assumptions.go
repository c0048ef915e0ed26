package model

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Assumption bounds accepted by Validate.
const (
	minRate            = -0.5
	maxRate            = 0.5
	minProjectionYears = 1
	maxProjectionYears = 20
)

// DcfAssumptions holds the inputs to the discounted-cash-flow model. The
// valuation engine does not re-check these at call time; callers must run
// Validate first, or an invalid set silently produces a nonsensical
// (possibly negative) terminal value.
type DcfAssumptions struct {
	DiscountRate       float64 `json:"discount_rate" yaml:"discount_rate"`
	GrowthRate         float64 `json:"growth_rate" yaml:"growth_rate"`
	TerminalGrowthRate float64 `json:"terminal_growth_rate" yaml:"terminal_growth_rate"`
	ProjectionYears    int     `json:"projection_years" yaml:"projection_years"`
}

// DefaultAssumptions returns the baseline long-term-value assumption set:
// 10% discount, 3% growth, 2% terminal growth, 5-year horizon.
func DefaultAssumptions() DcfAssumptions {
	return DcfAssumptions{
		DiscountRate:       0.10,
		GrowthRate:         0.03,
		TerminalGrowthRate: 0.02,
		ProjectionYears:    5,
	}
}

// Validate checks every rule and reports all violations in one message,
// not just the first.
func (a DcfAssumptions) Validate() error {
	var errs []string

	rates := []struct {
		name  string
		value float64
	}{
		{"discount_rate", a.DiscountRate},
		{"growth_rate", a.GrowthRate},
		{"terminal_growth_rate", a.TerminalGrowthRate},
	}
	for _, r := range rates {
		if r.value < minRate || r.value > maxRate {
			errs = append(errs, fmt.Sprintf("%s must be between %.1f and %.1f, got %.4f", r.name, minRate, maxRate, r.value))
		}
	}

	if a.ProjectionYears < minProjectionYears || a.ProjectionYears > maxProjectionYears {
		errs = append(errs, fmt.Sprintf("projection_years must be between %d and %d, got %d", minProjectionYears, maxProjectionYears, a.ProjectionYears))
	}

	// The Gordon-growth terminal value divides by (discount - terminal
	// growth); a non-positive denominator is never meaningful.
	if a.DiscountRate <= a.TerminalGrowthRate {
		errs = append(errs, fmt.Sprintf("discount_rate (%.4f) must exceed terminal_growth_rate (%.4f)", a.DiscountRate, a.TerminalGrowthRate))
	}

	if len(errs) > 0 {
		return eris.Errorf("assumptions: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
