// Package valuation implements the discounted-cash-flow model: free cash
// flow projection, Gordon-growth terminal value, and an assumption-grid
// sensitivity range.
package valuation

import (
	"math"

	"go.uber.org/zap"

	"github.com/eddy-labs/stocks-cli/internal/model"
)

// freeCashFlowRow is the cash-flow statement line item the model projects.
const freeCashFlowRow = "Free Cash Flow"

// Default half-widths of the sensitivity grid.
const (
	DefaultDiscountRateVariation = 0.02
	DefaultGrowthRateVariation   = 0.01
)

// FairValue evaluates the DCF model on the most recent free cash flow.
// Returns nil when the latest period cannot be determined or the Free Cash
// Flow row is absent; callers treat nil as "skip this ticker", not as an
// error.
//
// Assumptions are NOT validated here. Feeding an unvalidated set where
// discount <= terminal growth produces a nonsensical terminal value; run
// DcfAssumptions.Validate before calling.
func FairValue(cashflow *model.StatementTable, netDebt, sharesOutstanding *float64, a model.DcfAssumptions) *model.ValuationResult {
	column, ok := cashflow.LatestColumn()
	if !ok {
		return nil
	}
	fcf, ok := cashflow.Value(freeCashFlowRow, column)
	if !ok {
		zap.L().Debug("valuation: no free cash flow row", zap.String("period", column))
		return nil
	}

	// Project FCF forward and discount each year at its 1-indexed offset.
	var pvSum float64
	lastFCF := fcf
	for year := 1; year <= a.ProjectionYears; year++ {
		lastFCF = fcf * math.Pow(1+a.GrowthRate, float64(year))
		pvSum += lastFCF / math.Pow(1+a.DiscountRate, float64(year))
	}

	terminal := lastFCF * (1 + a.TerminalGrowthRate) / (a.DiscountRate - a.TerminalGrowthRate)
	pvTerminal := terminal / math.Pow(1+a.DiscountRate, float64(a.ProjectionYears))

	result := &model.ValuationResult{
		EnterpriseValue: pvSum + pvTerminal,
	}

	result.EquityValue = result.EnterpriseValue
	if netDebt != nil {
		// Net debt may be negative (net cash), which raises equity value.
		result.EquityValue -= *netDebt
	}

	if sharesOutstanding != nil && *sharesOutstanding > 0 {
		perShare := result.EquityValue / *sharesOutstanding
		result.FairValuePerShare = &perShare
	}

	return result
}

// FairValueRange evaluates FairValue over a 3x3 grid of discount and growth
// scenarios around the base assumptions, holding terminal growth and the
// horizon fixed. Scenarios that fail validation (for example a low discount
// rate colliding with the terminal growth rate) are skipped rather than
// aborting the range. Returns nil only when every scenario produced no
// per-share value.
func FairValueRange(cashflow *model.StatementTable, netDebt, sharesOutstanding *float64, a model.DcfAssumptions, discountVariation, growthVariation float64) *model.ValueRange {
	discounts := []float64{a.DiscountRate - discountVariation, a.DiscountRate, a.DiscountRate + discountVariation}
	growths := []float64{a.GrowthRate - growthVariation, a.GrowthRate, a.GrowthRate + growthVariation}

	var values []float64
	for _, d := range discounts {
		for _, g := range growths {
			scenario := a
			scenario.DiscountRate = d
			scenario.GrowthRate = g
			if err := scenario.Validate(); err != nil {
				zap.L().Debug("valuation: skipping invalid scenario",
					zap.Float64("discount_rate", d),
					zap.Float64("growth_rate", g),
				)
				continue
			}
			result := FairValue(cashflow, netDebt, sharesOutstanding, scenario)
			if result == nil || result.FairValuePerShare == nil {
				continue
			}
			values = append(values, *result.FairValuePerShare)
		}
	}

	if len(values) == 0 {
		return nil
	}

	r := &model.ValueRange{Low: values[0], High: values[0]}
	for _, v := range values[1:] {
		if v < r.Low {
			r.Low = v
		}
		if v > r.High {
			r.High = v
		}
	}
	return r
}
