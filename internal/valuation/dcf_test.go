package valuation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eddy-labs/stocks-cli/internal/model"
)

func ptr(v float64) *float64 { return &v }

func cashflowTable(fcf float64) *model.StatementTable {
	tbl := model.NewStatementTable("2024-12-31")
	tbl.Set("Free Cash Flow", "2024-12-31", fcf)
	return tbl
}

func TestFairValue_EnterpriseValueMatchesFormula(t *testing.T) {
	a := model.DefaultAssumptions() // 10% discount, 3% growth, 2% terminal, 5 years

	result := FairValue(cashflowTable(100), nil, nil, a)
	require.NotNil(t, result)

	// Recompute independently: projected FCF discounted at 1-indexed years
	// plus the Gordon terminal value.
	var want, lastFCF float64
	for year := 1; year <= 5; year++ {
		lastFCF = 100 * math.Pow(1.03, float64(year))
		want += lastFCF / math.Pow(1.10, float64(year))
	}
	want += lastFCF * 1.02 / (0.10 - 0.02) / math.Pow(1.10, 5)

	assert.InDelta(t, want, result.EnterpriseValue, 1e-9)
	assert.InDelta(t, 1330.04, result.EnterpriseValue, 0.01)
}

func TestFairValue_EquityValueSubtractsNetDebt(t *testing.T) {
	a := model.DefaultAssumptions()

	result := FairValue(cashflowTable(100), ptr(200), nil, a)
	require.NotNil(t, result)
	assert.InDelta(t, result.EnterpriseValue-200, result.EquityValue, 1e-9)
}

func TestFairValue_NetCashRaisesEquityValue(t *testing.T) {
	a := model.DefaultAssumptions()

	result := FairValue(cashflowTable(100), ptr(-150), nil, a)
	require.NotNil(t, result)
	assert.Greater(t, result.EquityValue, result.EnterpriseValue)
}

func TestFairValue_PerShare(t *testing.T) {
	a := model.DefaultAssumptions()

	result := FairValue(cashflowTable(100), ptr(0), ptr(10), a)
	require.NotNil(t, result)
	require.NotNil(t, result.FairValuePerShare)
	assert.InDelta(t, result.EquityValue/10, *result.FairValuePerShare, 1e-9)
}

func TestFairValue_NoSharesMeansNoPerShare(t *testing.T) {
	a := model.DefaultAssumptions()

	result := FairValue(cashflowTable(100), nil, nil, a)
	require.NotNil(t, result)
	assert.Nil(t, result.FairValuePerShare)

	result = FairValue(cashflowTable(100), nil, ptr(0), a)
	require.NotNil(t, result)
	assert.Nil(t, result.FairValuePerShare)
}

func TestFairValue_MissingFreeCashFlowRow(t *testing.T) {
	tbl := model.NewStatementTable("2024-12-31")
	tbl.Set("Operating Cash Flow", "2024-12-31", 100)

	assert.Nil(t, FairValue(tbl, nil, nil, model.DefaultAssumptions()))
}

func TestFairValue_EmptyTable(t *testing.T) {
	assert.Nil(t, FairValue(model.NewStatementTable(), nil, nil, model.DefaultAssumptions()))
	assert.Nil(t, FairValue(nil, nil, nil, model.DefaultAssumptions()))
}

func TestFairValue_UsesLatestPeriod(t *testing.T) {
	tbl := model.NewStatementTable("2023-12-31", "2024-12-31")
	tbl.Set("Free Cash Flow", "2023-12-31", 999)
	tbl.Set("Free Cash Flow", "2024-12-31", 100)

	a := model.DefaultAssumptions()
	got := FairValue(tbl, nil, nil, a)
	want := FairValue(cashflowTable(100), nil, nil, a)

	require.NotNil(t, got)
	assert.InDelta(t, want.EnterpriseValue, got.EnterpriseValue, 1e-9)
}

func TestFairValue_NegativeFCFGivesNegativeValue(t *testing.T) {
	result := FairValue(cashflowTable(-100), nil, ptr(10), model.DefaultAssumptions())
	require.NotNil(t, result)
	assert.Negative(t, result.EnterpriseValue)
	require.NotNil(t, result.FairValuePerShare)
	assert.Negative(t, *result.FairValuePerShare)
}

func TestFairValue_MonotonicInGrowth(t *testing.T) {
	low := model.DefaultAssumptions()
	high := model.DefaultAssumptions()
	high.GrowthRate = 0.06

	lowV := FairValue(cashflowTable(100), nil, nil, low)
	highV := FairValue(cashflowTable(100), nil, nil, high)
	require.NotNil(t, lowV)
	require.NotNil(t, highV)
	assert.Greater(t, highV.EnterpriseValue, lowV.EnterpriseValue)
}

func TestFairValueRange_BracketsBaseValue(t *testing.T) {
	a := model.DefaultAssumptions()
	shares := ptr(10.0)

	base := FairValue(cashflowTable(100), ptr(0), shares, a)
	require.NotNil(t, base)
	require.NotNil(t, base.FairValuePerShare)

	r := FairValueRange(cashflowTable(100), ptr(0), shares, a,
		DefaultDiscountRateVariation, DefaultGrowthRateVariation)
	require.NotNil(t, r)

	assert.LessOrEqual(t, r.Low, *base.FairValuePerShare)
	assert.GreaterOrEqual(t, r.High, *base.FairValuePerShare)
	assert.Less(t, r.Low, r.High)
}

func TestFairValueRange_BoundsComeFromGridScenarios(t *testing.T) {
	a := model.DefaultAssumptions()
	shares := ptr(10.0)
	dVar := DefaultDiscountRateVariation
	gVar := DefaultGrowthRateVariation

	// Enumerate the nine discount/growth scenarios the range evaluates.
	var values []float64
	for _, d := range []float64{a.DiscountRate - dVar, a.DiscountRate, a.DiscountRate + dVar} {
		for _, g := range []float64{a.GrowthRate - gVar, a.GrowthRate, a.GrowthRate + gVar} {
			scenario := a
			scenario.DiscountRate = d
			scenario.GrowthRate = g
			if scenario.Validate() != nil {
				continue
			}
			result := FairValue(cashflowTable(100), ptr(0), shares, scenario)
			require.NotNil(t, result)
			require.NotNil(t, result.FairValuePerShare)
			values = append(values, *result.FairValuePerShare)
		}
	}
	require.Len(t, values, 9)

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	r := FairValueRange(cashflowTable(100), ptr(0), shares, a, dVar, gVar)
	require.NotNil(t, r)
	assert.Equal(t, lo, r.Low)
	assert.Equal(t, hi, r.High)
}

func TestFairValueRange_SkipsInvalidScenarios(t *testing.T) {
	// The low-discount corner (0.03 - 0.02 = 0.01) collides with the 2%
	// terminal growth rate and must be skipped, not abort the range.
	a := model.DefaultAssumptions()
	a.DiscountRate = 0.03

	r := FairValueRange(cashflowTable(100), ptr(0), ptr(10), a, 0.02, 0.01)
	require.NotNil(t, r)
	assert.Less(t, r.Low, r.High)
}

func TestFairValueRange_NilWithoutShares(t *testing.T) {
	r := FairValueRange(cashflowTable(100), ptr(0), nil, model.DefaultAssumptions(),
		DefaultDiscountRateVariation, DefaultGrowthRateVariation)
	assert.Nil(t, r)
}
