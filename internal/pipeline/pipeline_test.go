package pipeline

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eddy-labs/stocks-cli/internal/marketdata"
	"github.com/eddy-labs/stocks-cli/internal/model"
)

func ptr(v float64) *float64 { return &v }

// fakeClient serves canned per-ticker data for pipeline tests.
type fakeClient struct {
	data map[string]*marketdata.StockData
	errs map[string]error
}

func (f *fakeClient) FetchStockData(_ context.Context, ticker string, _ marketdata.Timeframe) (*marketdata.StockData, error) {
	if err, ok := f.errs[ticker]; ok {
		return nil, err
	}
	if data, ok := f.data[ticker]; ok {
		return data, nil
	}
	return nil, eris.Errorf("no fixture for %s", ticker)
}

func healthyStock(price, fcf, shares float64) *marketdata.StockData {
	cashflow := model.NewStatementTable("2024-12-31")
	cashflow.Set("Free Cash Flow", "2024-12-31", fcf)

	sheet := model.NewStatementTable("2024-12-31")
	sheet.Set("Cash", "2024-12-31", 100)
	sheet.Set("Total Debt", "2024-12-31", 300)

	return &marketdata.StockData{
		Info: model.CompanyInfo{
			LongName:          "Test Co",
			CurrentPrice:      ptr(price),
			SharesOutstanding: ptr(shares),
			ReturnOnEquity:    ptr(0.2),
			RevenueGrowth:     ptr(0.05),
			DebtToEquity:      ptr(0.8),
		},
		CashFlow:     cashflow,
		BalanceSheet: sheet,
	}
}

func newPipeline(client marketdata.Client) *Pipeline {
	return New(client, model.DefaultAssumptions(), 0, 0)
}

func TestAnalyze_FullResult(t *testing.T) {
	client := &fakeClient{data: map[string]*marketdata.StockData{
		"TEST": healthyStock(50, 1000, 100),
	}}
	p := newPipeline(client)

	analysis, err := p.Analyze(context.Background(), "TEST", marketdata.DefaultTimeframe())
	require.NoError(t, err)

	assert.Equal(t, "TEST", analysis.Ticker)
	assert.Equal(t, 200.0, analysis.Snapshot.NetDebt) // 300 debt - 100 cash
	require.NotNil(t, analysis.Valuation)
	require.NotNil(t, analysis.Valuation.FairValuePerShare)
	require.NotNil(t, analysis.Range)
	assert.LessOrEqual(t, analysis.Range.Low, *analysis.Valuation.FairValuePerShare)
	assert.GreaterOrEqual(t, analysis.Range.High, *analysis.Valuation.FairValuePerShare)
}

func TestAnalyze_NoCashflowLeavesValuationNil(t *testing.T) {
	stock := healthyStock(50, 1000, 100)
	stock.CashFlow = nil
	client := &fakeClient{data: map[string]*marketdata.StockData{"TEST": stock}}

	analysis, err := newPipeline(client).Analyze(context.Background(), "TEST", marketdata.DefaultTimeframe())
	require.NoError(t, err)
	assert.Nil(t, analysis.Valuation)
	assert.Nil(t, analysis.Range)
}

func TestAnalyze_FetchError(t *testing.T) {
	client := &fakeClient{errs: map[string]error{"TEST": eris.New("boom")}}

	_, err := newPipeline(client).Analyze(context.Background(), "TEST", marketdata.DefaultTimeframe())
	assert.Error(t, err)
}

func TestCollect_EveryTickerLandsExactlyOnce(t *testing.T) {
	noPrice := healthyStock(0, 1000, 100)
	noPrice.Info.CurrentPrice = nil
	noPrice.Info.RegularMarketPrice = nil

	noCashflow := healthyStock(50, 1000, 100)
	noCashflow.CashFlow = nil

	noShares := healthyStock(50, 1000, 100)
	noShares.Info.SharesOutstanding = nil

	negativeFCF := healthyStock(50, -1000, 100)

	client := &fakeClient{
		data: map[string]*marketdata.StockData{
			"GOOD": healthyStock(50, 1000, 100),
			"NOPX": noPrice,
			"NOCF": noCashflow,
			"NOSH": noShares,
			"NEGV": negativeFCF,
		},
		errs: map[string]error{"FAIL": eris.New("connection refused")},
	}

	batch, err := newPipeline(client).Collect(context.Background(),
		[]string{"GOOD", "NOPX", "NOCF", "NOSH", "NEGV", "FAIL"})
	require.NoError(t, err)

	require.Len(t, batch.Metrics, 2) // GOOD and NEGV both produce fair values
	assert.Len(t, batch.Skipped, 4)

	reasons := make(map[string]model.SkipReason)
	for _, s := range batch.Skipped {
		reasons[s.Ticker] = s.Reason
	}
	assert.Equal(t, model.SkipNoPrice, reasons["NOPX"])
	assert.Equal(t, model.SkipNoCashflow, reasons["NOCF"])
	assert.Equal(t, model.SkipMissingShares, reasons["NOSH"])
	assert.Equal(t, model.SkipFetchFailed, reasons["FAIL"])
}

func TestCollect_NegativeFairValueNotMeaningful(t *testing.T) {
	client := &fakeClient{data: map[string]*marketdata.StockData{
		"NEGV": healthyStock(50, -1000, 100),
	}}

	batch, err := newPipeline(client).Collect(context.Background(), []string{"NEGV"})
	require.NoError(t, err)
	require.Len(t, batch.Metrics, 1)

	m := batch.Metrics[0]
	assert.False(t, m.ValueMeaningful)
	assert.Equal(t, 0.0, m.ValueScore)
	assert.Nil(t, m.DiscountPct)
}

func TestCollect_MetricsPopulated(t *testing.T) {
	client := &fakeClient{data: map[string]*marketdata.StockData{
		"GOOD": healthyStock(50, 1000, 100),
	}}

	batch, err := newPipeline(client).Collect(context.Background(), []string{"GOOD"})
	require.NoError(t, err)
	require.Len(t, batch.Metrics, 1)

	m := batch.Metrics[0]
	assert.Equal(t, "GOOD", m.Ticker)
	assert.Equal(t, "Test Co", m.Company)
	assert.Equal(t, 50.0, m.CurrentPrice)
	assert.Positive(t, m.FairValue)
	assert.True(t, m.ValueMeaningful)
	require.NotNil(t, m.ROE)
	assert.Equal(t, 0.2, *m.ROE)
}

func TestCollect_NormalizesPercentStyleRatios(t *testing.T) {
	stock := healthyStock(50, 1000, 100)
	stock.Info.ReturnOnEquity = ptr(21.0) // percent-style
	client := &fakeClient{data: map[string]*marketdata.StockData{"GOOD": stock}}

	batch, err := newPipeline(client).Collect(context.Background(), []string{"GOOD"})
	require.NoError(t, err)
	require.Len(t, batch.Metrics, 1)
	require.NotNil(t, batch.Metrics[0].ROE)
	assert.InDelta(t, 0.21, *batch.Metrics[0].ROE, 1e-9)
}

func TestCollect_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &fakeClient{data: map[string]*marketdata.StockData{
		"GOOD": healthyStock(50, 1000, 100),
	}}

	_, err := newPipeline(client).Collect(ctx, []string{"GOOD"})
	assert.ErrorIs(t, err, context.Canceled)
}
