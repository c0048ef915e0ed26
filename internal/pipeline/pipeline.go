// Package pipeline orchestrates one ticker's path from raw provider data
// through fundamentals normalization to valuation, and runs sequential
// batches with explicit per-ticker skip accounting.
package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/eddy-labs/stocks-cli/internal/fundamentals"
	"github.com/eddy-labs/stocks-cli/internal/marketdata"
	"github.com/eddy-labs/stocks-cli/internal/model"
	"github.com/eddy-labs/stocks-cli/internal/screener"
	"github.com/eddy-labs/stocks-cli/internal/valuation"
)

// Pipeline ties the market-data collaborator to the valuation core.
type Pipeline struct {
	client            marketdata.Client
	assumptions       model.DcfAssumptions
	discountVariation float64
	growthVariation   float64
}

// New creates a pipeline. Assumptions must already be validated.
func New(client marketdata.Client, assumptions model.DcfAssumptions, discountVariation, growthVariation float64) *Pipeline {
	if discountVariation == 0 {
		discountVariation = valuation.DefaultDiscountRateVariation
	}
	if growthVariation == 0 {
		growthVariation = valuation.DefaultGrowthRateVariation
	}
	return &Pipeline{
		client:            client,
		assumptions:       assumptions,
		discountVariation: discountVariation,
		growthVariation:   growthVariation,
	}
}

// TickerAnalysis is the full single-ticker result handed to presentation.
type TickerAnalysis struct {
	Ticker      string                     `json:"ticker"`
	Info        model.CompanyInfo          `json:"info"`
	Snapshot    model.FundamentalsSnapshot `json:"snapshot"`
	Valuation   *model.ValuationResult     `json:"valuation,omitempty"`
	Range       *model.ValueRange          `json:"range,omitempty"`
	History     []marketdata.PricePoint    `json:"history,omitempty"`
	Assumptions model.DcfAssumptions       `json:"assumptions"`
}

// Analyze runs the single-ticker flow: fetch, normalize, value. A missing
// cash-flow statement leaves Valuation nil rather than failing.
func (p *Pipeline) Analyze(ctx context.Context, ticker string, tf marketdata.Timeframe) (*TickerAnalysis, error) {
	data, err := p.client.FetchStockData(ctx, ticker, tf)
	if err != nil {
		return nil, err
	}

	snapshot := fundamentals.Extract(data.Info, data.BalanceSheet)

	analysis := &TickerAnalysis{
		Ticker:      ticker,
		Info:        data.Info,
		Snapshot:    snapshot,
		History:     data.History,
		Assumptions: p.assumptions,
	}

	netDebt := snapshot.NetDebt
	analysis.Valuation = valuation.FairValue(data.CashFlow, &netDebt, snapshot.SharesOutstanding, p.assumptions)
	if analysis.Valuation != nil {
		analysis.Range = valuation.FairValueRange(data.CashFlow, &netDebt, snapshot.SharesOutstanding,
			p.assumptions, p.discountVariation, p.growthVariation)
	}

	return analysis, nil
}

// BatchResult is the outcome of a batch run: every input ticker lands in
// exactly one of the two slices.
type BatchResult struct {
	Metrics []model.TickerMetrics `json:"metrics"`
	Skipped []model.SkippedTicker `json:"skipped"`
}

// Collect processes tickers sequentially and builds the screener input.
// Per-ticker failures become skip records with reasons; the loop never
// aborts the batch.
func (p *Pipeline) Collect(ctx context.Context, tickers []string) (*BatchResult, error) {
	log := zap.L().With(zap.Int("universe_size", len(tickers)))
	result := &BatchResult{}

	for _, ticker := range tickers {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		metrics, skip := p.collectOne(ctx, ticker)
		if skip != nil {
			result.Skipped = append(result.Skipped, *skip)
			log.Debug("pipeline: skipped ticker",
				zap.String("ticker", ticker),
				zap.String("reason", string(skip.Reason)),
			)
			continue
		}
		result.Metrics = append(result.Metrics, *metrics)
	}

	log.Info("pipeline: batch complete",
		zap.Int("collected", len(result.Metrics)),
		zap.Int("skipped", len(result.Skipped)),
	)
	return result, nil
}

func (p *Pipeline) collectOne(ctx context.Context, ticker string) (*model.TickerMetrics, *model.SkippedTicker) {
	// Batch runs only need statements and quote fields, not history.
	data, err := p.client.FetchStockData(ctx, ticker, marketdata.DefaultTimeframe())
	if err != nil {
		return nil, &model.SkippedTicker{Ticker: ticker, Reason: model.SkipFetchFailed, Detail: err.Error()}
	}

	price := data.Info.Price()
	if price == nil || *price <= 0 {
		return nil, &model.SkippedTicker{Ticker: ticker, Reason: model.SkipNoPrice}
	}

	if data.CashFlow.Empty() {
		return nil, &model.SkippedTicker{Ticker: ticker, Reason: model.SkipNoCashflow}
	}

	snapshot := fundamentals.Extract(data.Info, data.BalanceSheet)
	if snapshot.SharesOutstanding == nil {
		return nil, &model.SkippedTicker{Ticker: ticker, Reason: model.SkipMissingShares}
	}

	netDebt := snapshot.NetDebt
	result := valuation.FairValue(data.CashFlow, &netDebt, snapshot.SharesOutstanding, p.assumptions)
	if result == nil || result.FairValuePerShare == nil {
		return nil, &model.SkippedTicker{Ticker: ticker, Reason: model.SkipNoFairValue}
	}

	fairValue := *result.FairValuePerShare
	valueScore, meaningful := screener.ValueScore(fairValue, *price)

	return &model.TickerMetrics{
		Ticker:          ticker,
		Company:         data.Info.LongName,
		CurrentPrice:    *price,
		FairValue:       fairValue,
		DiscountPct:     screener.DiscountPct(fairValue, *price),
		ValueScore:      valueScore,
		ValueMeaningful: meaningful,
		ROE:             normalizeRatio(data.Info.ReturnOnEquity),
		RevenueGrowth:   normalizeRatio(data.Info.RevenueGrowth),
		DebtToEquity:    data.Info.DebtToEquity,
	}, nil
}

// normalizeRatio scales percent-style values (>1) down to fractions, since
// the provider reports ROE and revenue growth inconsistently across
// tickers.
func normalizeRatio(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v
	if out > 1 {
		out /= 100
	}
	return &out
}
