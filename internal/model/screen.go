package model

import "time"

// SkipReason explains why a ticker was dropped from a batch run. Skips are
// explicit results rather than silent omissions so callers can report
// accurate statistics.
type SkipReason string

const (
	SkipFetchFailed   SkipReason = "fetch_failed"
	SkipNoPrice       SkipReason = "no_price"
	SkipNoCashflow    SkipReason = "no_cashflow"
	SkipNoFairValue   SkipReason = "no_fair_value"
	SkipMissingShares SkipReason = "missing_shares"
)

// SkippedTicker records one dropped ticker together with its reason and,
// for fetch failures, the underlying error text.
type SkippedTicker struct {
	Ticker string     `json:"ticker"`
	Reason SkipReason `json:"reason"`
	Detail string     `json:"detail,omitempty"`
}

// TickerMetrics is the per-ticker record the screener consumes: the value
// score plus the raw quality/growth/stability inputs. Raw pointer fields
// are nil when the provider did not report the metric; the screener assigns
// a neutral score instead of excluding the ticker.
type TickerMetrics struct {
	Ticker       string  `json:"ticker"`
	Company      string  `json:"company,omitempty"`
	CurrentPrice float64 `json:"current_price"`
	FairValue    float64 `json:"fair_value"`

	// DiscountPct is the percentage gap between fair value and price; nil
	// when fair value is non-positive and a discount is not meaningful.
	DiscountPct *float64 `json:"discount_pct,omitempty"`

	// ValueScore is floored at 0 when the stock trades above fair value.
	// ValueMeaningful is false for non-positive fair values, which are
	// excluded from value ranking.
	ValueScore      float64 `json:"value_score"`
	ValueMeaningful bool    `json:"value_meaningful"`

	ROE           *float64 `json:"roe,omitempty"`
	RevenueGrowth *float64 `json:"revenue_growth,omitempty"`
	DebtToEquity  *float64 `json:"debt_to_equity,omitempty"`
}

// ScoredTicker is one screener output row: percentile component scores,
// the weighted composite, and min-tie integer ranks (1 = best). ValueRank
// is 0 for tickers excluded from value ranking.
type ScoredTicker struct {
	TickerMetrics

	QualityScore   float64 `json:"quality_score"`
	GrowthScore    float64 `json:"growth_score"`
	StabilityScore float64 `json:"stability_score"`
	OverallScore   float64 `json:"overall_score"`

	ValueRank     int `json:"value_rank"`
	QualityRank   int `json:"quality_rank"`
	GrowthRank    int `json:"growth_rank"`
	StabilityRank int `json:"stability_rank"`
	OverallRank   int `json:"overall_rank"`
}

// RunStatus is the lifecycle state of a persisted screen run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// ScreenRun is a persisted screening run: what was screened, with which
// philosophy, and the full scored/skipped output.
type ScreenRun struct {
	ID         string    `json:"id"`
	Universe   string    `json:"universe"`
	Philosophy string    `json:"philosophy"`
	Status     RunStatus `json:"status"`

	Scored  []ScoredTicker  `json:"scored,omitempty"`
	Skipped []SkippedTicker `json:"skipped,omitempty"`

	// Error carries the failure detail for failed runs.
	Error string `json:"error,omitempty"`

	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
