// Package marketdata fetches quotes, price history, and financial
// statements from a Yahoo-style provider, with rate limiting and an
// explicit TTL cache keyed by (ticker, timeframe).
package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/eddy-labs/stocks-cli/internal/model"
)

// Timeframe selects the price-history window: either a provider-native
// range keyword (1mo, 3mo, 6mo, 1y, 5y, 10y) or an explicit start/end pair.
type Timeframe struct {
	Period string    `json:"period,omitempty"`
	Start  time.Time `json:"start,omitempty"`
	End    time.Time `json:"end,omitempty"`
}

// DefaultTimeframe is one year of daily history.
func DefaultTimeframe() Timeframe {
	return Timeframe{Period: "1y"}
}

// Key returns the cache key component for this timeframe.
func (t Timeframe) Key() string {
	if t.Period != "" {
		return t.Period
	}
	return fmt.Sprintf("%d-%d", t.Start.Unix(), t.End.Unix())
}

// PricePoint is one bar of daily price history.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// StockData bundles everything one pull returns for a ticker.
type StockData struct {
	Info         model.CompanyInfo     `json:"info"`
	History      []PricePoint          `json:"history,omitempty"`
	CashFlow     *model.StatementTable `json:"cashflow,omitempty"`
	BalanceSheet *model.StatementTable `json:"balance_sheet,omitempty"`
	FetchedAt    time.Time             `json:"fetched_at"`
}

// Client retrieves market data for one ticker.
type Client interface {
	FetchStockData(ctx context.Context, ticker string, tf Timeframe) (*StockData, error)
}
