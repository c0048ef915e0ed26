package model

import "time"

// NoteTag is a machine-readable diagnostic attached to a fundamentals
// snapshot. Tags distinguish "resolved to zero" from "assumed zero" so
// downstream consumers can tell a genuinely debt-free balance sheet from a
// missing one.
type NoteTag string

const (
	TagMissingShares   NoteTag = "MISSING_SHARES"
	TagAssumedCashZero NoteTag = "ASSUMED_CASH_ZERO"
	TagAssumedDebtZero NoteTag = "ASSUMED_DEBT_ZERO"
	TagNoBalanceSheet  NoteTag = "NO_BALANCE_SHEET"
	TagNetCash         NoteTag = "NET_CASH"
)

// FundamentalsSnapshot is the normalized view of cash, debt, and share
// counts for one ticker at one pull. Constructed fresh on every pull and
// never mutated afterwards. NetDebt is always TotalDebt minus
// CashAndEquivalents, even when both were defaulted to zero.
type FundamentalsSnapshot struct {
	CashAndEquivalents float64  `json:"cash_and_equivalents"`
	TotalDebt          float64  `json:"total_debt"`
	NetDebt            float64  `json:"net_debt"`
	SharesOutstanding  *float64 `json:"shares_outstanding,omitempty"` // nil disables per-share output

	// BalanceSheetAsOf is the label of the balance-sheet column used,
	// empty when no balance sheet was available.
	BalanceSheetAsOf string    `json:"balance_sheet_as_of,omitempty"`
	PulledAt         time.Time `json:"pulled_at"`

	// Provenance: which source field satisfied each figure.
	CashSource   string `json:"cash_source,omitempty"`
	DebtSource   string `json:"debt_source,omitempty"`
	SharesSource string `json:"shares_source,omitempty"`

	Warnings []string  `json:"warnings,omitempty"`
	NoteTags []NoteTag `json:"note_tags,omitempty"`
}

// HasTag reports whether the snapshot carries the given diagnostic tag.
func (s *FundamentalsSnapshot) HasTag(tag NoteTag) bool {
	for _, t := range s.NoteTags {
		if t == tag {
			return true
		}
	}
	return false
}

// CompanyInfo is the quote-level field map returned by the market-data
// provider for a single ticker. Pointer fields are nil when the provider
// did not report them.
type CompanyInfo struct {
	Symbol   string `json:"symbol"`
	LongName string `json:"longName,omitempty"`
	Currency string `json:"currency,omitempty"`
	Exchange string `json:"exchange,omitempty"`

	CurrentPrice       *float64 `json:"currentPrice,omitempty"`
	RegularMarketPrice *float64 `json:"regularMarketPrice,omitempty"`
	TargetHighPrice    *float64 `json:"targetHighPrice,omitempty"`
	TargetLowPrice     *float64 `json:"targetLowPrice,omitempty"`
	TargetMeanPrice    *float64 `json:"targetMeanPrice,omitempty"`

	SharesOutstanding        *float64 `json:"sharesOutstanding,omitempty"`
	ImpliedSharesOutstanding *float64 `json:"impliedSharesOutstanding,omitempty"`

	ReturnOnEquity *float64 `json:"returnOnEquity,omitempty"`
	RevenueGrowth  *float64 `json:"revenueGrowth,omitempty"`
	DebtToEquity   *float64 `json:"debtToEquity,omitempty"`
}

// Price returns the best available trading price: currentPrice first, then
// regularMarketPrice.
func (c CompanyInfo) Price() *float64 {
	if c.CurrentPrice != nil {
		return c.CurrentPrice
	}
	return c.RegularMarketPrice
}
