// Package fundamentals normalizes heterogeneous balance-sheet data into a
// consistent snapshot with provenance and diagnostic tags.
package fundamentals

import (
	"time"

	"github.com/eddy-labs/stocks-cli/internal/model"
)

// Candidate row labels, evaluated in priority order. First match wins and
// the matching label is recorded as provenance.
var (
	cashFields = []string{
		"Cash And Cash Equivalents",
		"Cash",
		"CashAndCashEquivalents",
	}

	totalDebtFields = []string{
		"Total Debt",
		"Net Debt",
	}

	shortTermDebtFields = []string{
		"Short Long Term Debt",
		"Short Term Debt",
		"Current Debt",
	}

	longTermDebtFields = []string{
		"Long Term Debt",
	}
)

// debtComponentsSource is the synthetic provenance label used when total
// debt was reconstructed from its components.
const debtComponentsSource = "Long Term Debt + Short Term Debt"

// Extract resolves cash, debt, and share counts from the provider's quote
// fields and balance sheet. It never fails: any unresolvable field degrades
// to its default with a warning and a note tag rather than aborting the
// snapshot.
func Extract(info model.CompanyInfo, balanceSheet *model.StatementTable) model.FundamentalsSnapshot {
	snap := model.FundamentalsSnapshot{PulledAt: time.Now().UTC()}

	column, haveSheet := "", false
	if !balanceSheet.Empty() {
		column, haveSheet = balanceSheet.LatestColumn()
	}

	var cash, debt *float64
	if haveSheet {
		snap.BalanceSheetAsOf = column
		cash, snap.CashSource = resolveCash(balanceSheet, column)
		debt, snap.DebtSource = resolveTotalDebt(balanceSheet, column)
	} else {
		snap.Warnings = append(snap.Warnings, "Balance sheet unavailable; debt and cash taken as 0.")
		snap.NoteTags = append(snap.NoteTags, model.TagNoBalanceSheet)
	}

	if cash != nil {
		snap.CashAndEquivalents = *cash
	} else {
		snap.Warnings = append(snap.Warnings, "Cash & equivalents missing; assuming 0.")
		snap.NoteTags = append(snap.NoteTags, model.TagAssumedCashZero)
	}

	if debt != nil {
		snap.TotalDebt = *debt
	} else {
		snap.Warnings = append(snap.Warnings, "Total debt missing; assuming 0.")
		snap.NoteTags = append(snap.NoteTags, model.TagAssumedDebtZero)
	}

	snap.NetDebt = snap.TotalDebt - snap.CashAndEquivalents
	if snap.NetDebt < 0 {
		snap.NoteTags = append(snap.NoteTags, model.TagNetCash)
	}

	snap.SharesOutstanding, snap.SharesSource = resolveShares(info)
	if snap.SharesOutstanding == nil {
		snap.Warnings = append(snap.Warnings, "Shares outstanding unavailable; per-share valuation disabled.")
		snap.NoteTags = append(snap.NoteTags, model.TagMissingShares)
	}

	return snap
}

// firstMatch returns the value of the first candidate row present in the
// table at the given column, along with the matching label.
func firstMatch(table *model.StatementTable, column string, candidates []string) (*float64, string) {
	for _, label := range candidates {
		if v, ok := table.Value(label, column); ok {
			return &v, label
		}
	}
	return nil, ""
}

func resolveCash(table *model.StatementTable, column string) (*float64, string) {
	return firstMatch(table, column, cashFields)
}

// resolveTotalDebt tries a direct total-debt row first, then reconstructs
// from long-term plus short-term components. A missing component counts as
// zero only when the other component resolved; if neither does, debt stays
// unresolved.
func resolveTotalDebt(table *model.StatementTable, column string) (*float64, string) {
	if v, source := firstMatch(table, column, totalDebtFields); v != nil {
		return v, source
	}

	longTerm, _ := firstMatch(table, column, longTermDebtFields)
	shortTerm, _ := firstMatch(table, column, shortTermDebtFields)
	if longTerm == nil && shortTerm == nil {
		return nil, ""
	}

	total := 0.0
	if longTerm != nil {
		total += *longTerm
	}
	if shortTerm != nil {
		total += *shortTerm
	}
	return &total, debtComponentsSource
}

func resolveShares(info model.CompanyInfo) (*float64, string) {
	if info.SharesOutstanding != nil && *info.SharesOutstanding > 0 {
		v := *info.SharesOutstanding
		return &v, "sharesOutstanding"
	}
	if info.ImpliedSharesOutstanding != nil && *info.ImpliedSharesOutstanding > 0 {
		v := *info.ImpliedSharesOutstanding
		return &v, "impliedSharesOutstanding"
	}
	return nil, ""
}
