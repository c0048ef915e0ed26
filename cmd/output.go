package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/eddy-labs/stocks-cli/internal/model"
)

// numPrinter renders prices and valuations with thousands separators.
var numPrinter = message.NewPrinter(language.English)

func formatMoney(v float64) string {
	return numPrinter.Sprintf("%.2f", v)
}

func formatPct(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", *v)
}

func formatRatio(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *v)
}

// truncate shortens s to at most n runes, ending in "..." when cut.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n-3]) + "..."
	}
	return s
}

// openOutput returns the output file, defaulting to stdout.
func openOutput(path string) (*os.File, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "create output file %s", path)
	}
	return f, func() { f.Close() }, nil
}

func writeScreenTable(w *os.File, results []model.ScoredTicker) error {
	header := fmt.Sprintf("%-4s %-7s %-30s %12s %12s %9s %7s %7s %7s %7s %8s\n",
		"Rank", "Ticker", "Company", "Price", "Fair Value", "Disc", "Value", "Qual", "Grow", "Stab", "Overall")
	if _, err := fmt.Fprint(w, header); err != nil {
		return eris.Wrap(err, "write table header")
	}
	if _, err := fmt.Fprintln(w, strings.Repeat("-", 120)); err != nil {
		return eris.Wrap(err, "write table separator")
	}

	for _, r := range results {
		line := fmt.Sprintf("%-4d %-7s %-30s %12s %12s %9s %7.3f %7.3f %7.3f %7.3f %8.3f\n",
			r.OverallRank, r.Ticker, truncate(r.Company, 30),
			formatMoney(r.CurrentPrice), formatMoney(r.FairValue), formatPct(r.DiscountPct),
			r.ValueScore, r.QualityScore, r.GrowthScore, r.StabilityScore, r.OverallScore)
		if _, err := fmt.Fprint(w, line); err != nil {
			return eris.Wrap(err, "write table row")
		}
	}
	return nil
}

func writeScreenCSV(w *os.File, results []model.ScoredTicker) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{
		"overall_rank", "ticker", "company", "current_price", "fair_value", "discount_pct",
		"value_score", "quality_score", "growth_score", "stability_score", "overall_score",
		"value_rank", "quality_rank", "growth_rank", "stability_rank",
	}
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "write CSV header")
	}

	for _, r := range results {
		discount := ""
		if r.DiscountPct != nil {
			discount = fmt.Sprintf("%.2f", *r.DiscountPct)
		}
		row := []string{
			fmt.Sprintf("%d", r.OverallRank),
			r.Ticker,
			r.Company,
			fmt.Sprintf("%.2f", r.CurrentPrice),
			fmt.Sprintf("%.2f", r.FairValue),
			discount,
			fmt.Sprintf("%.4f", r.ValueScore),
			fmt.Sprintf("%.4f", r.QualityScore),
			fmt.Sprintf("%.4f", r.GrowthScore),
			fmt.Sprintf("%.4f", r.StabilityScore),
			fmt.Sprintf("%.4f", r.OverallScore),
			fmt.Sprintf("%d", r.ValueRank),
			fmt.Sprintf("%d", r.QualityRank),
			fmt.Sprintf("%d", r.GrowthRank),
			fmt.Sprintf("%d", r.StabilityRank),
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "write CSV row")
		}
	}
	return nil
}

func writeDealsTable(w *os.File, deals []model.TickerMetrics) error {
	header := fmt.Sprintf("%-7s %-35s %12s %12s %10s\n",
		"Ticker", "Company", "Price", "Fair Value", "Discount")
	if _, err := fmt.Fprint(w, header); err != nil {
		return eris.Wrap(err, "write table header")
	}
	if _, err := fmt.Fprintln(w, strings.Repeat("-", 80)); err != nil {
		return eris.Wrap(err, "write table separator")
	}

	for _, d := range deals {
		line := fmt.Sprintf("%-7s %-35s %12s %12s %10s\n",
			d.Ticker, truncate(d.Company, 35),
			formatMoney(d.CurrentPrice), formatMoney(d.FairValue), formatPct(d.DiscountPct))
		if _, err := fmt.Fprint(w, line); err != nil {
			return eris.Wrap(err, "write table row")
		}
	}
	return nil
}

func writeDealsCSV(w *os.File, deals []model.TickerMetrics) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"ticker", "company", "current_price", "fair_value", "discount_pct"}); err != nil {
		return eris.Wrap(err, "write CSV header")
	}
	for _, d := range deals {
		discount := ""
		if d.DiscountPct != nil {
			discount = fmt.Sprintf("%.2f", *d.DiscountPct)
		}
		row := []string{
			d.Ticker, d.Company,
			fmt.Sprintf("%.2f", d.CurrentPrice),
			fmt.Sprintf("%.2f", d.FairValue),
			discount,
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "write CSV row")
		}
	}
	return nil
}

// printSkipSummary reports why tickers fell out of a batch run.
func printSkipSummary(skipped []model.SkippedTicker) {
	if len(skipped) == 0 {
		return
	}

	byReason := make(map[model.SkipReason]int)
	for _, s := range skipped {
		byReason[s.Reason]++
	}

	fmt.Printf("\nSkipped %d ticker(s):\n", len(skipped))
	for reason, count := range byReason {
		fmt.Printf("  %-15s %d\n", reason, count)
	}
}
