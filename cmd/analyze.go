package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/eddy-labs/stocks-cli/internal/marketdata"
	"github.com/eddy-labs/stocks-cli/internal/pipeline"
	"github.com/eddy-labs/stocks-cli/internal/screener"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze TICKER",
	Short: "Value a single stock with the DCF model",
	Long: `Fetches quote, balance sheet, and cash-flow data for one ticker,
normalizes the fundamentals, and reports the DCF fair value with a
sensitivity range around the discount and growth assumptions.

Examples:
  # Analyze with default assumptions and one year of history
  analyze AAPL

  # Ten years of history, custom discount rate
  analyze MSFT --period 10y --discount-rate 0.12

  # Explicit date window, JSON output
  analyze KO --start 2020-01-01 --end 2024-12-31 --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.String("period", "1y", "history range: 1mo, 3mo, 6mo, 1y, 5y, 10y")
	f.String("start", "", "history start date (YYYY-MM-DD, overrides --period)")
	f.String("end", "", "history end date (YYYY-MM-DD)")
	f.String("format", "table", "output format: table or json")
	addAssumptionFlags(analyzeCmd)

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := strings.ToUpper(args[0])
	format, _ := cmd.Flags().GetString("format")
	if format != "table" && format != "json" {
		return eris.Errorf("analyze: --format must be table or json (got %q)", format)
	}

	tf, err := timeframeFromFlags(cmd)
	if err != nil {
		return err
	}

	assumptions := applyAssumptionOverrides(cmd, configAssumptions())
	env, err := initEnv(ctx, assumptions)
	if err != nil {
		return err
	}
	defer env.Close()

	analysis, err := env.Pipeline.Analyze(ctx, ticker, tf)
	if err != nil {
		return eris.Wrapf(err, "analyze: %s", ticker)
	}

	if format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(analysis), "analyze: encode json")
	}

	printAnalysis(analysis)
	return nil
}

// timeframeFromFlags builds the history window, preferring an explicit
// start/end pair over the range keyword.
func timeframeFromFlags(cmd *cobra.Command) (marketdata.Timeframe, error) {
	start, _ := cmd.Flags().GetString("start")
	end, _ := cmd.Flags().GetString("end")
	period, _ := cmd.Flags().GetString("period")

	if start == "" {
		return marketdata.Timeframe{Period: period}, nil
	}

	startAt, err := time.Parse("2006-01-02", start)
	if err != nil {
		return marketdata.Timeframe{}, eris.Wrapf(err, "analyze: parse --start %q", start)
	}
	endAt := time.Now().UTC()
	if end != "" {
		endAt, err = time.Parse("2006-01-02", end)
		if err != nil {
			return marketdata.Timeframe{}, eris.Wrapf(err, "analyze: parse --end %q", end)
		}
	}
	return marketdata.Timeframe{Start: startAt, End: endAt}, nil
}

func printAnalysis(a *pipeline.TickerAnalysis) {
	name := a.Info.LongName
	if name == "" {
		name = a.Ticker
	}
	fmt.Printf("%s (%s)\n", name, a.Ticker)
	if a.Info.Exchange != "" || a.Info.Currency != "" {
		fmt.Printf("%s  %s\n", a.Info.Exchange, a.Info.Currency)
	}
	fmt.Println()

	if price := a.Info.Price(); price != nil {
		fmt.Printf("Current price:     %s\n", formatMoney(*price))
	}
	if a.Snapshot.SharesOutstanding != nil {
		fmt.Printf("Shares out:        %s\n", numPrinter.Sprintf("%.0f", *a.Snapshot.SharesOutstanding))
	}

	fmt.Println("\nFundamentals")
	fmt.Printf("  Cash:            %s  (%s)\n", formatMoney(a.Snapshot.CashAndEquivalents), a.Snapshot.CashSource)
	fmt.Printf("  Total debt:      %s  (%s)\n", formatMoney(a.Snapshot.TotalDebt), a.Snapshot.DebtSource)
	fmt.Printf("  Net debt:        %s\n", formatMoney(a.Snapshot.NetDebt))
	if a.Snapshot.BalanceSheetAsOf != "" {
		fmt.Printf("  As of:           %s\n", a.Snapshot.BalanceSheetAsOf)
	}
	for _, w := range a.Snapshot.Warnings {
		fmt.Printf("  ! %s\n", w)
	}

	fmt.Println("\nAssumptions")
	fmt.Printf("  Discount rate:   %.2f%%\n", a.Assumptions.DiscountRate*100)
	fmt.Printf("  FCF growth:      %.2f%%\n", a.Assumptions.GrowthRate*100)
	fmt.Printf("  Terminal growth: %.2f%%\n", a.Assumptions.TerminalGrowthRate*100)
	fmt.Printf("  Years projected: %d\n", a.Assumptions.ProjectionYears)

	if a.Valuation == nil {
		fmt.Println("\nValuation: not available (no usable free cash flow)")
		return
	}

	fmt.Println("\nValuation")
	fmt.Printf("  Enterprise value: %s\n", formatMoney(a.Valuation.EnterpriseValue))
	fmt.Printf("  Equity value:     %s\n", formatMoney(a.Valuation.EquityValue))
	if a.Valuation.FairValuePerShare != nil {
		fmt.Printf("  Fair value/share: %s\n", formatMoney(*a.Valuation.FairValuePerShare))
		if price := a.Info.Price(); price != nil {
			fmt.Printf("  Discount:         %s\n",
				formatPct(screener.DiscountPct(*a.Valuation.FairValuePerShare, *price)))
		}
	} else {
		fmt.Println("  Fair value/share: n/a (shares outstanding unavailable)")
	}
	if a.Range != nil {
		fmt.Printf("  Range:            %s - %s\n", formatMoney(a.Range.Low), formatMoney(a.Range.High))
	}

	if len(a.History) > 0 {
		first := a.History[0]
		last := a.History[len(a.History)-1]
		change := (last.Close - first.Close) / first.Close * 100
		fmt.Printf("\nHistory: %d closes, %s to %s (%+.1f%%)\n",
			len(a.History),
			first.Date.Format("2006-01-02"), last.Date.Format("2006-01-02"), change)
	}
}
