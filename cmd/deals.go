package main

import (
	"fmt"
	"os/signal"
	"sort"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eddy-labs/stocks-cli/internal/model"
	"github.com/eddy-labs/stocks-cli/internal/universe"
)

var dealsCmd = &cobra.Command{
	Use:   "deals",
	Short: "Find stocks trading below DCF fair value",
	Long: `Values every ticker in a universe and lists the ones trading at a
discount to fair value, best deals first.

Examples:
  # Best deals in the default universe
  deals

  # S&P 500 deals at 20%+ discount
  deals --universe sp500 --min-discount 20 --top 50`,
	RunE: runDeals,
}

func init() {
	f := dealsCmd.Flags()
	f.String("universe", "", "universe key (default from config)")
	f.Int("top", 0, "limit output to the top N deals (0=all)")
	f.Float64("min-discount", 0, "minimum discount percentage")
	f.String("output", "", "output file path (default: stdout)")
	f.String("format", "table", "output format: table or csv")
	addAssumptionFlags(dealsCmd)

	rootCmd.AddCommand(dealsCmd)
}

func runDeals(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	format, _ := cmd.Flags().GetString("format")
	if format != "table" && format != "csv" {
		return eris.Errorf("deals: --format must be table or csv (got %q)", format)
	}
	outputPath, _ := cmd.Flags().GetString("output")
	top, _ := cmd.Flags().GetInt("top")
	minDiscount, _ := cmd.Flags().GetFloat64("min-discount")

	universeKey, _ := cmd.Flags().GetString("universe")
	if universeKey == "" {
		universeKey = cfg.Universe.Default
	}

	u, err := universe.Find(cfg.Universe.Dir, universeKey)
	if err != nil {
		return err
	}
	tickers, err := universe.Load(u.Path)
	if err != nil {
		return err
	}

	assumptions := applyAssumptionOverrides(cmd, configAssumptions())
	env, err := initEnv(ctx, assumptions)
	if err != nil {
		return err
	}
	defer env.Close()

	zap.L().Info("scanning for deals",
		zap.String("universe", universeKey),
		zap.Int("tickers", len(tickers)),
	)

	batch, err := env.Pipeline.Collect(ctx, tickers)
	if err != nil {
		return eris.Wrap(err, "deals: collect")
	}

	var deals []model.TickerMetrics
	for _, m := range batch.Metrics {
		if m.DiscountPct == nil || *m.DiscountPct < minDiscount {
			continue
		}
		deals = append(deals, m)
	}
	sort.SliceStable(deals, func(i, j int) bool {
		return *deals[i].DiscountPct > *deals[j].DiscountPct
	})
	if top > 0 && top < len(deals) {
		deals = deals[:top]
	}

	w, closeFn, err := openOutput(outputPath)
	if err != nil {
		return err
	}
	defer closeFn()

	switch format {
	case "csv":
		if err := writeDealsCSV(w, deals); err != nil {
			return err
		}
	default:
		fmt.Fprintf(w, "%s — %d deal(s)\n\n", u.Name, len(deals))
		if err := writeDealsTable(w, deals); err != nil {
			return err
		}
	}

	if outputPath == "" {
		printSkipSummary(batch.Skipped)
	}
	return nil
}
