package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eddy-labs/stocks-cli/internal/model"
	"github.com/eddy-labs/stocks-cli/internal/screener"
	"github.com/eddy-labs/stocks-cli/internal/universe"
)

var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "Score a ticker universe with a weighted composite screen",
	Long: `Collects fundamentals and DCF fair values for every ticker in a
universe, then ranks them by a weighted quality/value/growth/stability
composite. Weights come from the selected investment philosophy.

Examples:
  # Screen the default universe with the default philosophy
  screen

  # GARP screen over the S&P 500, top 25 only
  screen --universe sp500 --philosophy garp --top 25

  # Export full results and persist the run
  screen --universe dow30 --format csv --output screen.csv --save`,
	RunE: runScreen,
}

func init() {
	f := screenCmd.Flags()
	f.String("universe", "", "universe key (default from config)")
	f.String("philosophy", "", "investment philosophy (default from config)")
	f.String("philosophy-file", "", "yaml file with custom philosophies")
	f.Int("top", 0, "limit output to the top N tickers (0=all)")
	f.String("output", "", "output file path (default: stdout)")
	f.String("format", "table", "output format: table or csv")
	f.Bool("save", false, "persist the run to the store")
	addAssumptionFlags(screenCmd)

	rootCmd.AddCommand(screenCmd)
}

func runScreen(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	format, _ := cmd.Flags().GetString("format")
	if format != "table" && format != "csv" {
		return eris.Errorf("screen: --format must be table or csv (got %q)", format)
	}
	outputPath, _ := cmd.Flags().GetString("output")
	top, _ := cmd.Flags().GetInt("top")
	save, _ := cmd.Flags().GetBool("save")

	universeKey, _ := cmd.Flags().GetString("universe")
	if universeKey == "" {
		universeKey = cfg.Universe.Default
	}

	philosophyFile, _ := cmd.Flags().GetString("philosophy-file")
	if philosophyFile == "" {
		philosophyFile = cfg.Screener.PhilosophyFile
	}
	philosophyKey, _ := cmd.Flags().GetString("philosophy")
	if philosophyKey == "" {
		philosophyKey = cfg.Screener.Philosophy
	}

	phils, err := screener.LoadPhilosophies(philosophyFile)
	if err != nil {
		return err
	}
	phil := screener.GetPhilosophy(phils, philosophyKey)
	if err := phil.Weights.Validate(); err != nil {
		return err
	}

	// Philosophy assumptions seed the model; CLI flags override both.
	assumptions := applyAssumptionOverrides(cmd, phil.Assumptions)

	u, err := universe.Find(cfg.Universe.Dir, universeKey)
	if err != nil {
		return err
	}
	tickers, err := universe.Load(u.Path)
	if err != nil {
		return err
	}

	env, err := initEnv(ctx, assumptions)
	if err != nil {
		return err
	}
	defer env.Close()

	log := zap.L().With(
		zap.String("command", "screen"),
		zap.String("universe", universeKey),
		zap.String("philosophy", philosophyKey),
	)
	log.Info("starting screen", zap.Int("tickers", len(tickers)))

	var runID string
	if save {
		run, err := env.Store.CreateRun(ctx, universeKey, philosophyKey)
		if err != nil {
			return err
		}
		runID = run.ID
	}

	batch, err := env.Pipeline.Collect(ctx, tickers)
	if err != nil {
		if runID != "" {
			if failErr := env.Store.FailRun(ctx, runID, err.Error()); failErr != nil {
				log.Warn("failed to record run failure", zap.Error(failErr))
			}
		}
		return eris.Wrap(err, "screen: collect")
	}

	scored := screener.Score(batch.Metrics, phil.Weights)

	if runID != "" {
		if err := env.Store.CompleteRun(ctx, runID, scored, batch.Skipped); err != nil {
			return eris.Wrap(err, "screen: save run")
		}
		fmt.Printf("Run saved: %s\n\n", runID)
	}

	display := scored
	if top > 0 && top < len(display) {
		display = display[:top]
	}

	w, closeFn, err := openOutput(outputPath)
	if err != nil {
		return err
	}
	defer closeFn()

	switch format {
	case "csv":
		if err := writeScreenCSV(w, display); err != nil {
			return err
		}
	default:
		fmt.Fprintf(w, "%s screen — %s\n\n", u.Name, phil.Name)
		if err := writeScreenTable(w, display); err != nil {
			return err
		}
	}

	if outputPath == "" {
		printSkipSummary(batch.Skipped)
		printCategoryLeaders(scored)
	}
	return nil
}

// printCategoryLeaders shows the rank-1 ticker for each component score.
func printCategoryLeaders(scored []model.ScoredTicker) {
	if len(scored) == 0 {
		return
	}

	leaders := []struct {
		label string
		rank  func(model.ScoredTicker) int
	}{
		{"Best value", func(s model.ScoredTicker) int { return s.ValueRank }},
		{"Best quality", func(s model.ScoredTicker) int { return s.QualityRank }},
		{"Best growth", func(s model.ScoredTicker) int { return s.GrowthRank }},
		{"Most stable", func(s model.ScoredTicker) int { return s.StabilityRank }},
	}

	fmt.Println("\nCategory leaders:")
	for _, l := range leaders {
		for _, s := range scored {
			if l.rank(s) == 1 {
				fmt.Printf("  %-13s %s\n", l.label, s.Ticker)
				break
			}
		}
	}
}
