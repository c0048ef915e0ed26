package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/eddy-labs/stocks-cli/internal/model"
	"github.com/eddy-labs/stocks-cli/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect persisted screen runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent screen runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		status, _ := cmd.Flags().GetString("status")
		universeKey, _ := cmd.Flags().GetString("universe")
		limit, _ := cmd.Flags().GetInt("limit")

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Status:   model.RunStatus(status),
			Universe: universeKey,
			Limit:    limit,
		})
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No runs found.")
			return nil
		}

		fmt.Printf("%-36s %-10s %-16s %-9s %7s %7s %s\n",
			"ID", "Universe", "Philosophy", "Status", "Scored", "Skipped", "Started")
		for _, r := range runs {
			fmt.Printf("%-36s %-10s %-16s %-9s %7d %7d %s\n",
				r.ID, r.Universe, r.Philosophy, r.Status,
				len(r.Scored), len(r.Skipped), r.StartedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show RUN_ID",
	Short: "Show one screen run as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(run), "runs: encode json")
	},
}

func openStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, cfg.Store)
}

func init() {
	runsListCmd.Flags().String("status", "", "filter by status: running, complete, failed")
	runsListCmd.Flags().String("universe", "", "filter by universe key")
	runsListCmd.Flags().Int("limit", 20, "maximum number of runs")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}
