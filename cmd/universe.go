package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/eddy-labs/stocks-cli/internal/universe"
)

var universeCmd = &cobra.Command{
	Use:   "universe",
	Short: "Manage ticker universes",
}

var universeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List discovered ticker universes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		universes, err := universe.Discover(cfg.Universe.Dir)
		if err != nil {
			return err
		}
		if len(universes) == 0 {
			fmt.Printf("No universes found in %s (expected *_tickers.csv or *_tickers.xlsx)\n", cfg.Universe.Dir)
			return nil
		}

		for _, u := range universes {
			tickers, err := universe.Load(u.Path)
			if err != nil {
				fmt.Printf("%-12s %-20s (unreadable: %v)\n", u.Key, u.Name, err)
				continue
			}
			marker := " "
			if u.Key == cfg.Universe.Default {
				marker = "*"
			}
			fmt.Printf("%s %-12s %-20s %d tickers\n", marker, u.Key, u.Name, len(tickers))
		}
		return nil
	},
}

var universeSyncCmd = &cobra.Command{
	Use:   "sync-nasdaq",
	Short: "Refresh the Nasdaq symbol directory over FTP",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		n, err := universe.SyncNasdaqListed(ctx, cfg.Universe.Dir)
		if err != nil {
			return err
		}
		fmt.Printf("Synced %d Nasdaq symbols to %s\n", n, cfg.Universe.Dir)
		return nil
	},
}

func init() {
	universeCmd.AddCommand(universeListCmd)
	universeCmd.AddCommand(universeSyncCmd)
	rootCmd.AddCommand(universeCmd)
}
