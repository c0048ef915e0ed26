package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eddy-labs/stocks-cli/internal/marketdata"
	"github.com/eddy-labs/stocks-cli/internal/model"
	"github.com/eddy-labs/stocks-cli/internal/pipeline"
	"github.com/eddy-labs/stocks-cli/internal/store"
)

// appEnv holds the initialized store, market-data client, and pipeline
// shared by the analyze/screen/deals/serve commands.
type appEnv struct {
	Store    store.Store
	Client   marketdata.Client
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv sets up the store, the cached provider client, and the pipeline
// with the given assumptions. Callers should defer env.Close().
func initEnv(ctx context.Context, assumptions model.DcfAssumptions) (*appEnv, error) {
	if err := assumptions.Validate(); err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	var cache marketdata.Cache
	if cfg.Cache.Persistent {
		if n, err := st.DeleteExpiredQuotes(ctx); err != nil {
			zap.L().Warn("cache: expiry sweep failed", zap.Error(err))
		} else if n > 0 {
			zap.L().Debug("cache: expired quotes removed", zap.Int("count", n))
		}
		cache = store.NewQuoteCache(st)
	} else {
		cache = marketdata.NewMemoryCache()
	}

	ttl := time.Duration(cfg.Cache.TTLMinutes) * time.Minute
	client := marketdata.NewCachingClient(marketdata.NewYahooClient(cfg.Provider), cache, ttl)

	p := pipeline.New(client, assumptions,
		cfg.Valuation.DiscountVariation, cfg.Valuation.GrowthRateVariation)

	return &appEnv{Store: st, Client: client, Pipeline: p}, nil
}

// configAssumptions builds the baseline assumptions from config.
func configAssumptions() model.DcfAssumptions {
	return model.DcfAssumptions{
		DiscountRate:       cfg.Valuation.DiscountRate,
		GrowthRate:         cfg.Valuation.GrowthRate,
		TerminalGrowthRate: cfg.Valuation.TerminalGrowthRate,
		ProjectionYears:    cfg.Valuation.ProjectionYears,
	}
}

// addAssumptionFlags registers the valuation override flags on a command.
func addAssumptionFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Float64("discount-rate", 0, "discount rate override (e.g. 0.10)")
	f.Float64("growth-rate", 0, "FCF growth rate override (e.g. 0.03)")
	f.Float64("terminal-growth-rate", 0, "terminal growth rate override (e.g. 0.02)")
	f.Int("years", 0, "projection years override")
}

// applyAssumptionOverrides returns a copy of base with any set flags applied.
func applyAssumptionOverrides(cmd *cobra.Command, base model.DcfAssumptions) model.DcfAssumptions {
	a := base

	if cmd.Flags().Changed("discount-rate") {
		a.DiscountRate, _ = cmd.Flags().GetFloat64("discount-rate")
	}
	if cmd.Flags().Changed("growth-rate") {
		a.GrowthRate, _ = cmd.Flags().GetFloat64("growth-rate")
	}
	if cmd.Flags().Changed("terminal-growth-rate") {
		a.TerminalGrowthRate, _ = cmd.Flags().GetFloat64("terminal-growth-rate")
	}
	if cmd.Flags().Changed("years") {
		a.ProjectionYears, _ = cmd.Flags().GetInt("years")
	}

	return a
}
