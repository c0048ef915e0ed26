package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eddy-labs/stocks-cli/internal/config"
	"github.com/eddy-labs/stocks-cli/internal/marketdata"
	"github.com/eddy-labs/stocks-cli/internal/model"
	"github.com/eddy-labs/stocks-cli/internal/screener"
)

type stubClient struct{}

func (stubClient) FetchStockData(ctx context.Context, ticker string, tf marketdata.Timeframe) (*marketdata.StockData, error) {
	return &marketdata.StockData{Info: model.CompanyInfo{}}, nil
}

func TestScreenPipeline_UsesPhilosophyAssumptions(t *testing.T) {
	orig := cfg
	cfg = &config.Config{}
	t.Cleanup(func() { cfg = orig })

	garp := screener.GetPhilosophy(screener.BuiltIn(), "garp")
	require.NotEqual(t, model.DefaultAssumptions(), garp.Assumptions)

	s := &apiServer{env: &appEnv{Client: stubClient{}}}
	analysis, err := s.screenPipeline(garp).Analyze(context.Background(), "AAPL", marketdata.DefaultTimeframe())
	require.NoError(t, err)

	// The run must be valued on the philosophy's assumptions, not the
	// server's baseline.
	assert.Equal(t, garp.Assumptions, analysis.Assumptions)
}
