package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eddy-labs/stocks-cli/internal/marketdata"
	"github.com/eddy-labs/stocks-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_CreateAndGetRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "dow30", "long-term-value")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "dow30", got.Universe)
	assert.Equal(t, "long-term-value", got.Philosophy)
	assert.Equal(t, model.RunStatusRunning, got.Status)
	assert.Nil(t, got.CompletedAt)
}

func TestSQLite_CompleteRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "dow30", "garp")
	require.NoError(t, err)

	scored := []model.ScoredTicker{
		{
			TickerMetrics: model.TickerMetrics{Ticker: "AAPL", CurrentPrice: 180, FairValue: 210},
			OverallScore:  0.8,
			OverallRank:   1,
		},
	}
	skipped := []model.SkippedTicker{{Ticker: "BADCO", Reason: model.SkipNoPrice}}

	require.NoError(t, st.CompleteRun(ctx, run.ID, scored, skipped))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	require.NotNil(t, got.CompletedAt)
	require.Len(t, got.Scored, 1)
	assert.Equal(t, "AAPL", got.Scored[0].Ticker)
	assert.Equal(t, 1, got.Scored[0].OverallRank)
	require.Len(t, got.Skipped, 1)
	assert.Equal(t, model.SkipNoPrice, got.Skipped[0].Reason)
}

func TestSQLite_FailRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "sp500", "long-term-value")
	require.NoError(t, err)

	require.NoError(t, st.FailRun(ctx, run.ID, "provider unavailable"))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.Equal(t, "provider unavailable", got.Error)
	assert.NotNil(t, got.CompletedAt)
}

func TestSQLite_RunNotFound(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.GetRun(ctx, "missing-id")
	assert.Error(t, err)

	assert.Error(t, st.CompleteRun(ctx, "missing-id", nil, nil))
	assert.Error(t, st.FailRun(ctx, "missing-id", "x"))
}

func TestSQLite_ListRuns_FiltersAndOrder(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a, err := st.CreateRun(ctx, "dow30", "garp")
	require.NoError(t, err)
	b, err := st.CreateRun(ctx, "sp500", "garp")
	require.NoError(t, err)
	require.NoError(t, st.CompleteRun(ctx, b.ID, nil, nil))

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	complete, err := st.ListRuns(ctx, RunFilter{Status: model.RunStatusComplete})
	require.NoError(t, err)
	require.Len(t, complete, 1)
	assert.Equal(t, b.ID, complete[0].ID)

	dow, err := st.ListRuns(ctx, RunFilter{Universe: "dow30"})
	require.NoError(t, err)
	require.Len(t, dow, 1)
	assert.Equal(t, a.ID, dow[0].ID)

	limited, err := st.ListRuns(ctx, RunFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLite_QuoteCache_SetAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	data := &marketdata.StockData{Info: model.CompanyInfo{Symbol: "AAPL", LongName: "Apple Inc."}}
	require.NoError(t, st.SetCachedQuote(ctx, "AAPL|1y", data, time.Hour))

	got, err := st.GetCachedQuote(ctx, "AAPL|1y")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Apple Inc.", got.Info.LongName)
}

func TestSQLite_QuoteCache_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.GetCachedQuote(context.Background(), "MSFT|1y")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_QuoteCache_Expired(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SetCachedQuote(ctx, "AAPL|1y", &marketdata.StockData{}, -time.Hour))

	got, err := st.GetCachedQuote(ctx, "AAPL|1y")
	require.NoError(t, err)
	assert.Nil(t, got)

	n, err := st.DeleteExpiredQuotes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestQuoteCache_AdaptsStoreToCache(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	cache := NewQuoteCache(st)

	_, ok, err := cache.Get(ctx, "AAPL|1y")
	require.NoError(t, err)
	assert.False(t, ok)

	data := &marketdata.StockData{Info: model.CompanyInfo{Symbol: "AAPL"}}
	require.NoError(t, cache.Set(ctx, "AAPL|1y", data, time.Hour))

	got, ok, err := cache.Get(ctx, "AAPL|1y")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "AAPL", got.Info.Symbol)
}

func TestOpen_SQLiteDriver(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "open.db")

	st, err := Open(context.Background(), testStoreConfig(dbPath))
	require.NoError(t, err)
	defer st.Close()

	_, err = st.CreateRun(context.Background(), "dow30", "garp")
	assert.NoError(t, err)
}
