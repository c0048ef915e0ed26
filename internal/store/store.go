// Package store persists screen runs and the quote cache behind a common
// interface with SQLite and Postgres backends.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/eddy-labs/stocks-cli/internal/config"
	"github.com/eddy-labs/stocks-cli/internal/marketdata"
	"github.com/eddy-labs/stocks-cli/internal/model"
)

// RunFilter specifies criteria for listing screen runs.
type RunFilter struct {
	Status   model.RunStatus `json:"status,omitempty"`
	Universe string          `json:"universe,omitempty"`
	Limit    int             `json:"limit,omitempty"`
	Offset   int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for screen runs and cached quotes.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, universe, philosophy string) (*model.ScreenRun, error)
	CompleteRun(ctx context.Context, runID string, scored []model.ScoredTicker, skipped []model.SkippedTicker) error
	FailRun(ctx context.Context, runID, detail string) error
	GetRun(ctx context.Context, runID string) (*model.ScreenRun, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.ScreenRun, error)

	// Quote cache
	GetCachedQuote(ctx context.Context, key string) (*marketdata.StockData, error)
	SetCachedQuote(ctx context.Context, key string, data *marketdata.StockData, ttl time.Duration) error
	DeleteExpiredQuotes(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates the configured backend and applies migrations.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "sqlite", "":
		s, err = NewSQLite(cfg.DatabaseURL)
	case "postgres":
		s, err = NewPostgres(ctx, cfg.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// QuoteCache adapts a Store to the marketdata.Cache interface so the
// caching client can persist quotes across processes.
type QuoteCache struct {
	store Store
}

// NewQuoteCache wraps a store as a marketdata cache.
func NewQuoteCache(s Store) *QuoteCache {
	return &QuoteCache{store: s}
}

func (q *QuoteCache) Get(ctx context.Context, key string) (*marketdata.StockData, bool, error) {
	data, err := q.store.GetCachedQuote(ctx, key)
	if err != nil {
		return nil, false, err
	}
	return data, data != nil, nil
}

func (q *QuoteCache) Set(ctx context.Context, key string, data *marketdata.StockData, ttl time.Duration) error {
	return q.store.SetCachedQuote(ctx, key, data, ttl)
}
