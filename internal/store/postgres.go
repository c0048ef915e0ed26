package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/eddy-labs/stocks-cli/internal/marketdata"
	"github.com/eddy-labs/stocks-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. Tests substitute a
// pgxmock pool through it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_run":       `INSERT INTO screen_runs (id, universe, philosophy, status, started_at) VALUES ($1, $2, $3, $4, $5)`,
	"complete_run":     `UPDATE screen_runs SET status = $1, scored = $2, skipped = $3, completed_at = $4 WHERE id = $5`,
	"fail_run":         `UPDATE screen_runs SET status = $1, error = $2, completed_at = $3 WHERE id = $4`,
	"get_run":          `SELECT id, universe, philosophy, status, scored, skipped, error, started_at, completed_at FROM screen_runs WHERE id = $1`,
	"get_cached_quote": `SELECT data FROM quote_cache WHERE cache_key = $1 AND expires_at > now() ORDER BY fetched_at DESC LIMIT 1`,
	"set_cached_quote": `INSERT INTO quote_cache (id, cache_key, data, fetched_at, expires_at) VALUES ($1, $2, $3, $4, $5)`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS screen_runs (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	universe     TEXT NOT NULL,
	philosophy   TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	scored       JSONB,
	skipped      JSONB,
	error        TEXT,
	started_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS quote_cache (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	cache_key  TEXT NOT NULL,
	data       JSONB NOT NULL,
	fetched_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_screen_runs_status ON screen_runs(status);
CREATE INDEX IF NOT EXISTS idx_screen_runs_universe ON screen_runs(universe);
CREATE INDEX IF NOT EXISTS idx_quote_cache_key ON quote_cache(cache_key);
CREATE INDEX IF NOT EXISTS idx_quote_cache_expires_at ON quote_cache(expires_at);
CREATE INDEX IF NOT EXISTS idx_quote_cache_key_expires ON quote_cache(cache_key, expires_at DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, universe, philosophy string) (*model.ScreenRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO screen_runs (id, universe, philosophy, status, started_at) VALUES ($1, $2, $3, $4, $5)`,
		id, universe, philosophy, string(model.RunStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.ScreenRun{
		ID:         id,
		Universe:   universe,
		Philosophy: philosophy,
		Status:     model.RunStatusRunning,
		StartedAt:  now,
	}, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, scored []model.ScoredTicker, skipped []model.SkippedTicker) error {
	scoredJSON, err := json.Marshal(scored)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal scored")
	}
	skippedJSON, err := json.Marshal(skipped)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal skipped")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE screen_runs SET status = $1, scored = $2, skipped = $3, completed_at = $4 WHERE id = $5`,
		string(model.RunStatusComplete), scoredJSON, skippedJSON, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) FailRun(ctx context.Context, runID, detail string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE screen_runs SET status = $1, error = $2, completed_at = $3 WHERE id = $4`,
		string(model.RunStatusFailed), detail, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.ScreenRun, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, universe, philosophy, status, scored, skipped, error, started_at, completed_at
		 FROM screen_runs WHERE id = $1`,
		runID,
	)
	r, err := scanPgRun(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.ScreenRun, error) {
	query := `SELECT id, universe, philosophy, status, scored, skipped, error, started_at, completed_at
	          FROM screen_runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.Universe != "" {
		query += fmt.Sprintf(` AND universe = $%d`, argIdx)
		args = append(args, filter.Universe)
		argIdx++
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.ScreenRun
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) GetCachedQuote(ctx context.Context, key string) (*marketdata.StockData, error) {
	var dataJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM quote_cache WHERE cache_key = $1 AND expires_at > now()
		 ORDER BY fetched_at DESC LIMIT 1`,
		key,
	).Scan(&dataJSON)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get cached quote")
	}

	var data marketdata.StockData
	if err := json.Unmarshal(dataJSON, &data); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal cached quote")
	}
	return &data, nil
}

func (s *PostgresStore) SetCachedQuote(ctx context.Context, key string, data *marketdata.StockData, ttl time.Duration) error {
	id := uuid.New().String()
	now := time.Now().UTC()

	dataJSON, err := json.Marshal(data)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal quote")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO quote_cache (id, cache_key, data, fetched_at, expires_at) VALUES ($1, $2, $3, $4, $5)`,
		id, key, dataJSON, now, now.Add(ttl),
	)
	return eris.Wrap(err, "postgres: set cached quote")
}

func (s *PostgresStore) DeleteExpiredQuotes(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM quote_cache WHERE expires_at <= now()`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired quotes")
	}
	return int(tag.RowsAffected()), nil
}

func scanPgRun(row pgx.Row) (*model.ScreenRun, error) {
	var r model.ScreenRun
	var scoredJSON, skippedJSON []byte
	var errText *string
	var completedAt *time.Time

	err := row.Scan(&r.ID, &r.Universe, &r.Philosophy, &r.Status,
		&scoredJSON, &skippedJSON, &errText, &r.StartedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	if len(scoredJSON) > 0 {
		if err := json.Unmarshal(scoredJSON, &r.Scored); err != nil {
			return nil, eris.Wrap(err, "unmarshal scored")
		}
	}
	if len(skippedJSON) > 0 {
		if err := json.Unmarshal(skippedJSON, &r.Skipped); err != nil {
			return nil, eris.Wrap(err, "unmarshal skipped")
		}
	}
	if errText != nil {
		r.Error = *errText
	}
	r.CompletedAt = completedAt
	return &r, nil
}
