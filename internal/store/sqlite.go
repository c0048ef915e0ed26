package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/eddy-labs/stocks-cli/internal/marketdata"
	"github.com/eddy-labs/stocks-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS screen_runs (
	id           TEXT PRIMARY KEY,
	universe     TEXT NOT NULL,
	philosophy   TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	scored       TEXT,
	skipped      TEXT,
	error        TEXT,
	started_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	completed_at DATETIME
);

CREATE TABLE IF NOT EXISTS quote_cache (
	id         TEXT PRIMARY KEY,
	cache_key  TEXT NOT NULL,
	data       TEXT NOT NULL,
	fetched_at DATETIME NOT NULL DEFAULT (datetime('now')),
	expires_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_screen_runs_status ON screen_runs(status);
CREATE INDEX IF NOT EXISTS idx_screen_runs_universe ON screen_runs(universe);
CREATE INDEX IF NOT EXISTS idx_quote_cache_key ON quote_cache(cache_key);
CREATE INDEX IF NOT EXISTS idx_quote_cache_expires_at ON quote_cache(expires_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, universe, philosophy string) (*model.ScreenRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO screen_runs (id, universe, philosophy, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		id, universe, philosophy, string(model.RunStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.ScreenRun{
		ID:         id,
		Universe:   universe,
		Philosophy: philosophy,
		Status:     model.RunStatusRunning,
		StartedAt:  now,
	}, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, scored []model.ScoredTicker, skipped []model.SkippedTicker) error {
	scoredJSON, err := json.Marshal(scored)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal scored")
	}
	skippedJSON, err := json.Marshal(skipped)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal skipped")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE screen_runs SET status = ?, scored = ?, skipped = ?, completed_at = ? WHERE id = ?`,
		string(model.RunStatusComplete), string(scoredJSON), string(skippedJSON), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID, detail string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE screen_runs SET status = ?, error = ?, completed_at = ? WHERE id = ?`,
		string(model.RunStatusFailed), detail, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.ScreenRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, universe, philosophy, status, scored, skipped, error, started_at, completed_at
		 FROM screen_runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.ScreenRun, error) {
	query := `SELECT id, universe, philosophy, status, scored, skipped, error, started_at, completed_at
	          FROM screen_runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Universe != "" {
		query += ` AND universe = ?`
		args = append(args, filter.Universe)
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.ScreenRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) GetCachedQuote(ctx context.Context, key string) (*marketdata.StockData, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT data FROM quote_cache
		 WHERE cache_key = ? AND expires_at > datetime('now')
		 ORDER BY fetched_at DESC LIMIT 1`,
		key,
	)

	var dataJSON string
	err := row.Scan(&dataJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get cached quote")
	}

	var data marketdata.StockData
	if err := json.Unmarshal([]byte(dataJSON), &data); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal cached quote")
	}
	return &data, nil
}

func (s *SQLiteStore) SetCachedQuote(ctx context.Context, key string, data *marketdata.StockData, ttl time.Duration) error {
	id := uuid.New().String()
	now := time.Now().UTC()

	dataJSON, err := json.Marshal(data)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal quote")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO quote_cache (id, cache_key, data, fetched_at, expires_at) VALUES (?, ?, ?, ?, ?)`,
		id, key, string(dataJSON), now, now.Add(ttl),
	)
	return eris.Wrap(err, "sqlite: set cached quote")
}

func (s *SQLiteStore) DeleteExpiredQuotes(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM quote_cache WHERE expires_at <= datetime('now')`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired quotes")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.ScreenRun, error) {
	var r model.ScreenRun
	var scoredJSON, skippedJSON, errText sql.NullString
	var completedAt sql.NullTime

	err := row.Scan(&r.ID, &r.Universe, &r.Philosophy, &r.Status,
		&scoredJSON, &skippedJSON, &errText, &r.StartedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if scoredJSON.Valid && scoredJSON.String != "" {
		if err := json.Unmarshal([]byte(scoredJSON.String), &r.Scored); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal scored")
		}
	}
	if skippedJSON.Valid && skippedJSON.String != "" {
		if err := json.Unmarshal([]byte(skippedJSON.String), &r.Skipped); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal skipped")
		}
	}
	if errText.Valid {
		r.Error = errText.String
	}
	if completedAt.Valid {
		t := completedAt.Time
		r.CompletedAt = &t
	}
	return &r, nil
}
