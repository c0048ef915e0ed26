// Package model defines the core value objects shared across the valuation
// and screening pipeline.
package model

import (
	"time"
)

// statementDateLayouts are the column-label formats recognized when picking
// the most recent period of a statement table.
var statementDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"01/02/2006",
}

// StatementTable is a financial statement keyed by line-item label with
// period-labeled columns, the shape yfinance-style providers hand back for
// balance sheets and cash-flow statements. Cells may be absent (suppressed
// or unreported line items).
type StatementTable struct {
	Columns []string                      `json:"columns"`
	Cells   map[string]map[string]float64 `json:"cells"` // row label -> column label -> value
}

// NewStatementTable creates an empty table with the given column labels in
// the provider's original order.
func NewStatementTable(columns ...string) *StatementTable {
	return &StatementTable{
		Columns: columns,
		Cells:   make(map[string]map[string]float64),
	}
}

// Set records a value for the given row and column. Unknown columns are
// appended to the column order.
func (t *StatementTable) Set(row, column string, value float64) {
	if t.Cells == nil {
		t.Cells = make(map[string]map[string]float64)
	}
	if !t.hasColumn(column) {
		t.Columns = append(t.Columns, column)
	}
	cells, ok := t.Cells[row]
	if !ok {
		cells = make(map[string]float64)
		t.Cells[row] = cells
	}
	cells[column] = value
}

// Value returns the cell at (row, column) and whether it is present.
func (t *StatementTable) Value(row, column string) (float64, bool) {
	if t == nil || t.Cells == nil {
		return 0, false
	}
	cells, ok := t.Cells[row]
	if !ok {
		return 0, false
	}
	v, ok := cells[column]
	return v, ok
}

// HasRow reports whether the table carries any cell for the given row label.
func (t *StatementTable) HasRow(row string) bool {
	if t == nil || t.Cells == nil {
		return false
	}
	cells, ok := t.Cells[row]
	return ok && len(cells) > 0
}

// Empty reports whether the table has no columns or no cells at all.
func (t *StatementTable) Empty() bool {
	return t == nil || len(t.Columns) == 0 || len(t.Cells) == 0
}

// LatestColumn picks the column to treat as "most recent". Every column
// label is tried as a date; if at least one parses, the column with the
// maximum parsed date wins regardless of position. Otherwise the first
// column in the table's existing order is used, which handles label-only
// tables such as fiscal-year strings.
func (t *StatementTable) LatestColumn() (string, bool) {
	if t.Empty() {
		return "", false
	}

	best := ""
	var bestTime time.Time
	for _, col := range t.Columns {
		parsed, ok := parseColumnDate(col)
		if !ok {
			continue
		}
		if best == "" || parsed.After(bestTime) {
			best = col
			bestTime = parsed
		}
	}
	if best != "" {
		return best, true
	}
	return t.Columns[0], true
}

func (t *StatementTable) hasColumn(column string) bool {
	for _, c := range t.Columns {
		if c == column {
			return true
		}
	}
	return false
}

func parseColumnDate(label string) (time.Time, bool) {
	for _, layout := range statementDateLayouts {
		if ts, err := time.Parse(layout, label); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
