package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatementTable_SetAndValue(t *testing.T) {
	tbl := NewStatementTable("2024-12-31")
	tbl.Set("Free Cash Flow", "2024-12-31", 100)

	v, ok := tbl.Value("Free Cash Flow", "2024-12-31")
	require.True(t, ok)
	assert.Equal(t, 100.0, v)

	_, ok = tbl.Value("Free Cash Flow", "2023-12-31")
	assert.False(t, ok)
	_, ok = tbl.Value("Total Debt", "2024-12-31")
	assert.False(t, ok)
}

func TestStatementTable_SetAppendsUnknownColumns(t *testing.T) {
	tbl := NewStatementTable()
	tbl.Set("Cash", "2023-12-31", 1)
	tbl.Set("Cash", "2024-12-31", 2)
	tbl.Set("Debt", "2024-12-31", 3)

	assert.Equal(t, []string{"2023-12-31", "2024-12-31"}, tbl.Columns)
}

func TestStatementTable_Empty(t *testing.T) {
	var nilTable *StatementTable
	assert.True(t, nilTable.Empty())
	assert.True(t, NewStatementTable().Empty())
	assert.True(t, NewStatementTable("2024-12-31").Empty()) // columns but no cells

	tbl := NewStatementTable()
	tbl.Set("Cash", "2024-12-31", 1)
	assert.False(t, tbl.Empty())
}

func TestStatementTable_LatestColumn_UnsortedDates(t *testing.T) {
	// Provider column order is not guaranteed; the max date must win.
	tbl := NewStatementTable("2022-12-31", "2024-12-31", "2023-12-31")
	tbl.Set("Cash", "2022-12-31", 1)

	col, ok := tbl.LatestColumn()
	require.True(t, ok)
	assert.Equal(t, "2024-12-31", col)
}

func TestStatementTable_LatestColumn_DatetimeLabels(t *testing.T) {
	tbl := NewStatementTable("2023-12-31 00:00:00", "2024-12-31 00:00:00")
	tbl.Set("Cash", "2023-12-31 00:00:00", 1)

	col, ok := tbl.LatestColumn()
	require.True(t, ok)
	assert.Equal(t, "2024-12-31 00:00:00", col)
}

func TestStatementTable_LatestColumn_LabelOnlyFallsBackToFirst(t *testing.T) {
	// Fiscal-year strings do not parse as dates: keep the provider's order.
	tbl := NewStatementTable("FY2024", "FY2023")
	tbl.Set("Cash", "FY2024", 1)

	col, ok := tbl.LatestColumn()
	require.True(t, ok)
	assert.Equal(t, "FY2024", col)
}

func TestStatementTable_LatestColumn_MixedLabels(t *testing.T) {
	// A single parseable date beats any number of unparseable labels.
	tbl := NewStatementTable("FY2024", "2023-12-31")
	tbl.Set("Cash", "2023-12-31", 1)

	col, ok := tbl.LatestColumn()
	require.True(t, ok)
	assert.Equal(t, "2023-12-31", col)
}

func TestStatementTable_LatestColumn_Empty(t *testing.T) {
	_, ok := NewStatementTable().LatestColumn()
	assert.False(t, ok)
}

func TestStatementTable_HasRow(t *testing.T) {
	tbl := NewStatementTable()
	tbl.Set("Cash", "2024-12-31", 1)

	assert.True(t, tbl.HasRow("Cash"))
	assert.False(t, tbl.HasRow("Total Debt"))

	var nilTable *StatementTable
	assert.False(t, nilTable.HasRow("Cash"))
}
