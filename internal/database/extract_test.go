package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queryOne(t *testing.T, db *DB, query string) *sql.Rows {
	t.Helper()

	rows, err := db.conn.QueryContext(context.Background(), query)
	require.NoError(t, err)
	t.Cleanup(func() { rows.Close() })
	require.True(t, rows.Next(), "query returned no rows: %s", query)
	return rows
}

func TestExtractRow_MissingColumn(t *testing.T) {
	db := newTestDB(t)
	rows := queryOne(t, db, "SELECT 1 AS project_id, 'Shelf' AS project_name")

	_, err := ExtractRow[Project](rows)
	var mapping *MappingError
	require.True(t, errors.As(err, &mapping), "expected *MappingError, got %v", err)
	assert.Equal(t, "estimated_hours", mapping.Column)
	assert.Equal(t, "Project.EstimatedHours", mapping.Field)
	assert.ErrorIs(t, err, errMissingColumn)
}

func TestExtractRow_IncompatibleType(t *testing.T) {
	db := newTestDB(t)
	rows := queryOne(t, db, "SELECT 'abc' AS step_id, 1 AS project_id, 'Sand' AS step_text, 1 AS step_order")

	_, err := ExtractRow[Step](rows)
	var mapping *MappingError
	require.True(t, errors.As(err, &mapping), "expected *MappingError, got %v", err)
	assert.Equal(t, "Step", mapping.Field)
	assert.Contains(t, err.Error(), "step_id")
}

func TestExtractRow_NullIntoRequiredField(t *testing.T) {
	db := newTestDB(t)
	rows := queryOne(t, db, "SELECT 1 AS category_id, NULL AS category_name")

	_, err := ExtractRow[Category](rows)
	var mapping *MappingError
	require.True(t, errors.As(err, &mapping), "expected *MappingError, got %v", err)
	assert.Contains(t, err.Error(), "category_name")
}

func TestExtractRow_NullIntoOptionalFields(t *testing.T) {
	db := newTestDB(t)
	rows := queryOne(t, db, "SELECT 1 AS material_id, 2 AS project_id, 'Dowels' AS material_name, NULL AS num_required, NULL AS cost")

	m, err := ExtractRow[Material](rows)
	require.NoError(t, err)
	assert.Equal(t, "Dowels", m.MaterialName)
	assert.Nil(t, m.NumRequired)
	assert.Nil(t, m.Cost)
}

func TestExtractRow_RejectsUnmappedColumn(t *testing.T) {
	db := newTestDB(t)
	rows := queryOne(t, db, "SELECT 'unused' AS extra, 4 AS category_id, 'Kids' AS category_name")

	_, err := ExtractRow[Category](rows)
	var mapping *MappingError
	require.True(t, errors.As(err, &mapping), "expected *MappingError, got %v", err)
	assert.Contains(t, err.Error(), "extra")
}

func TestExtractRow_ColumnOrderDoesNotMatter(t *testing.T) {
	db := newTestDB(t)
	rows := queryOne(t, db, "SELECT 'Kids' AS category_name, 4 AS category_id")

	c, err := ExtractRow[Category](rows)
	require.NoError(t, err)
	assert.Equal(t, Category{CategoryID: 4, CategoryName: "Kids"}, c)
}

func TestExtractRow_RoundsDecimals(t *testing.T) {
	db := newTestDB(t)
	rows := queryOne(t, db, "SELECT 1 AS material_id, 2 AS project_id, 'Stain' AS material_name, 3 AS num_required, '3.456' AS cost")

	m, err := ExtractRow[Material](rows)
	require.NoError(t, err)
	require.NotNil(t, m.Cost)
	assert.Equal(t, "3.46", m.Cost.String())
	require.NotNil(t, m.NumRequired)
	assert.Equal(t, 3, *m.NumRequired)
}

func TestExtractRow_RejectsNonStruct(t *testing.T) {
	db := newTestDB(t)
	rows := queryOne(t, db, "SELECT 1")

	_, err := ExtractRow[int](rows)
	assert.Error(t, err)
}

func TestExtractAll_EmptyResultIsNotNil(t *testing.T) {
	db := newTestDB(t)

	rows, err := db.conn.QueryContext(context.Background(), "SELECT category_id, category_name FROM category")
	require.NoError(t, err)
	defer rows.Close()

	categories, err := extractAll[Category](rows)
	require.NoError(t, err)
	assert.NotNil(t, categories)
	assert.Empty(t, categories)
}
