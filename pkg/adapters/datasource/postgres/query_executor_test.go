package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wubenqing/console/pkg/apperrors"
)

func TestRowReader_CountRows(t *testing.T) {
	q := &fakeQuerier{row: &fakeRow{values: []any{int64(42)}}}
	reader := NewRowReader(&fakeProvider{querier: q}, nil)

	total, err := reader.CountRows(context.Background(),
		`SELECT COUNT(*) AS total FROM "public"."volumes" WHERE "status" = $1`, []any{"active"})
	require.NoError(t, err)
	assert.Equal(t, int64(42), total)

	require.Len(t, q.calls, 1)
	assert.Equal(t, []any{"active"}, q.calls[0].args)
}

func TestRowReader_CountRowsFailure(t *testing.T) {
	q := &fakeQuerier{row: &fakeRow{err: errors.New(`relation "public.volumes" does not exist`)}}
	reader := NewRowReader(&fakeProvider{querier: q}, nil)

	_, err := reader.CountRows(context.Background(), "SELECT COUNT(*) AS total FROM x", nil)
	var qErr *apperrors.QueryError
	require.ErrorAs(t, err, &qErr)
	assert.Equal(t, "count rows", qErr.Op)
	assert.ErrorIs(t, err, apperrors.ErrQueryFailed)
}

func TestRowReader_SelectRows(t *testing.T) {
	id := uuid.MustParse("550e8400-e29b-41d4-a716-446655440000")
	created := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	rows := newFakeRows([]string{"id", "status", "size_bytes", "created_at", "tags"},
		[]any{[16]byte(id), "active", int64(1024), created, []any{"ssd", nil}},
		[]any{[16]byte(id), "archived", nil, created, nil},
	)
	q := &fakeQuerier{rows: rows}
	reader := NewRowReader(&fakeProvider{querier: q}, nil)

	result, err := reader.SelectRows(context.Background(),
		`SELECT * FROM "public"."volumes" LIMIT $1 OFFSET $2`, []any{200, 0})
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "status", "size_bytes", "created_at", "tags"}, result.Columns)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, map[string]any{
		"id":         id.String(),
		"status":     "active",
		"size_bytes": int64(1024),
		"created_at": created,
		"tags":       []any{"ssd", nil},
	}, result.Rows[0])
	assert.Nil(t, result.Rows[1]["size_bytes"])
	assert.Contains(t, result.Rows[1], "size_bytes", "null columns are present in the row")
	assert.True(t, rows.closed)

	assert.Equal(t, []any{200, 0}, q.calls[0].args)
}

func TestRowReader_SelectRowsEmpty(t *testing.T) {
	q := &fakeQuerier{rows: newFakeRows([]string{"id", "status"})}
	reader := NewRowReader(&fakeProvider{querier: q}, nil)

	result, err := reader.SelectRows(context.Background(), "SELECT * FROM t LIMIT $1 OFFSET $2", []any{1, 0})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "status"}, result.Columns)
	assert.NotNil(t, result.Rows)
	assert.Empty(t, result.Rows)
}

func TestRowReader_SelectRowsFailures(t *testing.T) {
	t.Run("query error", func(t *testing.T) {
		reader := NewRowReader(&fakeProvider{querier: &fakeQuerier{queryErr: errors.New("boom")}}, nil)
		_, err := reader.SelectRows(context.Background(), "SELECT 1", nil)
		assert.ErrorIs(t, err, apperrors.ErrQueryFailed)
	})

	t.Run("iteration error", func(t *testing.T) {
		rows := newFakeRows([]string{"id"}, []any{int64(1)})
		rows.err = context.Canceled
		reader := NewRowReader(&fakeProvider{querier: &fakeQuerier{rows: rows}}, nil)

		_, err := reader.SelectRows(context.Background(), "SELECT 1", nil)
		assert.ErrorIs(t, err, apperrors.ErrQueryFailed)
		assert.ErrorIs(t, err, context.Canceled)
		assert.True(t, rows.closed)
	})

	t.Run("provider error", func(t *testing.T) {
		reader := NewRowReader(&fakeProvider{err: apperrors.MissingConfig("table")}, nil)
		_, err := reader.SelectRows(context.Background(), "SELECT 1", nil)
		assert.ErrorIs(t, err, apperrors.ErrInvalidConfig)
	})
}

func TestNormalizeValue(t *testing.T) {
	id := uuid.New()

	assert.Equal(t, id.String(), normalizeValue([16]byte(id)))
	assert.Equal(t, []any{id.String(), "x"}, normalizeValue([]any{[16]byte(id), "x"}))
	assert.Equal(t, map[string]any{"owner": id.String()}, normalizeValue(map[string]any{"owner": [16]byte(id)}))
	assert.Equal(t, []byte("raw"), normalizeValue([]byte("raw")))
	assert.Nil(t, normalizeValue(nil))
	assert.Equal(t, 3.5, normalizeValue(3.5))
}
