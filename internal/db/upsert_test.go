package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var opportunityUpsert = UpsertConfig{
	Table:        "opportunities_transformed",
	Columns:      []string{"id", "name", "amount_usd"},
	ConflictKeys: []string{"id"},
}

func TestBulkUpsert_EmptyRows(t *testing.T) {
	n, err := BulkUpsert(context.TODO(), nil, opportunityUpsert, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsert_NoColumns(t *testing.T) {
	_, err := BulkUpsert(context.TODO(), nil, UpsertConfig{
		Table:        "opportunities_transformed",
		ConflictKeys: []string{"id"},
	}, [][]any{{"0061", "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestBulkUpsert_NoConflictKeys(t *testing.T) {
	_, err := BulkUpsert(context.TODO(), nil, UpsertConfig{
		Table:   "opportunities_transformed",
		Columns: []string{"id", "name"},
	}, [][]any{{"0061", "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestBulkUpsert_Success(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_opportunities_transformed" \(LIKE "opportunities_transformed" INCLUDING DEFAULTS\) ON COMMIT DROP`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_opportunities_transformed"}, opportunityUpsert.Columns).WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "opportunities_transformed" \("id", "name", "amount_usd"\) SELECT .* ON CONFLICT \("id"\) DO UPDATE SET "name" = EXCLUDED."name", "amount_usd" = EXCLUDED."amount_usd"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := BulkUpsert(context.Background(), mock, opportunityUpsert, [][]any{{"0061", "Acme", nil}, {"0062", "Globex", nil}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_InsertError(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_opportunities_transformed"}, opportunityUpsert.Columns).WillReturnResult(1)
	mock.ExpectExec(`INSERT INTO`).WillReturnError(fmt.Errorf("unique violation"))
	mock.ExpectRollback()

	_, err = BulkUpsert(context.Background(), mock, opportunityUpsert, [][]any{{"0061", "Acme", nil}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INSERT ON CONFLICT for opportunities_transformed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertSQL_DoNothingWhenOnlyKeys(t *testing.T) {
	got := upsertSQL(UpsertConfig{
		Table:        "etl_runs",
		Columns:      []string{"id"},
		ConflictKeys: []string{"id"},
	}, "_tmp")
	assert.Equal(t, `INSERT INTO "etl_runs" ("id") SELECT "id" FROM "_tmp" ON CONFLICT ("id") DO NOTHING`, got)
}

func TestUpsertSQL_ExplicitUpdateCols(t *testing.T) {
	cfg := opportunityUpsert
	cfg.UpdateCols = []string{"amount_usd"}
	got := upsertSQL(cfg, "_tmp")
	assert.Contains(t, got, `DO UPDATE SET "amount_usd" = EXCLUDED."amount_usd"`)
	assert.NotContains(t, got, `"name" = EXCLUDED`)
}

func TestSanitizeTable(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"simple", `"simple"`},
		{"crm.opportunities_transformed", `"crm"."opportunities_transformed"`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeTable(tt.input))
		})
	}
}

func TestQuoteAndJoin(t *testing.T) {
	result := quoteAndJoin([]string{"id", "stage_std", "amount_usd"})
	assert.Equal(t, `"id", "stage_std", "amount_usd"`, result)
}
