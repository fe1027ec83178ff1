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

func TestCopyFrom_EmptyRows(t *testing.T) {
	n, err := CopyFrom(context.TODO(), nil, "opportunities_anomalies", []string{"id", "code"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyFrom_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"opportunities_anomalies"}, []string{"opportunity_id", "code"}).WillReturnResult(3)

	rows := [][]any{{"0063", "NEG_AMOUNT"}, {"0063", "PROB_OOB"}, {"0064", "MISSING_FX"}}
	n, err := CopyFrom(context.Background(), mock, "opportunities_anomalies", []string{"opportunity_id", "code"}, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_SchemaQualified(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"crm", "opportunities_anomalies"}, []string{"code"}).WillReturnResult(1)

	n, err := CopyFrom(context.Background(), mock, "crm.opportunities_anomalies", []string{"code"}, [][]any{{"MISSING_FX"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_InTx(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectCopyFrom(pgx.Identifier{"opportunities_anomalies"}, []string{"code"}).WillReturnResult(1)
	mock.ExpectCommit()

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)
	_, err = CopyFrom(context.Background(), tx, "opportunities_anomalies", []string{"code"}, [][]any{{"FUTURE_CLOSE"}})
	require.NoError(t, err)
	require.NoError(t, tx.Commit(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"opportunities_anomalies"}, []string{"code"}).WillReturnError(fmt.Errorf("copy failed"))

	_, err = CopyFrom(context.Background(), mock, "opportunities_anomalies", []string{"code"}, [][]any{{"NEG_AMOUNT"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO opportunities_anomalies")
	assert.NoError(t, mock.ExpectationsWereMet())
}
