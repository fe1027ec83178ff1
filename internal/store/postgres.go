package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sells-group/opportunity-etl/internal/db"
	"github.com/sells-group/opportunity-etl/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
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

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS etl_runs (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	summary     JSONB NOT NULL,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_etl_runs_started_at ON etl_runs(started_at DESC);

CREATE TABLE IF NOT EXISTS opportunities_transformed (
	id                   TEXT PRIMARY KEY,
	account_id           TEXT NOT NULL DEFAULT '',
	account_name         TEXT,
	account_industry     TEXT,
	name                 TEXT NOT NULL DEFAULT '',
	stage_name           TEXT NOT NULL DEFAULT '',
	stage_std            TEXT,
	amount               NUMERIC,
	currency_iso_code    TEXT NOT NULL DEFAULT 'USD',
	amount_usd           NUMERIC,
	expected_revenue_usd NUMERIC,
	probability          NUMERIC,
	close_date           TIMESTAMPTZ,
	created_date         TIMESTAMPTZ,
	last_modified_date   TIMESTAMPTZ,
	sales_cycle_days     INTEGER,
	owner_email_hash     TEXT,
	phone_normalized     TEXT,
	is_won               BOOLEAN NOT NULL DEFAULT false,
	is_lost              BOOLEAN NOT NULL DEFAULT false,
	etl_run_id           TEXT,
	etl_loaded_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_opportunities_transformed_account ON opportunities_transformed(account_id);
CREATE INDEX IF NOT EXISTS idx_opportunities_transformed_close ON opportunities_transformed(close_date);

CREATE TABLE IF NOT EXISTS opportunities_anomalies (
	id             TEXT PRIMARY KEY,
	run_id         TEXT NOT NULL REFERENCES etl_runs(id),
	opportunity_id TEXT NOT NULL,
	code           TEXT NOT NULL,
	detail         TEXT NOT NULL,
	detected_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_opportunities_anomalies_run ON opportunities_anomalies(run_id);
CREATE INDEX IF NOT EXISTS idx_opportunities_anomalies_opportunity ON opportunities_anomalies(opportunity_id);
`

// Ping checks connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

// Migrate creates the destination tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func pgNumeric(d decimal.NullDecimal) any {
	return db.Numeric(d)
}

// SaveRun implements Store.
func (s *PostgresStore) SaveRun(ctx context.Context, run *model.Run, records []model.CanonicalRecord, anomalies []model.Anomaly) error {
	summaryJSON, err := json.Marshal(run.Summary)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal summary")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx,
		`INSERT INTO etl_runs (id, source, summary, started_at, finished_at) VALUES ($1, $2, $3, $4, $5)`,
		run.ID, string(run.Source), summaryJSON, run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert run %s", run.ID)
	}

	rows := make([][]any, len(records))
	for i, rec := range records {
		rows[i] = recordValues(rec, run.ID, run.FinishedAt, pgNumeric)
	}
	upserted, err := db.UpsertTx(ctx, tx, db.UpsertConfig{
		Table:        TableOpportunities,
		Columns:      opportunityColumns,
		ConflictKeys: []string{"id"},
	}, rows)
	if err != nil {
		return eris.Wrap(err, "postgres: upsert opportunities")
	}

	anomalyRows := make([][]any, len(anomalies))
	for i, a := range anomalies {
		anomalyRows[i] = []any{uuid.New().String(), run.ID, a.OpportunityID, string(a.Code), a.Detail, run.FinishedAt}
	}
	if _, err := db.CopyFrom(ctx, tx, TableAnomalies, anomalyColumns, anomalyRows); err != nil {
		return eris.Wrap(err, "postgres: insert anomalies")
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "postgres: commit run")
	}

	zap.L().Info("postgres: run saved",
		zap.String("run_id", run.ID),
		zap.Int64("opportunities", upserted),
		zap.Int("anomalies", len(anomalies)),
	)
	return nil
}

// GetRun implements Store.
func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, source, summary, started_at, finished_at FROM etl_runs WHERE id = $1`,
		runID,
	)
	r, err := scanPostgresRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrRunNotFound, "%s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return r, nil
}

// ListRuns implements Store, newest first.
func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, source, summary, started_at, finished_at FROM etl_runs WHERE ($1 = '' OR source = $1) ORDER BY started_at DESC LIMIT $2 OFFSET $3`

	rows, err := s.pool.Query(ctx, query, string(filter.Source), limitOrDefault(filter.Limit), max(filter.Offset, 0))
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPostgresRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

// ListAnomalies implements Store.
func (s *PostgresStore) ListAnomalies(ctx context.Context, runID string) ([]model.StoredAnomaly, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, run_id, opportunity_id, code, detail, detected_at FROM opportunities_anomalies WHERE run_id = $1 ORDER BY opportunity_id, code`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list anomalies for run %s", runID)
	}
	defer rows.Close()

	var out []model.StoredAnomaly
	for rows.Next() {
		var a model.StoredAnomaly
		var code string
		if err := rows.Scan(&a.ID, &a.RunID, &a.OpportunityID, &code, &a.Detail, &a.DetectedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan anomaly")
		}
		a.Code = model.AnomalyCode(code)
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list anomalies iterate")
}

func scanPostgresRun(row pgx.Row) (*model.Run, error) {
	var r model.Run
	var source string
	var summaryJSON []byte
	if err := row.Scan(&r.ID, &source, &summaryJSON, &r.StartedAt, &r.FinishedAt); err != nil {
		return nil, err
	}
	r.Source = model.RunSource(source)
	if err := json.Unmarshal(summaryJSON, &r.Summary); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal summary")
	}
	return &r, nil
}
