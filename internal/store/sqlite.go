package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sells-group/opportunity-etl/internal/model"
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
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Amounts are stored as TEXT so no precision is lost to REAL.
const sqliteMigration = `
CREATE TABLE IF NOT EXISTS etl_runs (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	summary     TEXT NOT NULL,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_etl_runs_started_at ON etl_runs(started_at);

CREATE TABLE IF NOT EXISTS opportunities_transformed (
	id                   TEXT PRIMARY KEY,
	account_id           TEXT NOT NULL DEFAULT '',
	account_name         TEXT,
	account_industry     TEXT,
	name                 TEXT NOT NULL DEFAULT '',
	stage_name           TEXT NOT NULL DEFAULT '',
	stage_std            TEXT,
	amount               TEXT,
	currency_iso_code    TEXT NOT NULL DEFAULT 'USD',
	amount_usd           TEXT,
	expected_revenue_usd TEXT,
	probability          TEXT,
	close_date           DATETIME,
	created_date         DATETIME,
	last_modified_date   DATETIME,
	sales_cycle_days     INTEGER,
	owner_email_hash     TEXT,
	phone_normalized     TEXT,
	is_won               BOOLEAN NOT NULL DEFAULT 0,
	is_lost              BOOLEAN NOT NULL DEFAULT 0,
	etl_run_id           TEXT,
	etl_loaded_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_opportunities_transformed_account ON opportunities_transformed(account_id);

CREATE TABLE IF NOT EXISTS opportunities_anomalies (
	id             TEXT PRIMARY KEY,
	run_id         TEXT NOT NULL REFERENCES etl_runs(id),
	opportunity_id TEXT NOT NULL,
	code           TEXT NOT NULL,
	detail         TEXT NOT NULL,
	detected_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_opportunities_anomalies_run ON opportunities_anomalies(run_id);
`

// Migrate creates the destination tables if they do not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func sqliteNumeric(d decimal.NullDecimal) any {
	if !d.Valid {
		return nil
	}
	return d.Decimal.String()
}

// sqliteArg dereferences nullable fields into driver values.
func sqliteArg(v any) any {
	switch p := v.(type) {
	case *string:
		if p == nil {
			return nil
		}
		return *p
	case *int:
		if p == nil {
			return nil
		}
		return *p
	case *time.Time:
		if p == nil {
			return nil
		}
		return *p
	}
	return v
}

// upsertOpportunitySQL is INSERT ... ON CONFLICT(id) DO UPDATE over opportunityColumns.
var upsertOpportunitySQL = func() string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(opportunityColumns)), ", ")
	var sets []string
	for _, c := range opportunityColumns[1:] {
		sets = append(sets, fmt.Sprintf("%s = excluded.%s", c, c))
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(id) DO UPDATE SET %s",
		TableOpportunities, strings.Join(opportunityColumns, ", "), placeholders, strings.Join(sets, ", "))
}()

// SaveRun implements Store.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *model.Run, records []model.CanonicalRecord, anomalies []model.Anomaly) error {
	summaryJSON, err := json.Marshal(run.Summary)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal summary")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO etl_runs (id, source, summary, started_at, finished_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, string(run.Source), string(summaryJSON), run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert run %s", run.ID)
	}

	upsert, err := tx.PrepareContext(ctx, upsertOpportunitySQL)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare upsert")
	}
	defer upsert.Close() //nolint:errcheck

	for _, rec := range records {
		args := recordValues(rec, run.ID, run.FinishedAt, sqliteNumeric)
		for i, v := range args {
			args[i] = sqliteArg(v)
		}
		if _, err := upsert.ExecContext(ctx, args...); err != nil {
			return eris.Wrapf(err, "sqlite: upsert opportunity %s", rec.ID)
		}
	}

	insert, err := tx.PrepareContext(ctx,
		`INSERT INTO opportunities_anomalies (id, run_id, opportunity_id, code, detail, detected_at) VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare anomaly insert")
	}
	defer insert.Close() //nolint:errcheck

	for _, a := range anomalies {
		if _, err := insert.ExecContext(ctx, uuid.New().String(), run.ID, a.OpportunityID, string(a.Code), a.Detail, run.FinishedAt); err != nil {
			return eris.Wrapf(err, "sqlite: insert anomaly for %s", a.OpportunityID)
		}
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "sqlite: commit run")
	}

	zap.L().Info("sqlite: run saved",
		zap.String("run_id", run.ID),
		zap.Int("opportunities", len(records)),
		zap.Int("anomalies", len(anomalies)),
	)
	return nil
}

// GetRun implements Store.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source, summary, started_at, finished_at FROM etl_runs WHERE id = ?`,
		runID,
	)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrRunNotFound, "%s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}
	return r, nil
}

// ListRuns implements Store, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, source, summary, started_at, finished_at FROM etl_runs WHERE 1=1`
	var args []any

	if filter.Source != "" {
		query += ` AND source = ?`
		args = append(args, string(filter.Source))
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limitOrDefault(filter.Limit))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// ListAnomalies implements Store.
func (s *SQLiteStore) ListAnomalies(ctx context.Context, runID string) ([]model.StoredAnomaly, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, opportunity_id, code, detail, detected_at FROM opportunities_anomalies WHERE run_id = ? ORDER BY opportunity_id, code`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list anomalies for run %s", runID)
	}
	defer rows.Close() //nolint:errcheck

	var out []model.StoredAnomaly
	for rows.Next() {
		var a model.StoredAnomaly
		var code string
		if err := rows.Scan(&a.ID, &a.RunID, &a.OpportunityID, &code, &a.Detail, &a.DetectedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan anomaly")
		}
		a.Code = model.AnomalyCode(code)
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list anomalies iterate")
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var source, summaryJSON string
	if err := row.Scan(&r.ID, &source, &summaryJSON, &r.StartedAt, &r.FinishedAt); err != nil {
		return nil, err
	}
	r.Source = model.RunSource(source)
	if err := json.Unmarshal([]byte(summaryJSON), &r.Summary); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal summary")
	}
	return &r, nil
}
