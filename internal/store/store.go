// Package store persists transformed opportunities, anomalies and run history
// to the destination database.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/sells-group/opportunity-etl/internal/model"
)

// Destination table names.
const (
	TableRuns          = "etl_runs"
	TableOpportunities = "opportunities_transformed"
	TableAnomalies     = "opportunities_anomalies"
)

// ErrRunNotFound is returned by GetRun for an unknown run ID.
var ErrRunNotFound = eris.New("run not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Source model.RunSource `json:"source,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for batch loads.
type Store interface {
	// SaveRun records the run, upserts the canonical records by id and
	// appends this run's anomalies, atomically. Anomalies of earlier runs
	// are kept and stay listable by their run ID.
	SaveRun(ctx context.Context, run *model.Run, records []model.CanonicalRecord, anomalies []model.Anomaly) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)
	ListAnomalies(ctx context.Context, runID string) ([]model.StoredAnomaly, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// opportunityColumns is the canonical column order plus load bookkeeping.
var opportunityColumns = append(append([]string{}, model.CanonicalColumns...), "etl_run_id", "etl_loaded_at")

var anomalyColumns = []string{"id", "run_id", "opportunity_id", "code", "detail", "detected_at"}

const defaultListLimit = 100

// recordValues flattens a canonical record in opportunityColumns order.
// Decimals go through num so each backend can pick its wire type.
func recordValues(rec model.CanonicalRecord, runID string, loadedAt time.Time, num func(decimal.NullDecimal) any) []any {
	return []any{
		rec.ID, rec.AccountID, rec.AccountName, rec.AccountIndustry, rec.Name,
		rec.StageName, rec.StageStd,
		num(rec.Amount), rec.CurrencyIsoCode, num(rec.AmountUSD), num(rec.ExpectedRevenueUSD), num(rec.Probability),
		rec.CloseDate, rec.CreatedDate, rec.LastModifiedDate, rec.SalesCycleDays,
		rec.OwnerEmailHash, rec.PhoneNormalized, rec.IsWon, rec.IsLost,
		runID, loadedAt,
	}
}

func limitOrDefault(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	return n
}
