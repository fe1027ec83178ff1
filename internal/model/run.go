package model

import "time"

// RevenuePolicy describes how expected revenue treats unknown inputs.
type RevenuePolicy string

const (
	// RevenueNullAsZero treats a null amount or probability as zero.
	RevenueNullAsZero RevenuePolicy = "null_as_zero"
	// RevenueNullPropagates yields a null expected revenue when either input is null.
	RevenueNullPropagates RevenuePolicy = "null_propagates"
)

// RunSummary holds the counters reported after a batch transformation.
type RunSummary struct {
	RunID           string        `json:"run_id"`
	StartedAt       time.Time     `json:"started_at"`
	RowsIn          int           `json:"rows_in"`
	RowsOut         int           `json:"rows_out"`
	AnomalyRows     int           `json:"anomaly_rows"`
	AnomalyCount    int           `json:"anomaly_count"`
	DurationSeconds float64       `json:"duration_seconds"`
	RevenuePolicy   RevenuePolicy `json:"revenue_policy"`
}

// RunSource identifies where a run's opportunity data came from.
type RunSource string

const (
	RunSourceFiles      RunSource = "files"
	RunSourceSalesforce RunSource = "salesforce"
)

// Run is a persisted record of one batch transformation.
type Run struct {
	ID         string     `json:"id"`
	Source     RunSource  `json:"source"`
	Summary    RunSummary `json:"summary"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
}

// StoredAnomaly is an anomaly as persisted by a run.
type StoredAnomaly struct {
	ID    string `json:"id"`
	RunID string `json:"run_id"`
	Anomaly
	DetectedAt time.Time `json:"detected_at"`
}
