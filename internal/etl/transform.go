package etl

import (
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/opportunity-etl/internal/model"
)

// Option configures Transform and DetectAnomalies.
type Option func(*options)

type options struct {
	now    func() time.Time
	rules  []Rule
	policy model.RevenuePolicy
}

func newOptions(opts []Option) *options {
	o := &options{
		now:    time.Now,
		rules:  DefaultRules(),
		policy: model.RevenueNullAsZero,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithClock overrides the clock used for date-relative rules.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithRules replaces the anomaly rule set.
func WithRules(rules []Rule) Option {
	return func(o *options) {
		o.rules = rules
	}
}

// WithNullPropagatingRevenue makes expected revenue null when amount_usd or
// probability is null, instead of treating the missing value as zero.
func WithNullPropagatingRevenue() Option {
	return func(o *options) {
		o.policy = model.RevenueNullPropagates
	}
}

// Policy reports the revenue policy the given options select.
func Policy(opts ...Option) model.RevenuePolicy {
	return newOptions(opts).policy
}

// Result is the output of one batch transformation.
type Result struct {
	// Canonical is the projected, sorted output for downstream analytics.
	Canonical []model.CanonicalRecord
	// Enriched is the pre-projection record set consumed by DetectAnomalies.
	Enriched []model.EnrichedOpportunity
}

// Transform runs the full canonicalization pipeline over the four input
// tables. It fails only with a *SchemaError when required columns are absent.
func Transform(opps, accts, fx, stages Table, opts ...Option) (*Result, error) {
	o := newOptions(opts)

	if err := Validate(opps, accts, fx, stages); err != nil {
		return nil, err
	}

	loaded := Dedupe(LoadOpportunities(opps))
	log := zap.L().With(zap.Int("opportunities", len(loaded)))
	log.Debug("etl: deduplicated", zap.Int("rows_in", opps.Len()))

	enriched := make([]model.EnrichedOpportunity, len(loaded))
	for i, opp := range loaded {
		enriched[i] = model.EnrichedOpportunity{Opportunity: opp}
	}

	enriched = NormalizeStages(enriched, LoadStageMap(stages))
	enriched = EnrichAccounts(enriched, LoadAccounts(accts))
	enriched = ConvertCurrency(enriched, NewFxTable(LoadFxRates(fx)))
	enriched = ComputeMetrics(enriched, o.policy)
	enriched = SanitizePII(enriched)
	log.Debug("etl: enriched")

	return &Result{
		Canonical: Project(enriched),
		Enriched:  enriched,
	}, nil
}

// Summarize builds the run counters for a completed batch.
func Summarize(res *Result, anomalies []model.Anomaly, started time.Time, elapsed time.Duration, policy model.RevenuePolicy) model.RunSummary {
	return model.RunSummary{
		StartedAt:       started,
		RowsIn:          len(res.Enriched),
		RowsOut:         len(res.Canonical),
		AnomalyRows:     anomalousIDs(anomalies),
		AnomalyCount:    len(anomalies),
		DurationSeconds: float64(elapsed.Round(time.Millisecond).Milliseconds()) / 1000,
		RevenuePolicy:   policy,
	}
}
