package etl

import (
	"time"

	"github.com/sells-group/opportunity-etl/internal/model"
)

// futureCloseSlack is how far past today a close date may fall before it is
// flagged.
const futureCloseSlack = 24 * time.Hour

// RuleEnv is the evaluation context shared by every rule in one detection pass.
type RuleEnv struct {
	// Today is midnight UTC of the current calendar day.
	Today time.Time
}

// Rule is one independent data-quality check.
type Rule struct {
	Code   model.AnomalyCode
	Detail string
	Match  func(o *model.EnrichedOpportunity, env RuleEnv) bool
}

// DefaultRules returns the built-in rule set in evaluation order. New rules
// are added by appending to the slice passed to WithRules.
func DefaultRules() []Rule {
	return []Rule{
		{
			Code:   model.AnomalyNegativeAmount,
			Detail: "Amount is negative",
			Match: func(o *model.EnrichedOpportunity, _ RuleEnv) bool {
				return o.AmountValue.Valid && o.AmountValue.Decimal.IsNegative()
			},
		},
		{
			Code:   model.AnomalyProbabilityOOB,
			Detail: "Probability outside 0-100",
			Match: func(o *model.EnrichedOpportunity, _ RuleEnv) bool {
				p := o.ProbabilityValue
				return p.Valid && (p.Decimal.IsNegative() || p.Decimal.GreaterThan(hundred))
			},
		},
		{
			Code:   model.AnomalyFutureClose,
			Detail: "CloseDate in the future",
			Match: func(o *model.EnrichedOpportunity, env RuleEnv) bool {
				return o.CloseDate != nil && o.CloseDate.After(env.Today.Add(futureCloseSlack))
			},
		},
		{
			Code:   model.AnomalyMissingStageMap,
			Detail: "Stage could not be mapped to standard taxonomy",
			Match: func(o *model.EnrichedOpportunity, _ RuleEnv) bool {
				return o.StageStd == nil
			},
		},
		{
			Code:   model.AnomalyMissingFX,
			Detail: "FX rate missing for currency/date",
			Match: func(o *model.EnrichedOpportunity, _ RuleEnv) bool {
				return normalizeCurrency(o.CurrencyIsoCode) != "" && !o.FxRateUsed.Valid
			},
		},
	}
}

// DetectAnomalies evaluates every rule against every enriched opportunity and
// returns one Anomaly per violation. Amount and probability are re-derived
// from source text when the numeric fields were never populated, so records
// that skipped ComputeMetrics are still checked.
func DetectAnomalies(opps []model.EnrichedOpportunity, opts ...Option) []model.Anomaly {
	o := newOptions(opts)
	env := RuleEnv{Today: dateOnly(o.now())}

	var out []model.Anomaly
	for i := range opps {
		rec := opps[i]
		if !rec.AmountValue.Valid {
			rec.AmountValue = ParseDecimal(rec.Amount)
		}
		if !rec.ProbabilityValue.Valid {
			rec.ProbabilityValue = ParseDecimal(rec.Probability)
		}
		for _, r := range o.rules {
			if r.Match(&rec, env) {
				out = append(out, model.Anomaly{
					OpportunityID: rec.ID,
					Code:          r.Code,
					Detail:        r.Detail,
				})
			}
		}
	}
	return out
}

// anomalousIDs counts distinct opportunity IDs among anomalies.
func anomalousIDs(anomalies []model.Anomaly) int {
	seen := make(map[string]struct{}, len(anomalies))
	for _, a := range anomalies {
		seen[a.OpportunityID] = struct{}{}
	}
	return len(seen)
}
