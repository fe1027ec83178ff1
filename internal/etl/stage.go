package etl

import "github.com/sells-group/opportunity-etl/internal/model"

// NormalizeStages attaches the standard stage to each opportunity by exact
// match on raw stage text. Unmapped stages get a nil StageStd. When the
// mapping lists a source stage more than once the first entry wins, so the
// join never multiplies opportunities.
func NormalizeStages(opps []model.EnrichedOpportunity, mappings []model.StageMapping) []model.EnrichedOpportunity {
	lookup := make(map[string]string, len(mappings))
	for _, m := range mappings {
		if _, ok := lookup[m.SourceStage]; !ok {
			lookup[m.SourceStage] = m.StdStage
		}
	}

	out := make([]model.EnrichedOpportunity, len(opps))
	for i, o := range opps {
		o.StageStd = nil
		if std, ok := lookup[o.StageName]; ok {
			o.StageStd = strPtr(std)
		}
		out[i] = o
	}
	return out
}
