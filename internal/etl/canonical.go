package etl

import (
	"sort"

	"github.com/sells-group/opportunity-etl/internal/model"
)

// Project selects the canonical column set and sorts by close date ascending
// (nil last), then by ID, so identical input always yields identical output.
func Project(opps []model.EnrichedOpportunity) []model.CanonicalRecord {
	out := make([]model.CanonicalRecord, len(opps))
	for i, o := range opps {
		out[i] = model.CanonicalRecord{
			ID:                 o.ID,
			AccountID:          o.AccountID,
			AccountName:        o.AccountName,
			AccountIndustry:    o.AccountIndustry,
			Name:               o.Name,
			StageName:          o.StageName,
			StageStd:           o.StageStd,
			Amount:             o.AmountValue,
			CurrencyIsoCode:    o.CurrencyIsoCode,
			AmountUSD:          o.AmountUSD,
			ExpectedRevenueUSD: o.ExpectedRevenueUSD,
			Probability:        o.ProbabilityValue,
			CloseDate:          o.CloseDate,
			CreatedDate:        o.CreatedDate,
			LastModifiedDate:   o.LastModifiedDate,
			SalesCycleDays:     o.SalesCycleDays,
			OwnerEmailHash:     o.OwnerEmailHash,
			PhoneNormalized:    o.PhoneNormalized,
			IsWon:              o.IsWon,
			IsLost:             o.IsLost,
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].CloseDate, out[j].CloseDate
		switch {
		case a == nil && b != nil:
			return false
		case a != nil && b == nil:
			return true
		case a != nil && b != nil && !a.Equal(*b):
			return a.Before(*b)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
