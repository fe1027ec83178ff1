package etl

import "github.com/sells-group/opportunity-etl/internal/model"

// EnrichAccounts joins account name, industry and owner onto each
// opportunity by AccountID. Opportunities whose account is missing keep nil
// account fields. Duplicate account IDs resolve to the first row.
func EnrichAccounts(opps []model.EnrichedOpportunity, accounts []model.Account) []model.EnrichedOpportunity {
	byID := make(map[string]model.Account, len(accounts))
	for _, a := range accounts {
		if _, ok := byID[a.ID]; !ok {
			byID[a.ID] = a
		}
	}

	out := make([]model.EnrichedOpportunity, len(opps))
	for i, o := range opps {
		o.AccountName, o.AccountIndustry, o.AccountOwnerID = nil, nil, nil
		if a, ok := byID[o.AccountID]; ok && o.AccountID != "" {
			o.AccountName = strPtr(a.Name)
			o.AccountIndustry = strPtr(a.Industry)
			o.AccountOwnerID = strPtr(a.OwnerID)
		}
		out[i] = o
	}
	return out
}
