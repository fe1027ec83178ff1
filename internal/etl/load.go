package etl

import (
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/opportunity-etl/internal/model"
)

// DefaultCurrency is assumed for opportunities without a currency code.
const DefaultCurrency = "USD"

// LoadOpportunities types the opportunity table. Date columns are parsed
// permissively; everything else stays as source text.
func LoadOpportunities(t Table) []model.Opportunity {
	out := make([]model.Opportunity, 0, t.Len())
	for _, row := range t.Rows {
		get := func(col string) string { return t.Get(row, col) }

		currency := strings.TrimSpace(get(ColCurrencyIsoCode))
		if currency == "" {
			currency = DefaultCurrency
		}

		out = append(out, model.Opportunity{
			ID:               strings.TrimSpace(get(ColID)),
			AccountID:        strings.TrimSpace(get(ColAccountID)),
			Name:             get(ColName),
			StageName:        get(ColStageName),
			Amount:           get(ColAmount),
			CurrencyIsoCode:  currency,
			Probability:      get(ColProbability),
			CloseDate:        ParseDate(get(ColCloseDate)),
			CreatedDate:      ParseDate(get(ColCreatedDate)),
			LastModifiedDate: ParseDate(get(ColLastModifiedDate)),
			OwnerEmail:       get(ColOwnerEmail),
			Phone:            get(ColPhone),
			WonFlag:          get(ColIsWon),
			ClosedFlag:       get(ColIsClosed),
		})
	}
	return out
}

// LoadAccounts types the account table.
func LoadAccounts(t Table) []model.Account {
	out := make([]model.Account, 0, t.Len())
	for _, row := range t.Rows {
		out = append(out, model.Account{
			ID:       strings.TrimSpace(t.Get(row, ColID)),
			Name:     t.Get(row, ColName),
			Industry: t.Get(row, ColIndustry),
			OwnerID:  t.Get(row, ColOwnerID),
		})
	}
	return out
}

// LoadFxRates types the FX table. Rows with an unparseable date or a
// non-positive rate cannot be used for conversion and are skipped.
func LoadFxRates(t Table) []model.FxRate {
	out := make([]model.FxRate, 0, t.Len())
	for i, row := range t.Rows {
		date := ParseDate(t.Get(row, ColRateDate))
		rate := ParseDecimal(t.Get(row, ColRateToUSD))
		currency := normalizeCurrency(t.Get(row, ColCurrency))
		if date == nil || !rate.Valid || !rate.Decimal.IsPositive() || currency == "" {
			zap.L().Debug("etl: skipping unusable fx row", zap.Int("row", i+1))
			continue
		}
		out = append(out, model.FxRate{
			Currency:  currency,
			RateDate:  *date,
			RateToUSD: rate.Decimal,
		})
	}
	return out
}

// LoadStageMap types the stage-mapping table.
func LoadStageMap(t Table) []model.StageMapping {
	out := make([]model.StageMapping, 0, t.Len())
	for _, row := range t.Rows {
		out = append(out, model.StageMapping{
			SourceStage: t.Get(row, ColSourceStage),
			StdStage:    t.Get(row, ColStdStage),
		})
	}
	return out
}
