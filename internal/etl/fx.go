package etl

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/opportunity-etl/internal/model"
)

var upperCaser = cases.Upper(language.Und)

// normalizeCurrency trims and upper-cases an ISO currency code.
func normalizeCurrency(code string) string {
	return upperCaser.String(strings.TrimSpace(code))
}

// FxTable indexes FX rates by currency, each series sorted by rate date.
type FxTable struct {
	series map[string][]model.FxRate
}

// NewFxTable builds an index over rates. The input slice is not modified.
func NewFxTable(rates []model.FxRate) *FxTable {
	series := make(map[string][]model.FxRate)
	for _, r := range rates {
		cur := normalizeCurrency(r.Currency)
		series[cur] = append(series[cur], r)
	}
	for _, s := range series {
		sort.SliceStable(s, func(i, j int) bool { return s[i].RateDate.Before(s[j].RateDate) })
	}
	return &FxTable{series: series}
}

// RateAsOf resolves the rate for currency in effect on asOf: the latest rate
// dated on or before asOf. When no such rate exists, or asOf is nil, it falls
// back to the latest rate known for the currency. Currencies without any
// rates resolve to an invalid NullDecimal.
func (f *FxTable) RateAsOf(currency string, asOf *time.Time) decimal.NullDecimal {
	s := f.series[normalizeCurrency(currency)]
	if len(s) == 0 {
		return decimal.NullDecimal{}
	}
	if asOf != nil {
		// First index whose date is after asOf; the one before it is the as-of rate.
		n := sort.Search(len(s), func(i int) bool { return s[i].RateDate.After(*asOf) })
		if n > 0 {
			return decimal.NewNullDecimal(s[n-1].RateToUSD)
		}
	}
	return decimal.NewNullDecimal(s[len(s)-1].RateToUSD)
}

var usdIdentity = decimal.NewNullDecimal(decimal.NewFromInt(1))

// ConvertCurrency resolves an FX rate per opportunity and computes AmountUSD.
// USD opportunities convert at an identity rate. A null amount or an
// unresolvable rate yields a null AmountUSD; conversion never fails.
func ConvertCurrency(opps []model.EnrichedOpportunity, fx *FxTable) []model.EnrichedOpportunity {
	out := make([]model.EnrichedOpportunity, len(opps))
	for i, o := range opps {
		o.AmountValue = ParseDecimal(o.Amount)

		if normalizeCurrency(o.CurrencyIsoCode) == DefaultCurrency {
			o.FxRateUsed = usdIdentity
		} else {
			o.FxRateUsed = fx.RateAsOf(o.CurrencyIsoCode, o.CloseDate)
		}

		o.AmountUSD = decimal.NullDecimal{}
		if o.AmountValue.Valid && o.FxRateUsed.Valid {
			o.AmountUSD = decimal.NewNullDecimal(o.AmountValue.Decimal.Mul(o.FxRateUsed.Decimal))
		}
		out[i] = o
	}
	return out
}
