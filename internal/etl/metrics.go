package etl

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sells-group/opportunity-etl/internal/model"
)

var hundred = decimal.NewFromInt(100)

// ComputeMetrics derives expected revenue, sales-cycle length and won/lost
// flags. Amount and probability are coerced safely: non-numeric text becomes
// null, never an error.
func ComputeMetrics(opps []model.EnrichedOpportunity, policy model.RevenuePolicy) []model.EnrichedOpportunity {
	out := make([]model.EnrichedOpportunity, len(opps))
	for i, o := range opps {
		o.AmountValue = ParseDecimal(o.Amount)
		o.ProbabilityValue = ParseDecimal(o.Probability)
		o.ExpectedRevenueUSD = expectedRevenue(o.AmountUSD, o.ProbabilityValue, policy)
		o.SalesCycleDays = cycleDays(o.CreatedDate, o.CloseDate)
		o.IsWon = IsTruthy(o.WonFlag)
		o.IsLost = IsTruthy(o.ClosedFlag) && !o.IsWon
		out[i] = o
	}
	return out
}

// expectedRevenue computes amountUSD * probability/100. Under
// RevenueNullAsZero a null input contributes zero; under
// RevenueNullPropagates it makes the result null.
func expectedRevenue(amountUSD, probability decimal.NullDecimal, policy model.RevenuePolicy) decimal.NullDecimal {
	if policy == model.RevenueNullPropagates && (!amountUSD.Valid || !probability.Valid) {
		return decimal.NullDecimal{}
	}
	amt, prob := decimal.Zero, decimal.Zero
	if amountUSD.Valid {
		amt = amountUSD.Decimal
	}
	if probability.Valid {
		prob = probability.Decimal
	}
	return decimal.NewNullDecimal(amt.Mul(prob).Div(hundred))
}

// cycleDays returns whole days from created to closed, floored, or nil when
// either date is missing.
func cycleDays(created, closed *time.Time) *int {
	if created == nil || closed == nil {
		return nil
	}
	days := int(math.Floor(closed.Sub(*created).Hours() / 24))
	return &days
}
