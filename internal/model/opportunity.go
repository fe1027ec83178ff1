package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Opportunity is a single CRM opportunity row after loading. Amount and
// Probability are kept as source text so that numeric coercion happens in
// exactly one place and never loses precision at load time.
type Opportunity struct {
	ID               string     `json:"id"`
	AccountID        string     `json:"account_id"`
	Name             string     `json:"name"`
	StageName        string     `json:"stage_name"`
	Amount           string     `json:"amount"`
	CurrencyIsoCode  string     `json:"currency_iso_code"`
	Probability      string     `json:"probability"`
	CloseDate        *time.Time `json:"close_date,omitempty"`
	CreatedDate      *time.Time `json:"created_date,omitempty"`
	LastModifiedDate *time.Time `json:"last_modified_date,omitempty"`
	OwnerEmail       string     `json:"-"`
	Phone            string     `json:"-"`
	WonFlag          string     `json:"won_flag"`
	ClosedFlag       string     `json:"closed_flag"`
}

// Account is a CRM account row used to enrich opportunities.
type Account struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Industry string `json:"industry"`
	OwnerID  string `json:"owner_id"`
}

// FxRate is one currency-to-USD rate effective on a calendar date.
type FxRate struct {
	Currency  string          `json:"currency"`
	RateDate  time.Time       `json:"rate_date"`
	RateToUSD decimal.Decimal `json:"rate_to_usd"`
}

// StageMapping maps organization-specific stage text onto the standard taxonomy.
type StageMapping struct {
	SourceStage string `json:"source_stage"`
	StdStage    string `json:"std_stage"`
}

// EnrichedOpportunity is an opportunity carrying every field derived by the
// transformation stages. It is the input to anomaly detection.
type EnrichedOpportunity struct {
	Opportunity

	StageStd        *string `json:"stage_std,omitempty"`
	AccountName     *string `json:"account_name,omitempty"`
	AccountIndustry *string `json:"account_industry,omitempty"`
	AccountOwnerID  *string `json:"account_owner_id,omitempty"`

	FxRateUsed  decimal.NullDecimal `json:"fx_rate_used"`
	AmountValue decimal.NullDecimal `json:"amount_value"`
	AmountUSD   decimal.NullDecimal `json:"amount_usd"`

	ProbabilityValue   decimal.NullDecimal `json:"probability_value"`
	ExpectedRevenueUSD decimal.NullDecimal `json:"expected_revenue_usd"`
	SalesCycleDays     *int                `json:"sales_cycle_days,omitempty"`
	IsWon              bool                `json:"is_won"`
	IsLost             bool                `json:"is_lost"`

	OwnerEmailHash  *string `json:"owner_email_hash,omitempty"`
	PhoneNormalized *string `json:"phone_normalized,omitempty"`
}

// CanonicalRecord is the projected, PII-free, USD-normalized opportunity
// handed to downstream analytics.
type CanonicalRecord struct {
	ID                 string              `json:"id"`
	AccountID          string              `json:"account_id"`
	AccountName        *string             `json:"account_name"`
	AccountIndustry    *string             `json:"account_industry"`
	Name               string              `json:"name"`
	StageName          string              `json:"stage_name"`
	StageStd           *string             `json:"stage_std"`
	Amount             decimal.NullDecimal `json:"amount"`
	CurrencyIsoCode    string              `json:"currency_iso_code"`
	AmountUSD          decimal.NullDecimal `json:"amount_usd"`
	ExpectedRevenueUSD decimal.NullDecimal `json:"expected_revenue_usd"`
	Probability        decimal.NullDecimal `json:"probability"`
	CloseDate          *time.Time          `json:"close_date"`
	CreatedDate        *time.Time          `json:"created_date"`
	LastModifiedDate   *time.Time          `json:"last_modified_date"`
	SalesCycleDays     *int                `json:"sales_cycle_days"`
	OwnerEmailHash     *string             `json:"owner_email_hash"`
	PhoneNormalized    *string             `json:"phone_normalized"`
	IsWon              bool                `json:"is_won"`
	IsLost             bool                `json:"is_lost"`
}

// CanonicalColumns is the fixed output column order of a CanonicalRecord.
var CanonicalColumns = []string{
	"id", "account_id", "account_name", "account_industry", "name",
	"stage_name", "stage_std",
	"amount", "currency_iso_code", "amount_usd", "expected_revenue_usd", "probability",
	"close_date", "created_date", "last_modified_date", "sales_cycle_days",
	"owner_email_hash", "phone_normalized", "is_won", "is_lost",
}

// AnomalyCode identifies a data-quality rule.
type AnomalyCode string

const (
	AnomalyNegativeAmount  AnomalyCode = "NEG_AMOUNT"
	AnomalyProbabilityOOB  AnomalyCode = "PROB_OOB"
	AnomalyFutureClose     AnomalyCode = "FUTURE_CLOSE"
	AnomalyMissingStageMap AnomalyCode = "MISSING_STAGE_MAP"
	AnomalyMissingFX       AnomalyCode = "MISSING_FX"
)

// Anomaly is one rule violation on one opportunity.
type Anomaly struct {
	OpportunityID string      `json:"opportunity_id"`
	Code          AnomalyCode `json:"code"`
	Detail        string      `json:"detail"`
}

// AnomalyColumns is the output column order of an Anomaly.
var AnomalyColumns = []string{"opportunity_id", "code", "detail"}
