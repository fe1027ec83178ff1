package etl

import (
	"fmt"
	"strings"
)

// Table names used in schema errors and logs.
const (
	TableOpportunities = "opportunities"
	TableAccounts      = "accounts"
	TableFxRates       = "fx_rates"
	TableStageMap      = "stage_map"
)

// Opportunity input columns.
const (
	ColID               = "Id"
	ColAccountID        = "AccountId"
	ColName             = "Name"
	ColStageName        = "StageName"
	ColAmount           = "Amount"
	ColCurrencyIsoCode  = "CurrencyIsoCode"
	ColProbability      = "Probability"
	ColCloseDate        = "CloseDate"
	ColCreatedDate      = "CreatedDate"
	ColLastModifiedDate = "LastModifiedDate"
	ColOwnerEmail       = "OwnerEmail"
	ColPhone            = "Phone"
	ColIsWon            = "IsWon"
	ColIsClosed         = "IsClosed"
)

// Account, FX and stage-map input columns.
const (
	ColIndustry    = "Industry"
	ColOwnerID     = "OwnerId"
	ColCurrency    = "currency"
	ColRateDate    = "rate_date"
	ColRateToUSD   = "rate_to_usd"
	ColSourceStage = "source_stage"
	ColStdStage    = "std_stage"
)

// RequiredOpportunityColumns lists every column the opportunity table must carry.
var RequiredOpportunityColumns = []string{
	ColID, ColAccountID, ColName, ColStageName, ColAmount, ColCurrencyIsoCode, ColProbability,
	ColCloseDate, ColCreatedDate, ColLastModifiedDate, ColOwnerEmail, ColPhone, ColIsWon, ColIsClosed,
}

// RequiredAccountColumns lists every column the account table must carry.
var RequiredAccountColumns = []string{ColID, ColName, ColIndustry, ColOwnerID}

// RequiredFxColumns lists every column the FX rate table must carry.
var RequiredFxColumns = []string{ColCurrency, ColRateDate, ColRateToUSD}

// RequiredStageMapColumns lists every column the stage-mapping table must carry.
var RequiredStageMapColumns = []string{ColSourceStage, ColStdStage}

// MissingColumns names the required columns absent from one input table.
type MissingColumns struct {
	Table   string   `json:"table"`
	Columns []string `json:"columns"`
}

// SchemaError reports required columns absent from the inputs. It is the only
// error a transformation returns; row-level data defects never fail a batch.
type SchemaError struct {
	Missing []MissingColumns
}

func (e *SchemaError) Error() string {
	parts := make([]string, 0, len(e.Missing))
	for _, m := range e.Missing {
		parts = append(parts, fmt.Sprintf("%s [%s]", m.Table, strings.Join(m.Columns, ", ")))
	}
	return "etl: missing required columns: " + strings.Join(parts, "; ")
}

// Validate checks all four inputs for their required columns and returns a
// *SchemaError listing every gap, or nil.
func Validate(opps, accts, fx, stages Table) error {
	var missing []MissingColumns
	check := func(name string, t Table, required []string) {
		if cols := t.Missing(required); len(cols) > 0 {
			missing = append(missing, MissingColumns{Table: name, Columns: cols})
		}
	}
	check(TableOpportunities, opps, RequiredOpportunityColumns)
	check(TableAccounts, accts, RequiredAccountColumns)
	check(TableFxRates, fx, RequiredFxColumns)
	check(TableStageMap, stages, RequiredStageMapColumns)

	if len(missing) > 0 {
		return &SchemaError{Missing: missing}
	}
	return nil
}
