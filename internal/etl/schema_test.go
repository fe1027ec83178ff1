package etl

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_GetAndMissing(t *testing.T) {
	table := NewTable("t", []string{"\ufeffId", " Name ", "Amount"}, [][]string{{"1", "Acme"}})

	assert.True(t, table.Has("Id"))
	assert.True(t, table.Has("Name"))
	assert.Equal(t, "Acme", table.Get(table.Rows[0], "Name"))
	assert.Equal(t, "", table.Get(table.Rows[0], "Amount"), "short row")
	assert.Equal(t, "", table.Get(table.Rows[0], "Unknown"))
	assert.Equal(t, []string{"Phone", "Stage"}, table.Missing([]string{"Id", "Phone", "Stage"}))
}

func TestValidate_OK(t *testing.T) {
	assert.NoError(t, Validate(sampleOpportunities(), sampleAccounts(), sampleFx(), sampleStageMap()))
}

func TestValidate_ListsEveryMissingColumn(t *testing.T) {
	opps := tbl(TableOpportunities, "Id,AccountId,Name,StageName,Amount,CurrencyIsoCode,Probability,CloseDate,CreatedDate,LastModifiedDate,OwnerEmail,IsWon")
	accts := tbl(TableAccounts, "Id,Name")

	err := Validate(opps, accts, sampleFx(), sampleStageMap())
	require.Error(t, err)

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	require.Len(t, schemaErr.Missing, 2)
	assert.Equal(t, MissingColumns{Table: TableOpportunities, Columns: []string{"Phone", "IsClosed"}}, schemaErr.Missing[0])
	assert.Equal(t, MissingColumns{Table: TableAccounts, Columns: []string{"Industry", "OwnerId"}}, schemaErr.Missing[1])
	assert.Contains(t, err.Error(), "opportunities [Phone, IsClosed]")
	assert.Contains(t, err.Error(), "accounts [Industry, OwnerId]")
}

func TestValidate_ReferenceTables(t *testing.T) {
	fx := tbl(TableFxRates, "currency,rate")
	stages := tbl(TableStageMap, "StageName")

	err := Validate(sampleOpportunities(), sampleAccounts(), fx, stages)
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	require.Len(t, schemaErr.Missing, 2)
	assert.Equal(t, TableFxRates, schemaErr.Missing[0].Table)
	assert.Equal(t, []string{"rate_date", "rate_to_usd"}, schemaErr.Missing[0].Columns)
	assert.Equal(t, TableStageMap, schemaErr.Missing[1].Table)
}

func TestLoadOpportunities_DefaultsCurrency(t *testing.T) {
	opps := LoadOpportunities(tbl(TableOpportunities, oppHeader,
		"1,A1,Deal,Stage,100,,50,2025-01-01,bad-date,,,,,"))
	require.Len(t, opps, 1)
	assert.Equal(t, "USD", opps[0].CurrencyIsoCode)
	assert.NotNil(t, opps[0].CloseDate)
	assert.Nil(t, opps[0].CreatedDate)
	assert.Nil(t, opps[0].LastModifiedDate)
	assert.Equal(t, "100", opps[0].Amount)
}

func TestLoadFxRates_SkipsUnusableRows(t *testing.T) {
	rates := LoadFxRates(tbl(TableFxRates, "currency,rate_date,rate_to_usd",
		"eur,2025-10-01,1.08",
		"EUR,not-a-date,1.09",
		"EUR,2025-10-02,abc",
		"EUR,2025-10-03,0",
		",2025-10-04,1.1",
	))
	require.Len(t, rates, 1)
	assert.Equal(t, "EUR", rates[0].Currency)
	assert.Equal(t, "1.08", rates[0].RateToUSD.String())
}
