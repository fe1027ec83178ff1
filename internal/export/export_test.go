package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/opportunity-etl/internal/fetcher"
	"github.com/sells-group/opportunity-etl/internal/model"
)

func strp(s string) *string { return &s }

func intp(n int) *int { return &n }

func timep(t time.Time) *time.Time { return &t }

func sampleRecords() []model.CanonicalRecord {
	return []model.CanonicalRecord{
		{
			ID:                 "0062",
			AccountID:          "A1",
			AccountName:        strp("Globex"),
			AccountIndustry:    strp("Manufacturing"),
			Name:               "Globex expansion",
			StageName:          "Negotiation",
			StageStd:           strp("Commit"),
			Amount:             decimal.NewNullDecimal(decimal.RequireFromString("85000")),
			CurrencyIsoCode:    "EUR",
			AmountUSD:          decimal.NewNullDecimal(decimal.RequireFromString("91800")),
			ExpectedRevenueUSD: decimal.NewNullDecimal(decimal.RequireFromString("66096")),
			Probability:        decimal.NewNullDecimal(decimal.RequireFromString("72")),
			CloseDate:          timep(time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)),
			CreatedDate:        timep(time.Date(2025, 7, 3, 0, 0, 0, 0, time.UTC)),
			LastModifiedDate:   timep(time.Date(2025, 9, 15, 14, 30, 0, 0, time.UTC)),
			SalesCycleDays:     intp(90),
			OwnerEmailHash:     strp("ab12"),
			PhoneNormalized:    strp("+14155550100"),
		},
		{
			ID:              "0064",
			AccountID:       "A9",
			Name:            "Tokyo pilot",
			StageName:       "Closed Lost",
			Amount:          decimal.NewNullDecimal(decimal.RequireFromString("1200000.50")),
			CurrencyIsoCode: "JPY",
			IsLost:          true,
		},
	}
}

func sampleAnomalies() []model.Anomaly {
	return []model.Anomaly{
		{OpportunityID: "0064", Code: model.AnomalyMissingStageMap, Detail: "stage has no mapping"},
		{OpportunityID: "0064", Code: model.AnomalyMissingFX, Detail: "no FX rate for currency"},
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCanonicalRow(t *testing.T) {
	row := CanonicalRow(sampleRecords()[0])
	require.Len(t, row, len(model.CanonicalColumns))

	got := make(map[string]string, len(row))
	for i, c := range model.CanonicalColumns {
		got[c] = row[i]
	}
	assert.Equal(t, "0062", got["id"])
	assert.Equal(t, "Globex", got["account_name"])
	assert.Equal(t, "85000", got["amount"])
	assert.Equal(t, "91800.00", got["amount_usd"])
	assert.Equal(t, "66096.00", got["expected_revenue_usd"])
	assert.Equal(t, "72", got["probability"])
	assert.Equal(t, "2025-10-01", got["close_date"])
	assert.Equal(t, "2025-09-15T14:30:00Z", got["last_modified_date"])
	assert.Equal(t, "90", got["sales_cycle_days"])
	assert.Equal(t, "false", got["is_won"])
}

func TestCanonicalRow_Nulls(t *testing.T) {
	row := CanonicalRow(sampleRecords()[1])

	got := make(map[string]string, len(row))
	for i, c := range model.CanonicalColumns {
		got[c] = row[i]
	}
	assert.Equal(t, "", got["account_name"])
	assert.Equal(t, "", got["stage_std"])
	assert.Equal(t, "1200000.5", got["amount"])
	assert.Equal(t, "", got["amount_usd"])
	assert.Equal(t, "", got["close_date"])
	assert.Equal(t, "", got["sales_cycle_days"])
	assert.Equal(t, "true", got["is_lost"])
}

func TestDate_NonUTCMidnight(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	ts := time.Date(2025, 10, 1, 0, 0, 0, 0, loc)
	assert.Equal(t, "2025-10-01T05:00:00Z", date(&ts))
}

func TestWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	summary := model.RunSummary{RunID: "run-1", RowsIn: 3, RowsOut: 2, AnomalyRows: 1, AnomalyCount: 2, RevenuePolicy: model.RevenueNullAsZero}

	paths, err := Write(dir, sampleRecords(), sampleAnomalies(), summary, Options{})
	require.NoError(t, err)
	assert.Empty(t, paths.Workbook)

	opps := readCSV(t, paths.Canonical)
	require.Len(t, opps, 3)
	assert.Equal(t, model.CanonicalColumns, opps[0])
	assert.Equal(t, "0062", opps[1][0])

	anoms := readCSV(t, paths.Anomalies)
	require.Len(t, anoms, 3)
	assert.Equal(t, []string{"opportunity_id", "code", "detail"}, anoms[0])
	assert.Equal(t, []string{"0064", "MISSING_FX", "no FX rate for currency"}, anoms[2])

	data, err := os.ReadFile(paths.Summary)
	require.NoError(t, err)
	var got model.RunSummary
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, summary.RunID, got.RunID)
	assert.Equal(t, 2, got.AnomalyCount)
	assert.Contains(t, string(data), "\n  \"rows_in\": 3")
}

func TestWrite_Empty(t *testing.T) {
	dir := t.TempDir()
	paths, err := Write(dir, nil, nil, model.RunSummary{}, Options{})
	require.NoError(t, err)

	assert.Equal(t, [][]string{model.CanonicalColumns}, readCSV(t, paths.Canonical))
	assert.Equal(t, [][]string{model.AnomalyColumns}, readCSV(t, paths.Anomalies))
}

func TestWrite_XLSX(t *testing.T) {
	dir := t.TempDir()
	paths, err := Write(dir, sampleRecords(), sampleAnomalies(), model.RunSummary{}, Options{XLSX: true})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, WorkbookFile), paths.Workbook)

	opps, err := fetcher.ReadXLSXTable("opportunities", paths.Workbook, fetcher.XLSXOptions{SheetName: "opportunities"})
	require.NoError(t, err)
	assert.Equal(t, model.CanonicalColumns, opps.Columns)
	require.Equal(t, 2, opps.Len())
	assert.Equal(t, "91800.00", opps.Get(opps.Rows[0], "amount_usd"))

	anoms, err := fetcher.ReadXLSXTable("anomalies", paths.Workbook, fetcher.XLSXOptions{SheetName: "anomalies"})
	require.NoError(t, err)
	assert.Equal(t, 2, anoms.Len())
	assert.Equal(t, "MISSING_STAGE_MAP", anoms.Get(anoms.Rows[0], "code"))
}

func TestWrite_BadDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, err := Write(filepath.Join(file, "out"), nil, nil, model.RunSummary{}, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "export: create dir")
}
