// Package export writes canonical records, anomalies and the run summary to
// an output directory.
package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/opportunity-etl/internal/model"
)

// Output file names.
const (
	CanonicalFile = "opportunities_transformed.csv"
	AnomaliesFile = "opportunities_anomalies.csv"
	WorkbookFile  = "opportunities.xlsx"
	SummaryFile   = "run_summary.json"
)

// Options controls which artifacts Write produces.
type Options struct {
	XLSX bool
}

// Paths lists the files written by Write.
type Paths struct {
	Canonical string `json:"canonical"`
	Anomalies string `json:"anomalies"`
	Workbook  string `json:"workbook,omitempty"`
	Summary   string `json:"summary"`
}

// Write creates dir if needed and writes every output artifact into it.
func Write(dir string, records []model.CanonicalRecord, anomalies []model.Anomaly, summary model.RunSummary, opts Options) (*Paths, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "export: create dir %s", dir)
	}

	p := &Paths{
		Canonical: filepath.Join(dir, CanonicalFile),
		Anomalies: filepath.Join(dir, AnomaliesFile),
		Summary:   filepath.Join(dir, SummaryFile),
	}

	if err := WriteCanonicalCSV(p.Canonical, records); err != nil {
		return nil, err
	}
	if err := WriteAnomaliesCSV(p.Anomalies, anomalies); err != nil {
		return nil, err
	}
	if opts.XLSX {
		p.Workbook = filepath.Join(dir, WorkbookFile)
		if err := WriteXLSX(p.Workbook, records, anomalies); err != nil {
			return nil, err
		}
	}
	if err := WriteSummaryJSON(p.Summary, summary); err != nil {
		return nil, err
	}

	zap.L().Info("export: outputs written",
		zap.String("dir", dir),
		zap.Int("records", len(records)),
		zap.Int("anomalies", len(anomalies)),
	)
	return p, nil
}

// WriteCanonicalCSV writes records with a CanonicalColumns header.
func WriteCanonicalCSV(path string, records []model.CanonicalRecord) error {
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = CanonicalRow(r)
	}
	return writeCSV(path, model.CanonicalColumns, rows)
}

// WriteAnomaliesCSV writes anomalies with an AnomalyColumns header.
func WriteAnomaliesCSV(path string, anomalies []model.Anomaly) error {
	rows := make([][]string, len(anomalies))
	for i, a := range anomalies {
		rows[i] = AnomalyRow(a)
	}
	return writeCSV(path, model.AnomalyColumns, rows)
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return eris.Wrap(err, "export: write header")
	}
	if err := w.WriteAll(rows); err != nil {
		return eris.Wrapf(err, "export: write rows to %s", path)
	}
	return eris.Wrapf(f.Sync(), "export: sync %s", path)
}

// WriteXLSX writes an "opportunities" and an "anomalies" sheet.
func WriteXLSX(path string, records []model.CanonicalRecord, anomalies []model.Anomaly) error {
	f := xlsx.NewFile()

	opps, err := f.AddSheet("opportunities")
	if err != nil {
		return eris.Wrap(err, "export: add opportunities sheet")
	}
	addRow(opps, model.CanonicalColumns)
	for _, r := range records {
		addRow(opps, CanonicalRow(r))
	}

	anom, err := f.AddSheet("anomalies")
	if err != nil {
		return eris.Wrap(err, "export: add anomalies sheet")
	}
	addRow(anom, model.AnomalyColumns)
	for _, a := range anomalies {
		addRow(anom, AnomalyRow(a))
	}

	return eris.Wrapf(f.Save(path), "export: save %s", path)
}

func addRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

// WriteSummaryJSON writes the run summary as indented JSON.
func WriteSummaryJSON(path string, summary model.RunSummary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return eris.Wrap(err, "export: marshal summary")
	}
	return eris.Wrapf(os.WriteFile(path, append(data, '\n'), 0o644), "export: write %s", path)
}

// CanonicalRow renders a record in CanonicalColumns order. Nulls are empty
// cells; USD-derived money has two decimals, source values keep their scale.
func CanonicalRow(r model.CanonicalRecord) []string {
	return []string{
		r.ID,
		r.AccountID,
		str(r.AccountName),
		str(r.AccountIndustry),
		r.Name,
		r.StageName,
		str(r.StageStd),
		raw(r.Amount),
		r.CurrencyIsoCode,
		money(r.AmountUSD),
		money(r.ExpectedRevenueUSD),
		raw(r.Probability),
		date(r.CloseDate),
		date(r.CreatedDate),
		date(r.LastModifiedDate),
		days(r.SalesCycleDays),
		str(r.OwnerEmailHash),
		str(r.PhoneNormalized),
		strconv.FormatBool(r.IsWon),
		strconv.FormatBool(r.IsLost),
	}
}

// AnomalyRow renders an anomaly in AnomalyColumns order.
func AnomalyRow(a model.Anomaly) []string {
	return []string{a.OpportunityID, string(a.Code), a.Detail}
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func raw(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}

func money(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.StringFixed(2)
}

// date renders midnight UTC values as a bare date and anything else as RFC 3339.
func date(t *time.Time) string {
	if t == nil {
		return ""
	}
	u := t.UTC()
	if u.Hour() == 0 && u.Minute() == 0 && u.Second() == 0 && u.Nanosecond() == 0 {
		return u.Format(time.DateOnly)
	}
	return u.Format(time.RFC3339)
}

func days(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}
