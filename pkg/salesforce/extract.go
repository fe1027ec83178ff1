package salesforce

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/opportunity-etl/internal/etl"
)

// opportunityFields are the Opportunity fields requested when the org has them.
// OwnerEmail is not a field; it is flattened from the Owner relationship.
var opportunityFields = []string{
	etl.ColID, etl.ColAccountID, etl.ColName, etl.ColStageName, etl.ColAmount,
	etl.ColCurrencyIsoCode, etl.ColProbability, etl.ColCloseDate, etl.ColCreatedDate,
	etl.ColLastModifiedDate, etl.ColPhone, etl.ColIsWon, etl.ColIsClosed,
}

// accountFields are the Account fields requested when the org has them.
var accountFields = etl.RequiredAccountColumns

// ExtractOpportunities queries every non-deleted Opportunity into a table
// carrying the full opportunity input contract. Fields the org does not expose
// are filled with blanks; a missing CurrencyIsoCode defaults to USD.
func ExtractOpportunities(ctx context.Context, c Client) (etl.Table, error) {
	fields, err := availableFields(ctx, c, "Opportunity", opportunityFields)
	if err != nil {
		return etl.Table{}, err
	}

	soql := fmt.Sprintf(
		"SELECT %s, Owner.Email FROM Opportunity WHERE IsDeleted = false ORDER BY CreatedDate DESC",
		strings.Join(fields, ", "),
	)

	var records []map[string]any
	if err := c.Query(ctx, soql, &records); err != nil {
		return etl.Table{}, eris.Wrap(err, "sf: extract opportunities")
	}

	rows := make([][]string, len(records))
	for i, rec := range records {
		rec[etl.ColOwnerEmail] = ownerEmail(rec["Owner"])
		if formatValue(rec[etl.ColCurrencyIsoCode]) == "" {
			rec[etl.ColCurrencyIsoCode] = "USD"
		}
		rows[i] = toRow(rec, etl.RequiredOpportunityColumns)
	}

	zap.L().Info("sf: extracted opportunities", zap.Int("rows", len(rows)), zap.Int("fields", len(fields)))
	return etl.NewTable(etl.TableOpportunities, etl.RequiredOpportunityColumns, rows), nil
}

// ExtractAccounts queries every non-deleted Account.
func ExtractAccounts(ctx context.Context, c Client) (etl.Table, error) {
	fields, err := availableFields(ctx, c, "Account", accountFields)
	if err != nil {
		return etl.Table{}, err
	}

	soql := fmt.Sprintf("SELECT %s FROM Account WHERE IsDeleted = false", strings.Join(fields, ", "))

	var records []map[string]any
	if err := c.Query(ctx, soql, &records); err != nil {
		return etl.Table{}, eris.Wrap(err, "sf: extract accounts")
	}

	rows := make([][]string, len(records))
	for i, rec := range records {
		rows[i] = toRow(rec, accountFields)
	}

	zap.L().Info("sf: extracted accounts", zap.Int("rows", len(rows)), zap.Int("fields", len(fields)))
	return etl.NewTable(etl.TableAccounts, accountFields, rows), nil
}

// availableFields filters desired down to the fields the object exposes.
func availableFields(ctx context.Context, c Client, object string, desired []string) ([]string, error) {
	desc, err := c.DescribeSObject(ctx, object)
	if err != nil {
		return nil, eris.Wrapf(err, "sf: fields for %s", object)
	}

	var fields, missing []string
	for _, f := range desired {
		if desc.HasField(f) {
			fields = append(fields, f)
		} else {
			missing = append(missing, f)
		}
	}
	if len(fields) == 0 {
		return nil, eris.Errorf("sf: %s exposes none of the requested fields", object)
	}
	if len(missing) > 0 {
		zap.L().Warn("sf: fields not available in this org",
			zap.String("object", object),
			zap.Strings("missing", missing),
		)
	}
	return fields, nil
}

func ownerEmail(owner any) string {
	m, ok := owner.(map[string]any)
	if !ok {
		return ""
	}
	return formatValue(m["Email"])
}

func toRow(rec map[string]any, columns []string) []string {
	row := make([]string, len(columns))
	for i, col := range columns {
		row[i] = formatValue(rec[col])
	}
	return row
}

// formatValue renders a decoded JSON value as table text.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	case int:
		return strconv.Itoa(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}
