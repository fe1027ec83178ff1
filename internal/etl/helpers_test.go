package etl

import (
	"strings"
	"time"

	"github.com/sells-group/opportunity-etl/internal/model"
)

const oppHeader = "Id,AccountId,Name,StageName,Amount,CurrencyIsoCode,Probability,CloseDate,CreatedDate,LastModifiedDate,OwnerEmail,Phone,IsWon,IsClosed"

// tbl builds a Table from a comma-separated header and comma-separated rows.
func tbl(name, header string, rows ...string) Table {
	data := make([][]string, len(rows))
	for i, r := range rows {
		data[i] = strings.Split(r, ",")
	}
	return NewTable(name, strings.Split(header, ","), data)
}

func sampleOpportunities() Table {
	return tbl(TableOpportunities, oppHeader,
		"0061,A1,Acme Renewal,Qualification,12000,USD,20,2025-09-15,2025-08-01,2025-08-10T10:00:00Z,Rep.One@Example.com, (555) 123-4567,false,false",
		"0062,A2,Globex Expansion,Negotiation,80000,EUR,60,2025-10-01,2025-07-01,2025-08-01T10:00:00Z,rep.two@example.com,555.987.6543,false,false",
		"0062,A2,Globex Expansion,Negotiation,85000,EUR,72,2025-10-01,2025-07-01,2025-09-01T10:00:00Z,rep.two@example.com,555.987.6543,false,false",
		"0063,A1,Broken Deal,Mystery Stage,-500,USD,150,2099-01-01,2025-01-01,2025-02-01,,12345,true,true",
		"0064,A9,Tokyo Pilot,Closed Lost,1000000,JPY,0,2025-09-01,2025-06-01,2025-09-02,rep.three@example.com,+81 3-1234-5678,false,true",
	)
}

func sampleAccounts() Table {
	return tbl(TableAccounts, "Id,Name,Industry,OwnerId",
		"A1,Acme Corp,Manufacturing,U1",
		"A2,Globex,Energy,U2",
	)
}

func sampleFx() Table {
	return tbl(TableFxRates, "currency,rate_date,rate_to_usd",
		"EUR,2025-09-01,1.05",
		"eur,2025-10-01,1.08",
		"EUR,2025-11-01,1.10",
		"GBP,2025-10-01,1.30",
	)
}

func sampleStageMap() Table {
	return tbl(TableStageMap, "source_stage,std_stage",
		"Qualification,Pipeline",
		"Negotiation,Commit",
		"Closed Lost,Lost",
		"Closed Won,Won",
	)
}

func fixedClock() time.Time {
	return time.Date(2025, 10, 17, 9, 30, 0, 0, time.UTC)
}

func date(s string) *time.Time {
	return ParseDate(s)
}

func enriched(opps ...model.Opportunity) []model.EnrichedOpportunity {
	out := make([]model.EnrichedOpportunity, len(opps))
	for i, o := range opps {
		out[i] = model.EnrichedOpportunity{Opportunity: o}
	}
	return out
}
