package store

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sells-group/opportunity-etl/internal/model"
)

func strp(s string) *string { return &s }

func sampleRun(id string, started time.Time) *model.Run {
	return &model.Run{
		ID:         id,
		Source:     model.RunSourceFiles,
		StartedAt:  started,
		FinishedAt: started.Add(2 * time.Second),
		Summary: model.RunSummary{
			RunID:           id,
			StartedAt:       started,
			RowsIn:          4,
			RowsOut:         4,
			AnomalyRows:     2,
			AnomalyCount:    5,
			DurationSeconds: 2,
			RevenuePolicy:   model.RevenueNullAsZero,
		},
	}
}

func sampleRecords() []model.CanonicalRecord {
	close := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	created := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	days := 92
	return []model.CanonicalRecord{
		{
			ID:                 "0062",
			AccountID:          "A2",
			AccountName:        strp("Globex"),
			Name:               "Globex Expansion",
			StageName:          "Negotiation",
			StageStd:           strp("Commit"),
			Amount:             decimal.NewNullDecimal(decimal.RequireFromString("85000")),
			CurrencyIsoCode:    "EUR",
			AmountUSD:          decimal.NewNullDecimal(decimal.RequireFromString("91800.00")),
			ExpectedRevenueUSD: decimal.NewNullDecimal(decimal.RequireFromString("66096.00")),
			Probability:        decimal.NewNullDecimal(decimal.RequireFromString("72")),
			CloseDate:          &close,
			CreatedDate:        &created,
			SalesCycleDays:     &days,
			PhoneNormalized:    strp("+15559876543"),
		},
		{
			ID:              "0064",
			AccountID:       "A3",
			Name:            "Initech Renewal",
			StageName:       "Closed Lost",
			StageStd:        strp("Lost"),
			Amount:          decimal.NewNullDecimal(decimal.RequireFromString("5000000")),
			CurrencyIsoCode: "JPY",
			IsLost:          true,
		},
	}
}

func sampleAnomalies() []model.Anomaly {
	return []model.Anomaly{
		{OpportunityID: "0064", Code: model.AnomalyMissingFX, Detail: "FX rate missing for currency/date"},
		{OpportunityID: "0063", Code: model.AnomalyNegativeAmount, Detail: "Amount is negative"},
	}
}
