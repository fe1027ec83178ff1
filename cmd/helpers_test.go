package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/opportunity-etl/internal/config"
	"github.com/sells-group/opportunity-etl/internal/store"
)

const fixtureOpportunities = `Id,AccountId,Name,StageName,Amount,CurrencyIsoCode,Probability,CloseDate,CreatedDate,LastModifiedDate,OwnerEmail,Phone,IsWon,IsClosed
0061,A1,Acme Renewal,Qualification,12000,USD,20,2025-09-15,2025-08-01,2025-08-10T10:00:00Z,Rep.One@Example.com,(555) 123-4567,false,false
0062,A2,Globex Expansion,Negotiation,80000,EUR,60,2025-10-01,2025-07-01,2025-08-01T10:00:00Z,rep.two@example.com,555.987.6543,false,false
0062,A2,Globex Expansion,Negotiation,85000,EUR,72,2025-10-01,2025-07-01,2025-09-01T10:00:00Z,rep.two@example.com,555.987.6543,false,false
0063,A1,Broken Deal,Mystery Stage,-500,USD,150,2099-01-01,2025-01-01,2025-02-01,,12345,true,true
0064,A9,Tokyo Pilot,Closed Lost,1000000,JPY,0,2025-09-01,2025-06-01,2025-09-02,rep.three@example.com,+81 3-1234-5678,false,true
`

const fixtureAccounts = `Id,Name,Industry,OwnerId
A1,Acme Corp,Manufacturing,U1
A2,Globex,Energy,U2
`

const fixtureFx = `currency,rate_date,rate_to_usd
EUR,2025-09-01,1.05
eur,2025-10-01,1.08
EUR,2025-11-01,1.10
`

const fixtureStageMap = `- source_stage: Qualification
  std_stage: Pipeline
- source_stage: Negotiation
  std_stage: Commit
- source_stage: Closed Lost
  std_stage: Lost
`

// writeFixtures writes the four input tables to dir and returns their locations.
func writeFixtures(t *testing.T, dir string) config.InputConfig {
	t.Helper()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}
	return config.InputConfig{
		Opportunities: write("opportunities.csv", fixtureOpportunities),
		Accounts:      write("accounts.csv", fixtureAccounts),
		FxRates:       write("fx_rates.csv", fixtureFx),
		StageMap:      write("stage_map.yaml", fixtureStageMap),
	}
}

func fixedNow() time.Time {
	return time.Date(2025, 10, 17, 9, 30, 0, 0, time.UTC)
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(t.Context()))
	return st
}

// useConfig installs c as the command config for the duration of the test.
func useConfig(t *testing.T, c *config.Config) {
	t.Helper()
	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
}

func testConfig(in config.InputConfig, outDir string) *config.Config {
	return &config.Config{
		Input:  in,
		Output: config.OutputConfig{Dir: outDir},
		Store:  config.StoreConfig{Driver: "sqlite"},
		Fetch:  config.FetchConfig{TimeoutSecs: 5, UserAgent: "opportunity-etl-test"},
		Server: config.ServerConfig{Port: 8080, AllowedOrigins: []string{"*"}},
		Log:    config.LogConfig{Level: "error", Format: "json"},
	}
}
