package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/opportunity-etl/internal/config"
	"github.com/sells-group/opportunity-etl/internal/etl"
	"github.com/sells-group/opportunity-etl/internal/fetcher"
	"github.com/sells-group/opportunity-etl/internal/model"
	sfpkg "github.com/sells-group/opportunity-etl/pkg/salesforce"
)

var syncNoOutput bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Extract opportunities from Salesforce, transform, and load into the store",
	Long: `Extracts non-deleted Opportunity and Account records from Salesforce,
reads the FX rate and stage-map tables from their configured locations,
runs the canonicalization pipeline, and loads canonical records and
anomalies into the configured store. Output files are written too unless
--no-output is set.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("salesforce"); err != nil {
			return err
		}

		sf, err := initSalesforce()
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		in, err := loadInputs(ctx, salesforceSources(sf, newLoader(), cfg.Input))
		if err != nil {
			return err
		}

		b, err := runBatch(ctx, in, model.RunSourceSalesforce, st, nil, transformOptions()...)
		if err != nil {
			return err
		}

		if !syncNoOutput {
			if _, err := writeOutputs(b, cfg.Output.Dir, cfg.Output.XLSX); err != nil {
				return err
			}
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(b.Run.Summary)
	},
}

// salesforceSources extracts opportunities and accounts from Salesforce and
// reads the reference tables from their configured locations.
func salesforceSources(sf sfpkg.Client, l *fetcher.Loader, in config.InputConfig) [4]tableSource {
	return [4]tableSource{
		func(ctx context.Context) (etl.Table, error) { return sfpkg.ExtractOpportunities(ctx, sf) },
		func(ctx context.Context) (etl.Table, error) { return sfpkg.ExtractAccounts(ctx, sf) },
		fromLocation(l, etl.TableFxRates, in.FxRates),
		fromLocation(l, etl.TableStageMap, in.StageMap),
	}
}

func init() {
	syncCmd.Flags().BoolVar(&syncNoOutput, "no-output", false, "skip writing output files")
	rootCmd.AddCommand(syncCmd)
}
