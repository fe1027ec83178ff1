package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/opportunity-etl/internal/model"
	"github.com/sells-group/opportunity-etl/internal/store"
)

var (
	transformOpps     string
	transformAccounts string
	transformFx       string
	transformStageMap string
	transformOutDir   string
	transformXLSX     bool
	transformSave     bool
)

var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Transform opportunity files and write canonical and anomaly outputs",
	Long: `Reads opportunity, account, FX rate and stage-map tables, runs the
canonicalization pipeline, and writes opportunities_transformed.csv,
opportunities_anomalies.csv and run_summary.json to the output directory.

Each table may be a local CSV, XLSX or YAML file or an http(s):// or ftp:// URL.

Examples:
  opportunity-etl transform --opportunities data/opportunities.csv \
    --accounts data/accounts.csv --fx data/fx_rates.csv \
    --stage-map data/stage_map.yaml --outdir out

  # Also record the run and load results into the configured store
  opportunity-etl transform --save`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		applyTransformFlags()

		if err := cfg.Validate("files"); err != nil {
			return err
		}

		in, err := loadInputs(ctx, fileSources(newLoader(), cfg.Input))
		if err != nil {
			return err
		}

		var st store.Store
		if transformSave {
			st, err = openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
		}

		b, err := runBatch(ctx, in, model.RunSourceFiles, st, nil, transformOptions()...)
		if err != nil {
			return err
		}

		if _, err := writeOutputs(b, cfg.Output.Dir, cfg.Output.XLSX); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(b.Run.Summary)
	},
}

// applyTransformFlags overlays non-empty flags onto config.
func applyTransformFlags() {
	if transformOpps != "" {
		cfg.Input.Opportunities = transformOpps
	}
	if transformAccounts != "" {
		cfg.Input.Accounts = transformAccounts
	}
	if transformFx != "" {
		cfg.Input.FxRates = transformFx
	}
	if transformStageMap != "" {
		cfg.Input.StageMap = transformStageMap
	}
	if transformOutDir != "" {
		cfg.Output.Dir = transformOutDir
	}
	if transformXLSX {
		cfg.Output.XLSX = true
	}
}

func init() {
	transformCmd.Flags().StringVar(&transformOpps, "opportunities", "", "opportunities table location")
	transformCmd.Flags().StringVar(&transformAccounts, "accounts", "", "accounts table location")
	transformCmd.Flags().StringVar(&transformFx, "fx", "", "FX rates table location")
	transformCmd.Flags().StringVar(&transformStageMap, "stage-map", "", "stage mapping table location")
	transformCmd.Flags().StringVar(&transformOutDir, "outdir", "", "output directory (default from config)")
	transformCmd.Flags().BoolVar(&transformXLSX, "xlsx", false, "also write an XLSX workbook")
	transformCmd.Flags().BoolVar(&transformSave, "save", false, "record the run and load results into the store")
	rootCmd.AddCommand(transformCmd)
}
