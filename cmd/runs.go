package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/opportunity-etl/internal/model"
	"github.com/sells-group/opportunity-etl/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect transformation run history",
	Long:  "Commands for listing runs and viewing their summaries and anomalies.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List transformation runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		source, _ := cmd.Flags().GetString("source")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Source: model.RunSource(source),
			Limit:  limit,
			Offset: offset,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the summary of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

// -- runs anomalies --

var runsAnomaliesCmd = &cobra.Command{
	Use:   "anomalies <run-id>",
	Short: "List the anomalies detected by a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		anomalies, err := st.ListAnomalies(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs anomalies")
		}
		if len(anomalies) == 0 {
			fmt.Fprintln(os.Stderr, "No anomalies found.")
			return nil
		}

		formatAnomalies(os.Stdout, anomalies)
		return nil
	},
}

func init() {
	runsListCmd.Flags().String("source", "", "filter by run source (files, salesforce)")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")
	runsListCmd.Flags().Int("offset", 0, "number of runs to skip")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsAnomaliesCmd)
	rootCmd.AddCommand(runsCmd)
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSOURCE\tSTARTED\tROWS_IN\tROWS_OUT\tANOMALIES\tDURATION")
	_, _ = fmt.Fprintln(w, "--\t------\t-------\t-------\t--------\t---------\t--------")

	for _, r := range runs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%.1fs\n",
			truncateID(r.ID),
			r.Source,
			r.StartedAt.Format("2006-01-02 15:04"),
			r.Summary.RowsIn,
			r.Summary.RowsOut,
			r.Summary.AnomalyCount,
			r.Summary.DurationSeconds,
		)
	}
	_ = w.Flush()
}

// formatAnomalies writes a tabular list of anomalies to w.
func formatAnomalies(out io.Writer, anomalies []model.StoredAnomaly) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "OPPORTUNITY\tCODE\tDETAIL")
	for _, a := range anomalies {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", a.OpportunityID, a.Code, a.Detail)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
