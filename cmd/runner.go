package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/opportunity-etl/internal/config"
	"github.com/sells-group/opportunity-etl/internal/etl"
	"github.com/sells-group/opportunity-etl/internal/export"
	"github.com/sells-group/opportunity-etl/internal/fetcher"
	"github.com/sells-group/opportunity-etl/internal/model"
	"github.com/sells-group/opportunity-etl/internal/store"
)

// inputs holds the four tables of one batch.
type inputs struct {
	Opportunities etl.Table
	Accounts      etl.Table
	FxRates       etl.Table
	StageMap      etl.Table
}

// tableSource produces one input table.
type tableSource func(ctx context.Context) (etl.Table, error)

func fromLocation(l *fetcher.Loader, name, location string) tableSource {
	return func(ctx context.Context) (etl.Table, error) {
		return l.LoadTable(ctx, name, location)
	}
}

// fileSources reads all four tables from configured locations.
func fileSources(l *fetcher.Loader, in config.InputConfig) [4]tableSource {
	return [4]tableSource{
		fromLocation(l, etl.TableOpportunities, in.Opportunities),
		fromLocation(l, etl.TableAccounts, in.Accounts),
		fromLocation(l, etl.TableFxRates, in.FxRates),
		fromLocation(l, etl.TableStageMap, in.StageMap),
	}
}

// loadInputs reads the opportunity, account, FX and stage-map tables
// concurrently. The first failure cancels the rest.
func loadInputs(ctx context.Context, sources [4]tableSource) (*inputs, error) {
	var in inputs
	dst := [4]*etl.Table{&in.Opportunities, &in.Accounts, &in.FxRates, &in.StageMap}

	g, gCtx := errgroup.WithContext(ctx)
	for i, src := range sources {
		g.Go(func() error {
			t, err := src(gCtx)
			if err != nil {
				return err
			}
			*dst[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "load inputs")
	}

	zap.L().Info("inputs loaded",
		zap.Int("opportunities", in.Opportunities.Len()),
		zap.Int("accounts", in.Accounts.Len()),
		zap.Int("fx_rates", in.FxRates.Len()),
		zap.Int("stage_map", in.StageMap.Len()),
	)
	return &in, nil
}

// batch is the outcome of one transformation run.
type batch struct {
	Run       *model.Run
	Result    *etl.Result
	Anomalies []model.Anomaly
}

// runBatch transforms the inputs, detects anomalies and, when st is non-nil,
// persists the run. A *etl.SchemaError is returned unwrapped.
func runBatch(ctx context.Context, in *inputs, source model.RunSource, st store.Store, now func() time.Time, opts ...etl.Option) (*batch, error) {
	if now == nil {
		now = time.Now
	}
	opts = append([]etl.Option{etl.WithClock(now)}, opts...)

	started := now()
	res, err := etl.Transform(in.Opportunities, in.Accounts, in.FxRates, in.StageMap, opts...)
	if err != nil {
		return nil, err
	}
	anomalies := etl.DetectAnomalies(res.Enriched, opts...)
	finished := now()

	summary := etl.Summarize(res, anomalies, started, finished.Sub(started), etl.Policy(opts...))
	summary.RunID = uuid.NewString()

	run := &model.Run{
		ID:         summary.RunID,
		Source:     source,
		Summary:    summary,
		StartedAt:  started,
		FinishedAt: finished,
	}

	if st != nil {
		if err := st.SaveRun(ctx, run, res.Canonical, anomalies); err != nil {
			return nil, eris.Wrap(err, "save run")
		}
	}

	zap.L().Info("batch complete",
		zap.String("run_id", run.ID),
		zap.String("source", string(source)),
		zap.Int("rows_in", summary.RowsIn),
		zap.Int("rows_out", summary.RowsOut),
		zap.Int("anomalies", summary.AnomalyCount),
	)
	return &batch{Run: run, Result: res, Anomalies: anomalies}, nil
}

// writeOutputs exports a batch to the configured output directory.
func writeOutputs(b *batch, dir string, xlsx bool) (*export.Paths, error) {
	return export.Write(dir, b.Result.Canonical, b.Anomalies, b.Run.Summary, export.Options{XLSX: xlsx})
}
