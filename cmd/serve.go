package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/opportunity-etl/internal/config"
	"github.com/sells-group/opportunity-etl/internal/etl"
	"github.com/sells-group/opportunity-etl/internal/fetcher"
	"github.com/sells-group/opportunity-etl/internal/model"
	"github.com/sells-group/opportunity-etl/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for triggering and inspecting runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		allowed, err := fetcher.NewAllowlist(cfg.Server.AllowedInputs)
		if err != nil {
			return eris.Wrap(err, "serve: parse allowed inputs")
		}

		api := &apiServer{
			store:    st,
			loader:   newLoader(),
			defaults: cfg.Input,
			allowed:  allowed,
			opts:     transformOptions(),
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           newRouter(api, cfg.Server.AllowedOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// apiServer serves run history and triggers file-based runs. Runs are
// serialized: only one batch transforms at a time. Request bodies may only
// override inputs with locations the allowlist accepts.
type apiServer struct {
	store    store.Store
	loader   *fetcher.Loader
	defaults config.InputConfig
	allowed  *fetcher.Allowlist
	opts     []etl.Option
	now      func() time.Time

	mu sync.Mutex
}

// runRequest overrides the configured input locations for one run.
type runRequest struct {
	Opportunities string `json:"opportunities"`
	Accounts      string `json:"accounts"`
	FxRates       string `json:"fx_rates"`
	StageMap      string `json:"stage_map"`
}

func newRouter(api *apiServer, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/runs", func(r chi.Router) {
		r.Get("/", api.listRuns)
		r.Post("/", api.createRun)
		r.Get("/{id}", api.getRun)
		r.Get("/{id}/anomalies", api.listAnomalies)
	})
	return r
}

func (a *apiServer) createRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	in := a.defaults
	for _, o := range []struct {
		field    string
		dst      *string
		location string
	}{
		{"opportunities", &in.Opportunities, req.Opportunities},
		{"accounts", &in.Accounts, req.Accounts},
		{"fx_rates", &in.FxRates, req.FxRates},
		{"stage_map", &in.StageMap, req.StageMap},
	} {
		if o.location == "" {
			continue
		}
		if !a.allowed.Allows(o.location) {
			zap.L().Warn("api: input location rejected", zap.String("field", o.field), zap.String("location", o.location))
			writeError(w, http.StatusBadRequest, o.field+" location is not an allowed input")
			return
		}
		*o.dst = o.location
	}
	if in.Opportunities == "" || in.Accounts == "" || in.FxRates == "" || in.StageMap == "" {
		writeError(w, http.StatusBadRequest, "opportunities, accounts, fx_rates and stage_map locations are required")
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	ctx := r.Context()
	tables, err := loadInputs(ctx, fileSources(a.loader, in))
	if err != nil {
		zap.L().Error("api: load inputs failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "could not load inputs")
		return
	}

	b, err := runBatch(ctx, tables, model.RunSourceFiles, a.store, a.now, a.opts...)
	if err != nil {
		var schemaErr *etl.SchemaError
		if errors.As(err, &schemaErr) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":   schemaErr.Error(),
				"missing": schemaErr.Missing,
			})
			return
		}
		zap.L().Error("api: run failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "run failed")
		return
	}

	writeJSON(w, http.StatusCreated, b.Run)
}

func (a *apiServer) listRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.RunFilter{Source: model.RunSource(q.Get("source"))}
	for key, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		if v := q.Get(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeError(w, http.StatusBadRequest, "invalid "+key)
				return
			}
			*dst = n
		}
	}

	runs, err := a.store.ListRuns(r.Context(), filter)
	if err != nil {
		zap.L().Error("api: list runs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list runs failed")
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (a *apiServer) getRun(w http.ResponseWriter, r *http.Request) {
	run, err := a.store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if eris.Is(err, store.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		zap.L().Error("api: get run failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "get run failed")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (a *apiServer) listAnomalies(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := a.store.GetRun(r.Context(), id); err != nil {
		if eris.Is(err, store.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "get run failed")
		return
	}

	anomalies, err := a.store.ListAnomalies(r.Context(), id)
	if err != nil {
		zap.L().Error("api: list anomalies failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list anomalies failed")
		return
	}
	if anomalies == nil {
		anomalies = []model.StoredAnomaly{}
	}
	writeJSON(w, http.StatusOK, anomalies)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
