// Package modeling exposes the scenario forecasting endpoints: model state,
// assumption and KPI edits, and forecast runs.
package modeling

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"fincast/pkg/core/forecast"
	"fincast/pkg/core/metrics"
	"fincast/pkg/core/report"
	"fincast/pkg/core/scenarios"
	"fincast/pkg/core/store"
)

// Horizon bounds enforced at the boundary. Requested horizons are clamped,
// never rejected; 0 selects the engine default.
const (
	minHorizonQuarters = 4
	maxHorizonQuarters = forecast.MaxHorizonQuarters
)

// Handler serves the modeling API. Presets are the deployment-wide defaults
// that stored per-ticker overrides merge over.
type Handler struct {
	repo     *store.ModelingRepo
	presets  forecast.AssumptionSet
	recorder *metrics.Recorder
	log      zerolog.Logger
}

// NewHandler wires the modeling endpoints.
func NewHandler(repo *store.ModelingRepo, presets forecast.AssumptionSet, recorder *metrics.Recorder, log zerolog.Logger) *Handler {
	return &Handler{repo: repo, presets: presets, recorder: recorder, log: log}
}

// Register mounts the modeling routes.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/modeling/{ticker}", h.handleGetModel)
	mux.HandleFunc("PUT /api/modeling/{ticker}/assumptions", h.handlePutAssumptions)
	mux.HandleFunc("PUT /api/modeling/{ticker}/kpis", h.handlePutKPIs)
	mux.HandleFunc("POST /api/modeling/{ticker}/edits", h.handlePostEdits)
	mux.HandleFunc("POST /api/modeling/{ticker}/run", h.handleRun)
	mux.HandleFunc("GET /api/modeling/{ticker}/report", h.handleTickerReport)
	// Saved runs live under /api/runs so the {ticker} wildcard above cannot
	// collide with the literal segment.
	mux.HandleFunc("GET /api/runs/{id}", h.handleGetRun)
	mux.HandleFunc("GET /api/runs/{id}/report", h.handleRunReport)
}

type modelResponse struct {
	Ticker      string                 `json:"ticker"`
	Assumptions forecast.AssumptionSet `json:"assumptions"`
	KPIs        []forecast.KPIRow      `json:"kpis"`
	Actuals     []forecast.ActualsRow  `json:"actuals"`
}

func (h *Handler) handleGetModel(w http.ResponseWriter, r *http.Request) {
	ticker := normalizeTicker(r.PathValue("ticker"))
	ctx := r.Context()

	set, err := h.mergedAssumptions(ctx, ticker)
	if err != nil {
		h.writeError(w, err)
		return
	}
	kpis, err := h.repo.LoadKPIs(ctx, ticker)
	if err != nil {
		h.writeError(w, err)
		return
	}
	actuals, err := h.repo.LoadActuals(ctx, ticker)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, modelResponse{
		Ticker:      ticker,
		Assumptions: set,
		KPIs:        kpis,
		Actuals:     actuals,
	})
}

func (h *Handler) handlePutAssumptions(w http.ResponseWriter, r *http.Request) {
	ticker := normalizeTicker(r.PathValue("ticker"))

	var a forecast.Assumption
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := forecast.ValidateAssumption(a); err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.repo.UpsertAssumption(r.Context(), ticker, a); err != nil {
		h.writeError(w, err)
		return
	}

	h.log.Info().Str("ticker", ticker).Str("scenario", string(a.Scenario)).Msg("assumptions updated")
	writeJSON(w, http.StatusOK, map[string]any{"ticker": ticker, "scenario": a.Scenario})
}

func (h *Handler) handlePutKPIs(w http.ResponseWriter, r *http.Request) {
	ticker := normalizeTicker(r.PathValue("ticker"))

	var kpis []forecast.KPIRow
	if err := json.NewDecoder(r.Body).Decode(&kpis); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	for _, k := range kpis {
		if k.FiscalYear <= 0 || forecast.PeriodKey(0, k.FiscalPeriod) == 0 {
			http.Error(w, "kpi rows need fiscal_year and fiscal_period Q1-Q4", http.StatusBadRequest)
			return
		}
	}
	if err := h.repo.UpsertKPIs(r.Context(), ticker, kpis); err != nil {
		h.writeError(w, err)
		return
	}

	h.log.Info().Str("ticker", ticker).Int("rows", len(kpis)).Msg("kpis updated")
	writeJSON(w, http.StatusOK, map[string]any{"ticker": ticker, "rows": len(kpis)})
}

type editsRequest struct {
	Edits []scenarios.Edit `json:"edits"`
}

// handlePostEdits applies dotted-path edits (e.g. "base.revenue_cagr_start")
// against the merged assumption set and persists the touched scenarios.
func (h *Handler) handlePostEdits(w http.ResponseWriter, r *http.Request) {
	ticker := normalizeTicker(r.PathValue("ticker"))
	ctx := r.Context()

	var req editsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Edits) == 0 {
		http.Error(w, "no edits provided", http.StatusBadRequest)
		return
	}

	set, err := h.mergedAssumptions(ctx, ticker)
	if err != nil {
		h.writeError(w, err)
		return
	}
	updated, err := scenarios.ApplyEdits(set, req.Edits)
	if err != nil {
		h.writeError(w, err)
		return
	}

	touched := touchedScenarios(req.Edits)
	for _, scenario := range touched {
		if err := h.repo.UpsertAssumption(ctx, ticker, updated[scenario]); err != nil {
			h.writeError(w, err)
			return
		}
	}

	h.log.Info().Str("ticker", ticker).Int("edits", len(req.Edits)).Msg("assumption edits applied")
	writeJSON(w, http.StatusOK, map[string]any{"ticker": ticker, "assumptions": updated})
}

type runRequest struct {
	HorizonQuarters int `json:"horizon_quarters"`
	// Optional one-off overrides, merged over the stored set for this run
	// only; they are not persisted.
	Assumptions forecast.AssumptionSet `json:"assumptions,omitempty"`
}

type runResponse struct {
	RunID           string                    `json:"run_id,omitempty"`
	Ticker          string                    `json:"ticker"`
	HorizonQuarters int                       `json:"horizon_quarters"`
	Results         []forecast.ScenarioResult `json:"results"`
}

func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	ticker := normalizeTicker(r.PathValue("ticker"))
	ctx := r.Context()

	var req runRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	horizon := clampHorizon(req.HorizonQuarters)

	set, err := h.mergedAssumptions(ctx, ticker)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if len(req.Assumptions) > 0 {
		set = scenarios.Merge(set, req.Assumptions)
	}
	actuals, err := h.repo.LoadActuals(ctx, ticker)
	if err != nil {
		h.writeError(w, err)
		return
	}
	kpis, err := h.repo.LoadKPIs(ctx, ticker)
	if err != nil {
		h.writeError(w, err)
		return
	}

	results, err := forecast.NewRunner(actuals, kpis).RunAll(set, horizon)
	if err != nil {
		h.recorder.RecordForecastRun("error")
		h.writeError(w, err)
		return
	}
	for _, res := range results {
		for _, flag := range res.Flags {
			h.recorder.RecordDegraded(flag)
		}
	}

	runID, err := h.repo.SaveRun(ctx, ticker, horizon, results)
	if err != nil {
		// The forecast itself succeeded; log and return it unsaved.
		h.log.Warn().Err(err).Str("ticker", ticker).Msg("failed to save run")
		runID = ""
	}

	h.recorder.RecordForecastRun("ok")
	h.recorder.RecordDuration("forecast_run", time.Since(started).Seconds())
	h.log.Info().Str("ticker", ticker).Str("run_id", runID).Int("horizon", horizon).
		Dur("elapsed", time.Since(started)).Msg("forecast run complete")

	writeJSON(w, http.StatusOK, runResponse{
		RunID:           runID,
		Ticker:          ticker,
		HorizonQuarters: horizon,
		Results:         results,
	})
}

func (h *Handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	ticker, results, err := h.repo.LoadRun(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, runResponse{
		RunID:   r.PathValue("id"),
		Ticker:  ticker,
		Results: results,
	})
}

// handleTickerReport runs a fresh default-horizon forecast and renders it as
// Markdown, or HTML with ?format=html. Nothing is persisted.
func (h *Handler) handleTickerReport(w http.ResponseWriter, r *http.Request) {
	ticker := normalizeTicker(r.PathValue("ticker"))
	ctx := r.Context()

	set, err := h.mergedAssumptions(ctx, ticker)
	if err != nil {
		h.writeError(w, err)
		return
	}
	actuals, err := h.repo.LoadActuals(ctx, ticker)
	if err != nil {
		h.writeError(w, err)
		return
	}
	kpis, err := h.repo.LoadKPIs(ctx, ticker)
	if err != nil {
		h.writeError(w, err)
		return
	}
	results, err := forecast.NewRunner(actuals, kpis).RunAll(set, 0)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeReport(w, r, report.ForecastReport(ticker, results))
}

// handleRunReport renders a saved run as Markdown, or HTML with ?format=html.
func (h *Handler) handleRunReport(w http.ResponseWriter, r *http.Request) {
	ticker, results, err := h.repo.LoadRun(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeReport(w, r, report.ForecastReport(ticker, results))
}

func (h *Handler) writeReport(w http.ResponseWriter, r *http.Request, md string) {
	if r.URL.Query().Get("format") == "html" {
		html, err := report.RenderHTML(md)
		if err != nil {
			h.writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(html))
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Write([]byte(md))
}

func (h *Handler) mergedAssumptions(ctx context.Context, ticker string) (forecast.AssumptionSet, error) {
	overrides, err := h.repo.LoadAssumptions(ctx, ticker)
	if err != nil {
		return nil, err
	}
	return scenarios.Merge(h.presets, overrides), nil
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var iae *forecast.InvalidAssumptionError
	switch {
	case errors.As(err, &iae):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":    "invalid_assumption",
			"scenario": iae.Scenario,
			"field":    iae.Field,
			"message":  iae.Message,
		})
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case strings.Contains(err.Error(), "edit path"), strings.Contains(err.Error(), "unknown field"):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.log.Error().Err(err).Msg("modeling request failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// clampHorizon bounds a requested horizon; 0 keeps the engine default.
func clampHorizon(h int) int {
	if h <= 0 {
		return 0
	}
	if h < minHorizonQuarters {
		return minHorizonQuarters
	}
	if h > maxHorizonQuarters {
		return maxHorizonQuarters
	}
	return h
}

func touchedScenarios(edits []scenarios.Edit) []forecast.Scenario {
	seen := make(map[forecast.Scenario]bool)
	var out []forecast.Scenario
	for _, e := range edits {
		name, _, ok := strings.Cut(e.Path, ".")
		if !ok {
			continue
		}
		s := forecast.Scenario(name)
		if s.Valid() && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func normalizeTicker(t string) string {
	return strings.ToUpper(strings.TrimSpace(t))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
