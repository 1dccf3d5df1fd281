// Package valuation exposes the DCF endpoints: single-ticker valuations and
// the multi-ticker summary.
package valuation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"fincast/pkg/core/dcf"
	"fincast/pkg/core/metrics"
	"fincast/pkg/core/report"
	"fincast/pkg/core/store"
)

// Handler serves the valuation API.
type Handler struct {
	repo     *store.ValuationRepo
	recorder *metrics.Recorder
	log      zerolog.Logger
}

// NewHandler wires the valuation endpoints.
func NewHandler(repo *store.ValuationRepo, recorder *metrics.Recorder, log zerolog.Logger) *Handler {
	return &Handler{repo: repo, recorder: recorder, log: log}
}

// Register mounts the valuation routes.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/valuation/dcf", h.handleDCF)
	mux.HandleFunc("GET /api/valuation/{ticker}/report", h.handleReport)
	mux.HandleFunc("GET /api/valuation/summary", h.handleSummary)
}

type dcfRequest struct {
	Ticker         string   `json:"ticker"`
	Years          int      `json:"years"`
	DiscountRate   float64  `json:"discount_rate"`
	TerminalGrowth *float64 `json:"terminal_growth,omitempty"`
	StartGrowth    *float64 `json:"start_growth,omitempty"`
}

type dcfResponse struct {
	Ticker string              `json:"ticker"`
	Inputs dcf.Input           `json:"inputs"`
	Result *dcf.Result         `json:"result"`
	Basis  *store.Fundamentals `json:"basis"`
}

func (h *Handler) handleDCF(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var req dcfRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	req.Ticker = strings.ToUpper(strings.TrimSpace(req.Ticker))
	if req.Ticker == "" {
		http.Error(w, "ticker is required", http.StatusBadRequest)
		return
	}

	resp, err := h.valuate(r.Context(), req)
	if err != nil {
		h.recorder.RecordValuation("error")
		h.writeError(w, err)
		return
	}

	h.recorder.RecordValuation("ok")
	h.recorder.RecordDuration("valuation_dcf", time.Since(started).Seconds())
	h.log.Info().Str("ticker", req.Ticker).Dur("elapsed", time.Since(started)).Msg("dcf valuation complete")
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(strings.TrimSpace(r.PathValue("ticker")))

	resp, err := h.valuate(r.Context(), dcfRequest{Ticker: ticker})
	if err != nil {
		h.writeError(w, err)
		return
	}

	md := report.ValuationReport(ticker, resp.Result)
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

type summaryRow struct {
	Ticker            string   `json:"ticker"`
	FairValuePerShare *float64 `json:"fair_value_per_share"`
	Price             *float64 `json:"price"`
	UpsideVsPrice     *float64 `json:"upside_vs_price"`
	Error             string   `json:"error,omitempty"`
}

// handleSummary runs a default-assumption valuation for every stored ticker.
// Tickers that cannot be valued appear in the output with their error rather
// than failing the whole summary.
func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	var tickers []string
	if raw := r.URL.Query().Get("tickers"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
				tickers = append(tickers, t)
			}
		}
	} else {
		var err error
		tickers, err = h.repo.ListTickers(r.Context())
		if err != nil {
			h.writeError(w, err)
			return
		}
	}

	rows := make([]summaryRow, 0, len(tickers))
	for _, ticker := range tickers {
		price, err := h.repo.LatestPrice(r.Context(), ticker)
		if err != nil {
			price = nil
		}
		resp, err := h.valuate(r.Context(), dcfRequest{Ticker: ticker})
		rows = append(rows, summarizeTicker(ticker, price, resp, err))
	}
	writeJSON(w, http.StatusOK, map[string]any{"valuations": rows})
}

// summarizeTicker builds one summary row. The last known price survives even
// when the valuation fails, so tickers without a cash-flow basis still show
// market data.
func summarizeTicker(ticker string, price *float64, resp *dcfResponse, err error) summaryRow {
	row := summaryRow{Ticker: ticker, Price: price}
	if err != nil {
		row.Error = err.Error()
		return row
	}
	row.FairValuePerShare = resp.Result.FairValuePerShare
	row.UpsideVsPrice = resp.Result.UpsideVsPrice
	if resp.Result.Price != nil {
		row.Price = resp.Result.Price
	}
	return row
}

var errMissingFCF = errors.New("fundamentals carry no free cash flow basis")

func (h *Handler) valuate(ctx context.Context, req dcfRequest) (*dcfResponse, error) {
	fund, err := h.repo.LatestFundamentals(ctx, req.Ticker)
	if err != nil {
		return nil, err
	}
	fcf := fund.FCF()
	if fcf == nil {
		return nil, errMissingFCF
	}

	price, err := h.repo.LatestPrice(ctx, req.Ticker)
	if err != nil {
		return nil, err
	}

	startGrowth := req.StartGrowth
	if startGrowth == nil {
		startGrowth, err = h.repo.RecentRevenueGrowth(ctx, req.Ticker)
		if err != nil {
			return nil, err
		}
	}

	input := dcf.Input{
		BaseFCF:        *fcf,
		BaseYear:       fund.FiscalYear,
		Years:          clampYears(req.Years),
		DiscountRate:   req.DiscountRate,
		StartGrowth:    startGrowth,
		TerminalGrowth: req.TerminalGrowth,
		Price:          price,
		SharesDiluted:  fund.SharesDiluted,
	}
	if fund.CashAndSTI != nil {
		input.CashAndSTI = *fund.CashAndSTI
	}
	if fund.TotalDebt != nil {
		input.TotalDebt = *fund.TotalDebt
	}

	result, err := input.Valuate()
	if err != nil {
		return nil, err
	}
	return &dcfResponse{Ticker: req.Ticker, Inputs: input, Result: result, Basis: fund}, nil
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var iae *dcf.InvalidAssumptionError
	switch {
	case errors.As(err, &iae):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":   "invalid_assumption",
			"field":   iae.Field,
			"message": iae.Message,
		})
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, errMissingFCF):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		h.log.Error().Err(err).Msg("valuation request failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// clampYears bounds a requested horizon; 0 keeps the model default.
func clampYears(years int) int {
	if years <= 0 {
		return 0
	}
	if years < dcf.MinYears {
		return dcf.MinYears
	}
	if years > dcf.MaxYears {
		return dcf.MaxYears
	}
	return years
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
