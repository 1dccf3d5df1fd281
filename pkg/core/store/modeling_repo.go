package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fincast/pkg/core/forecast"
)

// ErrNotFound is returned when a lookup matches no rows.
var ErrNotFound = errors.New("not found")

// ModelingRepo stores the forecasting inputs and outputs for one deployment:
// historical fundamentals and KPIs, per-ticker assumption overrides, and
// saved runs.
type ModelingRepo struct {
	pool *pgxpool.Pool
}

// NewModelingRepo creates a repository on the shared pool.
func NewModelingRepo(pool *pgxpool.Pool) *ModelingRepo {
	return &ModelingRepo{pool: pool}
}

// LoadActuals returns the historical quarters for a ticker in ascending
// period order. When no quarterly rows exist it falls back to annual rows
// split evenly into four synthetic quarters, so a ticker with only annual
// filings can still seed a forecast.
func (r *ModelingRepo) LoadActuals(ctx context.Context, ticker string) ([]forecast.ActualsRow, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("database pool not configured")
	}

	query := `
		SELECT fiscal_year, fiscal_period, revenue, cost_of_revenue, gross_profit,
		       operating_income, net_income, shares_outstanding
		FROM fundamentals_quarterly
		WHERE ticker = $1
		ORDER BY fiscal_year, fiscal_period
	`
	rows, err := r.pool.Query(ctx, query, ticker)
	if err != nil {
		return nil, fmt.Errorf("failed to load quarterly fundamentals: %w", err)
	}
	out, err := scanActuals(rows)
	if err != nil {
		return nil, err
	}
	if len(out) > 0 {
		return out, nil
	}
	return r.loadAnnualAsQuarters(ctx, ticker)
}

func (r *ModelingRepo) loadAnnualAsQuarters(ctx context.Context, ticker string) ([]forecast.ActualsRow, error) {
	query := `
		SELECT fiscal_year, revenue, cost_of_revenue, gross_profit,
		       operating_income, net_income, shares_outstanding
		FROM fundamentals_annual
		WHERE ticker = $1
		ORDER BY fiscal_year
	`
	rows, err := r.pool.Query(ctx, query, ticker)
	if err != nil {
		return nil, fmt.Errorf("failed to load annual fundamentals: %w", err)
	}
	defer rows.Close()

	var out []forecast.ActualsRow
	for rows.Next() {
		var year int
		var revenue, cogs, gross, opInc, netInc, shares *float64
		if err := rows.Scan(&year, &revenue, &cogs, &gross, &opInc, &netInc, &shares); err != nil {
			return nil, fmt.Errorf("failed to scan annual fundamentals: %w", err)
		}
		// Flow lines split across the year; the share count carries as-is.
		for _, period := range []string{"Q1", "Q2", "Q3", "Q4"} {
			out = append(out, forecast.ActualsRow{
				FiscalYear:        year,
				FiscalPeriod:      period,
				Revenue:           quarterOf(revenue),
				CostOfRevenue:     quarterOf(cogs),
				GrossProfit:       quarterOf(gross),
				OperatingIncome:   quarterOf(opInc),
				NetIncome:         quarterOf(netInc),
				SharesOutstanding: shares,
			})
		}
	}
	return out, rows.Err()
}

func quarterOf(v *float64) *float64 {
	if v == nil {
		return nil
	}
	q := *v / 4
	return &q
}

func scanActuals(rows pgx.Rows) ([]forecast.ActualsRow, error) {
	defer rows.Close()
	var out []forecast.ActualsRow
	for rows.Next() {
		var row forecast.ActualsRow
		if err := rows.Scan(&row.FiscalYear, &row.FiscalPeriod, &row.Revenue, &row.CostOfRevenue,
			&row.GrossProfit, &row.OperatingIncome, &row.NetIncome, &row.SharesOutstanding); err != nil {
			return nil, fmt.Errorf("failed to scan fundamentals: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// LoadKPIs returns the KPI history for a ticker in ascending period order.
func (r *ModelingRepo) LoadKPIs(ctx context.Context, ticker string) ([]forecast.KPIRow, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("database pool not configured")
	}

	query := `
		SELECT fiscal_year, fiscal_period, mau, dau, paid_subs,
		       paid_conversion_pct, arpu, churn_pct, source
		FROM modeling_kpis
		WHERE ticker = $1
		ORDER BY fiscal_year, fiscal_period
	`
	rows, err := r.pool.Query(ctx, query, ticker)
	if err != nil {
		return nil, fmt.Errorf("failed to load kpis: %w", err)
	}
	defer rows.Close()

	var out []forecast.KPIRow
	for rows.Next() {
		var row forecast.KPIRow
		var source *string
		if err := rows.Scan(&row.FiscalYear, &row.FiscalPeriod, &row.MAU, &row.DAU, &row.PaidSubs,
			&row.PaidConversionPct, &row.ARPU, &row.ChurnPct, &source); err != nil {
			return nil, fmt.Errorf("failed to scan kpis: %w", err)
		}
		if source != nil {
			row.Source = forecast.KPISource(*source)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// UpsertKPIs writes a batch of KPI observations, replacing any existing row
// for the same (ticker, fiscal_year, fiscal_period).
func (r *ModelingRepo) UpsertKPIs(ctx context.Context, ticker string, kpis []forecast.KPIRow) error {
	if r.pool == nil {
		return fmt.Errorf("database pool not configured")
	}

	query := `
		INSERT INTO modeling_kpis (
			ticker, fiscal_year, fiscal_period,
			mau, dau, paid_subs, paid_conversion_pct, arpu, churn_pct,
			source, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (ticker, fiscal_year, fiscal_period)
		DO UPDATE SET
			mau = EXCLUDED.mau,
			dau = EXCLUDED.dau,
			paid_subs = EXCLUDED.paid_subs,
			paid_conversion_pct = EXCLUDED.paid_conversion_pct,
			arpu = EXCLUDED.arpu,
			churn_pct = EXCLUDED.churn_pct,
			source = EXCLUDED.source,
			updated_at = EXCLUDED.updated_at;
	`
	now := time.Now()
	for _, k := range kpis {
		source := string(k.Source)
		if source == "" {
			source = string(forecast.KPISourceManual)
		}
		_, err := r.pool.Exec(ctx, query, ticker, k.FiscalYear, k.FiscalPeriod,
			k.MAU, k.DAU, k.PaidSubs, k.PaidConversionPct, k.ARPU, k.ChurnPct, source, now)
		if err != nil {
			return fmt.Errorf("failed to upsert kpi %d %s: %w", k.FiscalYear, k.FiscalPeriod, err)
		}
	}
	return nil
}

// LoadAssumptions returns the stored per-ticker overrides, possibly covering
// only some scenarios. Callers merge the result over the preset defaults.
func (r *ModelingRepo) LoadAssumptions(ctx context.Context, ticker string) (forecast.AssumptionSet, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("database pool not configured")
	}

	query := `SELECT scenario, assumptions_json FROM modeling_assumptions WHERE ticker = $1`
	rows, err := r.pool.Query(ctx, query, ticker)
	if err != nil {
		return nil, fmt.Errorf("failed to load assumptions: %w", err)
	}
	defer rows.Close()

	set := make(forecast.AssumptionSet)
	for rows.Next() {
		var scenario string
		var jsonData []byte
		if err := rows.Scan(&scenario, &jsonData); err != nil {
			return nil, fmt.Errorf("failed to scan assumptions: %w", err)
		}
		var a forecast.Assumption
		if err := json.Unmarshal(jsonData, &a); err != nil {
			return nil, fmt.Errorf("failed to unmarshal assumptions for %s: %w", scenario, err)
		}
		set[forecast.Scenario(scenario)] = a
	}
	return set, rows.Err()
}

// UpsertAssumption stores one scenario's full record for a ticker as JSONB.
func (r *ModelingRepo) UpsertAssumption(ctx context.Context, ticker string, a forecast.Assumption) error {
	if r.pool == nil {
		return fmt.Errorf("database pool not configured")
	}

	jsonData, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal assumptions: %w", err)
	}

	query := `
		INSERT INTO modeling_assumptions (ticker, scenario, assumptions_json, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (ticker, scenario)
		DO UPDATE SET
			assumptions_json = EXCLUDED.assumptions_json,
			updated_at = EXCLUDED.updated_at;
	`
	if _, err := r.pool.Exec(ctx, query, ticker, string(a.Scenario), jsonData, time.Now()); err != nil {
		return fmt.Errorf("failed to upsert assumptions: %w", err)
	}
	return nil
}

// SaveRun persists the full output of a forecast run and returns its id.
func (r *ModelingRepo) SaveRun(ctx context.Context, ticker string, horizon int, results []forecast.ScenarioResult) (string, error) {
	if r.pool == nil {
		return "", fmt.Errorf("database pool not configured")
	}

	jsonData, err := json.Marshal(results)
	if err != nil {
		return "", fmt.Errorf("failed to marshal run results: %w", err)
	}

	id := uuid.New().String()
	query := `
		INSERT INTO modeling_runs (id, ticker, horizon_quarters, results_json, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.pool.Exec(ctx, query, id, ticker, horizon, jsonData, time.Now()); err != nil {
		return "", fmt.Errorf("failed to save run: %w", err)
	}
	return id, nil
}

// LoadRun retrieves a saved run by id.
func (r *ModelingRepo) LoadRun(ctx context.Context, id string) (string, []forecast.ScenarioResult, error) {
	if r.pool == nil {
		return "", nil, fmt.Errorf("database pool not configured")
	}

	query := `SELECT ticker, results_json FROM modeling_runs WHERE id = $1`
	var ticker string
	var jsonData []byte
	if err := r.pool.QueryRow(ctx, query, id).Scan(&ticker, &jsonData); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil, ErrNotFound
		}
		return "", nil, fmt.Errorf("failed to load run: %w", err)
	}

	var results []forecast.ScenarioResult
	if err := json.Unmarshal(jsonData, &results); err != nil {
		return "", nil, fmt.Errorf("failed to unmarshal run results: %w", err)
	}
	return ticker, results, nil
}
