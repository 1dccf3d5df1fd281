package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Fundamentals is the latest balance-sheet and cash-flow snapshot a DCF
// starts from. FCF is operating cash flow minus capex; either side may be
// missing in the filing, in which case FCF is nil.
type Fundamentals struct {
	Ticker     string   `json:"ticker"`
	FiscalYear int      `json:"fiscal_year"`
	Revenue    *float64 `json:"revenue,omitempty"`

	OperatingCashFlow *float64 `json:"operating_cash_flow,omitempty"`
	CapEx             *float64 `json:"capex,omitempty"`
	CashAndSTI        *float64 `json:"cash_and_sti,omitempty"`
	TotalDebt         *float64 `json:"total_debt,omitempty"`
	SharesDiluted     *float64 `json:"shares_diluted,omitempty"`
}

// FCF returns operating cash flow minus capex, nil when either is unknown.
func (f Fundamentals) FCF() *float64 {
	if f.OperatingCashFlow == nil || f.CapEx == nil {
		return nil
	}
	v := *f.OperatingCashFlow - *f.CapEx
	return &v
}

// ValuationRepo reads the stored inputs a valuation needs.
type ValuationRepo struct {
	pool *pgxpool.Pool
}

// NewValuationRepo creates a repository on the shared pool.
func NewValuationRepo(pool *pgxpool.Pool) *ValuationRepo {
	return &ValuationRepo{pool: pool}
}

// LatestFundamentals returns the most recent annual snapshot for a ticker.
func (r *ValuationRepo) LatestFundamentals(ctx context.Context, ticker string) (*Fundamentals, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("database pool not configured")
	}

	query := `
		SELECT fiscal_year, revenue, operating_cash_flow, capex,
		       cash_and_sti, total_debt, shares_diluted
		FROM fundamentals_annual
		WHERE ticker = $1
		ORDER BY fiscal_year DESC
		LIMIT 1
	`
	f := Fundamentals{Ticker: ticker}
	err := r.pool.QueryRow(ctx, query, ticker).Scan(&f.FiscalYear, &f.Revenue,
		&f.OperatingCashFlow, &f.CapEx, &f.CashAndSTI, &f.TotalDebt, &f.SharesDiluted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load fundamentals: %w", err)
	}
	return &f, nil
}

// LatestPrice returns the most recent stored close for a ticker, nil when no
// price is on file. A missing price is not an error: the valuation still runs
// and simply omits the upside comparison.
func (r *ValuationRepo) LatestPrice(ctx context.Context, ticker string) (*float64, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("database pool not configured")
	}

	query := `
		SELECT close
		FROM prices
		WHERE ticker = $1
		ORDER BY as_of DESC
		LIMIT 1
	`
	var price float64
	if err := r.pool.QueryRow(ctx, query, ticker).Scan(&price); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load price: %w", err)
	}
	return &price, nil
}

// RecentRevenueGrowth returns year-over-year growth from the two most recent
// annual revenues, nil when fewer than two years (or a zero base) exist. It
// seeds the DCF start growth when the caller does not provide one.
func (r *ValuationRepo) RecentRevenueGrowth(ctx context.Context, ticker string) (*float64, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("database pool not configured")
	}

	query := `
		SELECT revenue
		FROM fundamentals_annual
		WHERE ticker = $1 AND revenue IS NOT NULL
		ORDER BY fiscal_year DESC
		LIMIT 2
	`
	rows, err := r.pool.Query(ctx, query, ticker)
	if err != nil {
		return nil, fmt.Errorf("failed to load revenue history: %w", err)
	}
	defer rows.Close()

	var revenues []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan revenue: %w", err)
		}
		revenues = append(revenues, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(revenues) < 2 || revenues[1] == 0 {
		return nil, nil
	}
	growth := revenues[0]/revenues[1] - 1
	return &growth, nil
}

// ListTickers returns every ticker with stored fundamentals, for the
// valuation summary endpoint.
func (r *ValuationRepo) ListTickers(ctx context.Context) ([]string, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("database pool not configured")
	}

	rows, err := r.pool.Query(ctx, `SELECT DISTINCT ticker FROM fundamentals_annual ORDER BY ticker`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickers: %w", err)
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan ticker: %w", err)
		}
		tickers = append(tickers, t)
	}
	return tickers, rows.Err()
}
