// Package dcf implements the two-stage discounted-cash-flow valuator: an
// explicit forecast period with linearly fading growth, a Gordon-growth
// terminal value, and the enterprise-to-equity bridge down to fair value per
// share. Valuate is a pure function; all persistence and price lookup happen
// at the caller's boundary.
package dcf

import (
	"fmt"
	"math"

	"github.com/creasty/defaults"
)

// Horizon domain for the explicit forecast period.
const (
	MinYears = 3
	MaxYears = 20
)

// Input carries everything a valuation needs. StartGrowth is optional: the
// boundary fills it from the most recent historical revenue growth, and a nil
// value falls back to TerminalGrowth (a flat single-stage path).
// TerminalGrowth is a pointer so an explicit zero (a no-growth perpetuity)
// survives; only an omitted value picks up the 0.025 default.
type Input struct {
	BaseFCF        float64  `json:"base_fcf"`
	BaseYear       int      `json:"base_year"`
	Years          int      `json:"years" default:"10"`
	DiscountRate   float64  `json:"discount_rate" default:"0.10"`
	StartGrowth    *float64 `json:"start_growth,omitempty"`
	TerminalGrowth *float64 `json:"terminal_growth,omitempty" default:"0.025"`

	CashAndSTI    float64  `json:"cash_and_sti"`
	TotalDebt     float64  `json:"total_debt"`
	SharesDiluted *float64 `json:"shares_diluted,omitempty"`
	Price         *float64 `json:"price,omitempty"`
}

// ProjectionRow is one explicit forecast year.
type ProjectionRow struct {
	Year           int     `json:"year"`
	FCF            float64 `json:"fcf"`
	Growth         float64 `json:"growth"`
	DiscountFactor float64 `json:"discount_factor"`
	PVFCF          float64 `json:"pv_fcf"`
}

// Result is the full valuation output. Per-share and upside stay nil when
// shares or price are unknown; the aggregate values remain usable.
type Result struct {
	BaseFCF           float64         `json:"base_fcf"`
	Projections       []ProjectionRow `json:"projections"`
	TerminalValue     float64         `json:"terminal_value"`
	TerminalValuePV   float64         `json:"terminal_value_pv"`
	EnterpriseValue   float64         `json:"enterprise_value"`
	EquityValue       float64         `json:"equity_value"`
	FairValuePerShare *float64        `json:"fair_value_per_share"`
	Price             *float64        `json:"price"`
	UpsideVsPrice     *float64        `json:"upside_vs_price"`
}

// InvalidAssumptionError identifies the offending valuation input. Domain
// violations are rejected, never clamped inside the valuator.
type InvalidAssumptionError struct {
	Field   string
	Message string
}

func (e *InvalidAssumptionError) Error() string {
	return fmt.Sprintf("invalid dcf assumption: %s: %s", e.Field, e.Message)
}

// Valuate runs the two-stage model. Zero-valued Years/DiscountRate and a nil
// TerminalGrowth pick up their documented defaults first; the populated
// input is then checked against its domains.
func (in Input) Valuate() (*Result, error) {
	if err := defaults.Set(&in); err != nil {
		return nil, fmt.Errorf("apply dcf defaults: %w", err)
	}
	if err := in.check(); err != nil {
		return nil, err
	}

	gT := *in.TerminalGrowth
	start := gT
	if in.StartGrowth != nil {
		start = *in.StartGrowth
	}

	// Growth fades from the start rate toward the terminal rate in equal
	// steps of (gT-g0)/years, applied from year 2 onward. Year 1 grows at
	// the start rate; the perpetuity beyond the horizon grows at gT.
	step := (gT - start) / float64(in.Years)

	rows := make([]ProjectionRow, 0, in.Years)
	fcf := in.BaseFCF
	growth := start
	pvExplicit := 0.0
	for i := 1; i <= in.Years; i++ {
		if i > 1 {
			growth += step
		}
		fcf *= 1 + growth
		df := math.Pow(1+in.DiscountRate, -float64(i))
		pv := fcf * df
		pvExplicit += pv
		rows = append(rows, ProjectionRow{
			Year:           in.BaseYear + i,
			FCF:            fcf,
			Growth:         growth,
			DiscountFactor: df,
			PVFCF:          pv,
		})
	}

	finalFCF := rows[len(rows)-1].FCF
	terminal := finalFCF * (1 + gT) / (in.DiscountRate - gT)
	terminalPV := terminal * rows[len(rows)-1].DiscountFactor

	enterprise := pvExplicit + terminalPV
	equity := enterprise + in.CashAndSTI - in.TotalDebt

	var perShare, upside *float64
	if in.SharesDiluted != nil && *in.SharesDiluted > 0 {
		v := equity / *in.SharesDiluted
		perShare = &v
		if in.Price != nil && *in.Price > 0 {
			u := v / *in.Price - 1
			upside = &u
		}
	}

	return &Result{
		BaseFCF:           in.BaseFCF,
		Projections:       rows,
		TerminalValue:     terminal,
		TerminalValuePV:   terminalPV,
		EnterpriseValue:   enterprise,
		EquityValue:       equity,
		FairValuePerShare: perShare,
		Price:             in.Price,
		UpsideVsPrice:     upside,
	}, nil
}

func (in Input) check() error {
	if math.IsNaN(in.BaseFCF) || math.IsInf(in.BaseFCF, 0) {
		return &InvalidAssumptionError{Field: "base_fcf", Message: "must be a finite number"}
	}
	if in.Years < MinYears || in.Years > MaxYears {
		return &InvalidAssumptionError{Field: "years", Message: fmt.Sprintf("must be between %d and %d", MinYears, MaxYears)}
	}
	if !(in.DiscountRate > 0) {
		return &InvalidAssumptionError{Field: "discount_rate", Message: "must be > 0"}
	}
	if math.IsNaN(*in.TerminalGrowth) || math.IsInf(*in.TerminalGrowth, 0) {
		return &InvalidAssumptionError{Field: "terminal_growth", Message: "must be a finite number"}
	}
	if in.DiscountRate <= *in.TerminalGrowth {
		// Gordon growth is undefined (and non-economic) at r <= g.
		return &InvalidAssumptionError{Field: "discount_rate", Message: "must exceed terminal_growth"}
	}
	if in.StartGrowth != nil && (math.IsNaN(*in.StartGrowth) || math.IsInf(*in.StartGrowth, 0)) {
		return &InvalidAssumptionError{Field: "start_growth", Message: "must be a finite number"}
	}
	return nil
}
