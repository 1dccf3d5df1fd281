package dcf

import (
	"errors"
	"math"
	"testing"
)

func fp(v float64) *float64 { return &v }

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestValuateGrowthFade(t *testing.T) {
	start := 0.10
	in := Input{
		BaseFCF:        100,
		BaseYear:       2025,
		Years:          5,
		DiscountRate:   0.10,
		StartGrowth:    &start,
		TerminalGrowth: fp(0.03),
	}

	res, err := in.Valuate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Projections) != 5 {
		t.Fatalf("expected 5 projection rows, got %d", len(res.Projections))
	}

	// Step is (0.03-0.10)/5 = -0.014, applied from year 2.
	wantGrowth := []float64{0.10, 0.086, 0.072, 0.058, 0.044}
	for i, row := range res.Projections {
		if !almostEqual(row.Growth, wantGrowth[i], 1e-12) {
			t.Errorf("year %d: expected growth %v, got %v", i+1, wantGrowth[i], row.Growth)
		}
		if row.Year != 2026+i {
			t.Errorf("year %d: expected calendar year %d, got %d", i+1, 2026+i, row.Year)
		}
	}

	fcf1 := res.Projections[0].FCF
	if !almostEqual(fcf1, 110, 1e-9) {
		t.Errorf("expected year-1 fcf 110, got %v", fcf1)
	}
	df1 := res.Projections[0].DiscountFactor
	if !almostEqual(df1, 1/1.10, 1e-12) {
		t.Errorf("expected year-1 discount factor %v, got %v", 1/1.10, df1)
	}

	final := res.Projections[4]
	wantTV := final.FCF * 1.03 / (0.10 - 0.03)
	if !almostEqual(res.TerminalValue, wantTV, wantTV*1e-12) {
		t.Errorf("expected terminal value %v, got %v", wantTV, res.TerminalValue)
	}
	if !almostEqual(res.TerminalValuePV, wantTV*final.DiscountFactor, wantTV*1e-12) {
		t.Errorf("expected terminal value pv %v, got %v", wantTV*final.DiscountFactor, res.TerminalValuePV)
	}
}

func TestValuateMatchesGordonClosedForm(t *testing.T) {
	// With start growth equal to terminal growth the explicit period plus
	// terminal value telescopes to the perpetuity formula.
	g := 0.03
	r := 0.09
	in := Input{
		BaseFCF:        250,
		Years:          10,
		DiscountRate:   r,
		StartGrowth:    &g,
		TerminalGrowth: &g,
	}

	res, err := in.Valuate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := in.BaseFCF * (1 + g) / (r - g)
	if !almostEqual(res.EnterpriseValue, want, want*1e-9) {
		t.Errorf("expected enterprise value %v, got %v", want, res.EnterpriseValue)
	}
}

func TestValuateDefaults(t *testing.T) {
	res, err := Input{BaseFCF: 100}.Valuate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Projections) != 10 {
		t.Errorf("expected default 10-year horizon, got %d rows", len(res.Projections))
	}
	// Nil start growth falls back to terminal growth: flat path.
	first := res.Projections[0].Growth
	last := res.Projections[len(res.Projections)-1].Growth
	if !almostEqual(first, 0.025, 1e-12) || !almostEqual(last, 0.025, 1e-12) {
		t.Errorf("expected flat 0.025 growth path, got first=%v last=%v", first, last)
	}
}

func TestValuateHonorsExplicitZeroTerminalGrowth(t *testing.T) {
	zero := 0.0
	in := Input{
		BaseFCF:        100,
		Years:          5,
		DiscountRate:   0.10,
		StartGrowth:    &zero,
		TerminalGrowth: &zero,
	}

	res, err := in.Valuate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, row := range res.Projections {
		if row.Growth != 0 {
			t.Errorf("year %d: expected zero growth, got %v", i+1, row.Growth)
		}
	}
	// A no-growth perpetuity: TV = fcf/r and the whole valuation telescopes
	// to the same number.
	if !almostEqual(res.TerminalValue, 1000, 1e-9) {
		t.Errorf("expected terminal value 1000, got %v", res.TerminalValue)
	}
	if !almostEqual(res.EnterpriseValue, 1000, 1e-6) {
		t.Errorf("expected enterprise value 1000, got %v", res.EnterpriseValue)
	}
}

func TestValuateEquityBridge(t *testing.T) {
	g := 0.0
	in := Input{
		BaseFCF:        100,
		Years:          5,
		DiscountRate:   0.08,
		StartGrowth:    &g,
		TerminalGrowth: &g,
		CashAndSTI:     500,
		TotalDebt:      200,
		SharesDiluted:  fp(50),
		Price:          fp(30),
	}

	res, err := in.Valuate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(res.EquityValue, res.EnterpriseValue+300, 1e-9) {
		t.Errorf("expected equity = enterprise + 300, got enterprise=%v equity=%v",
			res.EnterpriseValue, res.EquityValue)
	}
	if res.FairValuePerShare == nil {
		t.Fatal("expected per-share value, got nil")
	}
	if !almostEqual(*res.FairValuePerShare, res.EquityValue/50, 1e-9) {
		t.Errorf("expected per-share %v, got %v", res.EquityValue/50, *res.FairValuePerShare)
	}
	if res.UpsideVsPrice == nil {
		t.Fatal("expected upside, got nil")
	}
	wantUpside := *res.FairValuePerShare/30 - 1
	if !almostEqual(*res.UpsideVsPrice, wantUpside, 1e-12) {
		t.Errorf("expected upside %v, got %v", wantUpside, *res.UpsideVsPrice)
	}
}

func TestValuateNilPerShareWithoutShares(t *testing.T) {
	res, err := Input{BaseFCF: 100, Price: fp(30)}.Valuate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.FairValuePerShare != nil {
		t.Errorf("expected nil per-share without shares, got %v", *res.FairValuePerShare)
	}
	if res.UpsideVsPrice != nil {
		t.Errorf("expected nil upside without shares, got %v", *res.UpsideVsPrice)
	}
	if res.EnterpriseValue <= 0 {
		t.Errorf("expected positive enterprise value, got %v", res.EnterpriseValue)
	}
}

func TestValuateRejectsDiscountAtOrBelowTerminal(t *testing.T) {
	cases := []struct {
		name string
		rate float64
	}{
		{"equal", 0.025},
		{"below", 0.02},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Input{BaseFCF: 100, DiscountRate: tc.rate, TerminalGrowth: fp(0.025)}.Valuate()
			var iae *InvalidAssumptionError
			if !errors.As(err, &iae) {
				t.Fatalf("expected InvalidAssumptionError, got %v", err)
			}
			if iae.Field != "discount_rate" {
				t.Errorf("expected field discount_rate, got %q", iae.Field)
			}
		})
	}
}

func TestValuateRejectsBadYears(t *testing.T) {
	for _, years := range []int{1, 2, 21, 100} {
		_, err := Input{BaseFCF: 100, Years: years}.Valuate()
		var iae *InvalidAssumptionError
		if !errors.As(err, &iae) {
			t.Fatalf("years=%d: expected InvalidAssumptionError, got %v", years, err)
		}
		if iae.Field != "years" {
			t.Errorf("years=%d: expected field years, got %q", years, iae.Field)
		}
	}
}

func TestValuateRejectsNonFinite(t *testing.T) {
	_, err := Input{BaseFCF: math.NaN()}.Valuate()
	var iae *InvalidAssumptionError
	if !errors.As(err, &iae) {
		t.Fatalf("expected InvalidAssumptionError, got %v", err)
	}
	if iae.Field != "base_fcf" {
		t.Errorf("expected field base_fcf, got %q", iae.Field)
	}
}

func TestValuateRejectsNonFiniteTerminalGrowth(t *testing.T) {
	_, err := Input{BaseFCF: 100, TerminalGrowth: fp(math.NaN())}.Valuate()
	var iae *InvalidAssumptionError
	if !errors.As(err, &iae) {
		t.Fatalf("expected InvalidAssumptionError, got %v", err)
	}
	if iae.Field != "terminal_growth" {
		t.Errorf("expected field terminal_growth, got %q", iae.Field)
	}
}

func TestValuateNegativeBaseFCF(t *testing.T) {
	res, err := Input{BaseFCF: -50}.Valuate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.EnterpriseValue >= 0 {
		t.Errorf("expected negative enterprise value from negative base fcf, got %v", res.EnterpriseValue)
	}
}
