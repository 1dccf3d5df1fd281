package forecast

import (
	"math"
	"testing"
)

func testAssumption() Assumption {
	return Assumption{
		Scenario:                 ScenarioBase,
		RevenueCAGRStart:         0.18,
		RevenueCAGRFloor:         0.04,
		RevenueDecayQuarters:     12,
		GrossMarginTarget:        0.52,
		GrossMarginGlideQuarters: 12,
		RnDPct:                   0.12,
		SMPct:                    0.14,
		GAPct:                    0.06,
		TaxRate:                  0.18,
		InterestPctRevenue:       0.005,
		DilutionPctAnnual:        0.015,
		SeasonalityMode:          SeasonalityOff,
	}
}

func TestBuildProfitableQuarter(t *testing.T) {
	a := testAssumption()
	b := NewIncomeStatementBuilder(a, 100)

	row := b.Build(QuarterInput{FiscalYear: 2026, FiscalPeriod: "Q1", Revenue: 1000, GrossMargin: 0.50})

	if math.Abs(row.CostOfRevenue-500) > 1e-9 {
		t.Errorf("expected cogs 500, got %v", row.CostOfRevenue)
	}
	if math.Abs(row.GrossProfit-500) > 1e-9 {
		t.Errorf("expected gross profit 500, got %v", row.GrossProfit)
	}
	wantOpex := 1000 * (0.12 + 0.14 + 0.06)
	if math.Abs(row.OperatingExpenses-wantOpex) > 1e-9 {
		t.Errorf("expected opex %v, got %v", wantOpex, row.OperatingExpenses)
	}
	wantPretax := 500 - wantOpex - 1000*0.005
	if math.Abs(row.PretaxIncome-wantPretax) > 1e-9 {
		t.Errorf("expected pretax %v, got %v", wantPretax, row.PretaxIncome)
	}
	wantTax := wantPretax * 0.18
	if math.Abs(row.IncomeTaxExpense-wantTax) > 1e-9 {
		t.Errorf("expected tax %v, got %v", wantTax, row.IncomeTaxExpense)
	}
	if math.Abs(row.NetIncome-(wantPretax-wantTax)) > 1e-9 {
		t.Errorf("expected net income %v, got %v", wantPretax-wantTax, row.NetIncome)
	}
	if row.EPS == nil {
		t.Fatal("expected eps with known shares")
	}
	if math.Abs(*row.EPS-row.NetIncome/row.SharesOutstanding) > 1e-12 {
		t.Errorf("eps inconsistent with net income and shares")
	}
}

func TestBuildLossQuarterHasNoTaxBenefit(t *testing.T) {
	a := testAssumption()
	a.RnDPct = 0.40
	a.SMPct = 0.30
	a.GAPct = 0.20
	b := NewIncomeStatementBuilder(a, 100)

	row := b.Build(QuarterInput{FiscalYear: 2026, FiscalPeriod: "Q1", Revenue: 1000, GrossMargin: 0.30})

	if row.PretaxIncome >= 0 {
		t.Fatalf("expected a loss, got pretax %v", row.PretaxIncome)
	}
	if row.IncomeTaxExpense != 0 {
		t.Errorf("expected zero tax on a loss, got %v", row.IncomeTaxExpense)
	}
	if row.NetIncome != row.PretaxIncome {
		t.Errorf("expected net income %v to equal pretax, got %v", row.PretaxIncome, row.NetIncome)
	}
}

func TestBuildSharesCompoundQuarterly(t *testing.T) {
	a := testAssumption()
	a.DilutionPctAnnual = 0.02
	b := NewIncomeStatementBuilder(a, 100)

	var last ProjectionRow
	for q := 0; q < 4; q++ {
		last = b.Build(QuarterInput{FiscalYear: 2026, FiscalPeriod: "Q1", Revenue: 1000, GrossMargin: 0.5})
	}
	// Four quarters of (1+0.02)^(1/4) compound to one year of 2%.
	if math.Abs(last.SharesOutstanding-102) > 1e-9 {
		t.Errorf("expected 102 shares after a year, got %v", last.SharesOutstanding)
	}
}

func TestBuildUnknownSharesGiveNilEPS(t *testing.T) {
	b := NewIncomeStatementBuilder(testAssumption(), 0)
	row := b.Build(QuarterInput{FiscalYear: 2026, FiscalPeriod: "Q1", Revenue: 1000, GrossMargin: 0.5})
	if row.EPS != nil {
		t.Errorf("expected nil eps, got %v", *row.EPS)
	}
	if row.SharesOutstanding != 0 {
		t.Errorf("expected zero shares to stay zero, got %v", row.SharesOutstanding)
	}
}

func TestBuildZeroRevenueGivesNilMargins(t *testing.T) {
	b := NewIncomeStatementBuilder(testAssumption(), 100)
	row := b.Build(QuarterInput{FiscalYear: 2026, FiscalPeriod: "Q1", Revenue: 0, GrossMargin: 0.5})
	if row.GrossMarginPct != nil || row.OperatingMarginPct != nil || row.NetMarginPct != nil {
		t.Error("expected nil margins on zero revenue")
	}
	if math.IsNaN(row.NetIncome) {
		t.Error("expected finite net income")
	}
}
