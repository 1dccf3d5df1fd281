package forecast

import (
	"math"
	"testing"
)

func TestRollupAnnualSumsAndAverages(t *testing.T) {
	quarters := []ProjectionRow{
		{FiscalYear: 2026, FiscalPeriod: "Q1", Revenue: 100, NetIncome: 10, SharesOutstanding: 100},
		{FiscalYear: 2026, FiscalPeriod: "Q2", Revenue: 110, NetIncome: 11, SharesOutstanding: 101},
		{FiscalYear: 2026, FiscalPeriod: "Q3", Revenue: 120, NetIncome: 12, SharesOutstanding: 102},
		{FiscalYear: 2026, FiscalPeriod: "Q4", Revenue: 130, NetIncome: 13, SharesOutstanding: 103},
	}

	annual := RollupAnnual(quarters)
	if len(annual) != 1 {
		t.Fatalf("expected 1 annual row, got %d", len(annual))
	}

	row := annual[0]
	if row.Revenue != 100+110+120+130 {
		t.Errorf("expected revenue 460, got %v", row.Revenue)
	}
	if row.NetIncome != 46 {
		t.Errorf("expected net income 46, got %v", row.NetIncome)
	}
	avgShares := (100.0 + 101 + 102 + 103) / 4
	if math.Abs(row.SharesOutstanding-avgShares) > 1e-12 {
		t.Errorf("expected average shares %v, got %v", avgShares, row.SharesOutstanding)
	}
	if row.EPS == nil {
		t.Fatal("expected annual eps")
	}
	if math.Abs(*row.EPS-46/avgShares) > 1e-12 {
		t.Errorf("expected eps %v, got %v", 46/avgShares, *row.EPS)
	}
}

func TestRollupAnnualRecomputesMargins(t *testing.T) {
	quarters := []ProjectionRow{
		{FiscalYear: 2026, FiscalPeriod: "Q1", Revenue: 100, GrossProfit: 40, OperatingIncome: 10, NetIncome: 5,
			GrossMarginPct: floatPtr(0.4)},
		{FiscalYear: 2026, FiscalPeriod: "Q2", Revenue: 300, GrossProfit: 180, OperatingIncome: 60, NetIncome: 30,
			GrossMarginPct: floatPtr(0.6)},
	}

	annual := RollupAnnual(quarters)
	row := annual[0]
	// Aggregate margin is 220/400, not the 0.5 a quarterly average would give.
	if row.GrossMarginPct == nil || math.Abs(*row.GrossMarginPct-0.55) > 1e-12 {
		t.Errorf("expected gross margin 0.55, got %v", row.GrossMarginPct)
	}
	if row.OperatingMarginPct == nil || math.Abs(*row.OperatingMarginPct-70.0/400) > 1e-12 {
		t.Errorf("expected operating margin 0.175, got %v", row.OperatingMarginPct)
	}
}

func TestRollupAnnualYoYAndOrdering(t *testing.T) {
	quarters := []ProjectionRow{
		{FiscalYear: 2027, FiscalPeriod: "Q1", Revenue: 220},
		{FiscalYear: 2026, FiscalPeriod: "Q1", Revenue: 200},
	}

	annual := RollupAnnual(quarters)
	if len(annual) != 2 {
		t.Fatalf("expected 2 annual rows, got %d", len(annual))
	}
	if annual[0].FiscalYear != 2026 || annual[1].FiscalYear != 2027 {
		t.Fatalf("expected ascending years, got %d then %d", annual[0].FiscalYear, annual[1].FiscalYear)
	}
	if annual[0].RevenueYoYPct != nil {
		t.Error("expected nil yoy for first year")
	}
	if annual[1].RevenueYoYPct == nil || math.Abs(*annual[1].RevenueYoYPct-0.1) > 1e-12 {
		t.Errorf("expected yoy 0.1, got %v", annual[1].RevenueYoYPct)
	}
}

func TestRollupAnnualPropagatesLowConfidence(t *testing.T) {
	quarters := []ProjectionRow{
		{FiscalYear: 2026, FiscalPeriod: "Q1", Revenue: 100},
		{FiscalYear: 2026, FiscalPeriod: "Q2", Revenue: 100, LowConfidence: true},
		{FiscalYear: 2027, FiscalPeriod: "Q1", Revenue: 100},
	}

	annual := RollupAnnual(quarters)
	if !annual[0].LowConfidence {
		t.Error("expected 2026 flagged when any quarter is low confidence")
	}
	if annual[1].LowConfidence {
		t.Error("expected 2027 unflagged")
	}
}

func TestRollupAnnualZeroSharesNilEPS(t *testing.T) {
	annual := RollupAnnual([]ProjectionRow{
		{FiscalYear: 2026, FiscalPeriod: "Q1", Revenue: 100, NetIncome: 10},
	})
	if annual[0].EPS != nil {
		t.Errorf("expected nil eps with unknown shares, got %v", *annual[0].EPS)
	}
}
