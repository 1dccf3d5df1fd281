package forecast

import (
	"math"
	"testing"
)

func seasonalActuals(years int) []ActualsRow {
	// Q4-heavy pattern: 80, 90, 100, 130 each year.
	weights := map[string]float64{"Q1": 80, "Q2": 90, "Q3": 100, "Q4": 130}
	var out []ActualsRow
	for y := 0; y < years; y++ {
		for _, p := range []string{"Q1", "Q2", "Q3", "Q4"} {
			v := weights[p]
			out = append(out, ActualsRow{FiscalYear: 2024 + y, FiscalPeriod: p, Revenue: floatPtr(v)})
		}
	}
	return out
}

func TestSeasonalIndicesRequireEnoughHistory(t *testing.T) {
	if got := SeasonalIndices(seasonalActuals(1)); got != nil {
		t.Errorf("expected nil with 4 quarters, got %v", got)
	}
	if got := SeasonalIndices(nil); got != nil {
		t.Errorf("expected nil with no history, got %v", got)
	}
}

func TestSeasonalIndicesValues(t *testing.T) {
	indices := SeasonalIndices(seasonalActuals(2))
	if indices == nil {
		t.Fatal("expected indices with 8 quarters")
	}

	avg := (80.0 + 90 + 100 + 130) / 4
	want := map[string]float64{"Q1": 80 / avg, "Q2": 90 / avg, "Q3": 100 / avg, "Q4": 130 / avg}
	for period, w := range want {
		if math.Abs(indices[period]-w) > 1e-12 {
			t.Errorf("%s: expected index %v, got %v", period, w, indices[period])
		}
	}
}

func TestSeasonalIndicesRejectSkewedCoverage(t *testing.T) {
	// Eight usable quarters but only one Q4 sample.
	actuals := seasonalActuals(2)
	actuals[7].Revenue = nil // drop the second Q4
	actuals = append(actuals, ActualsRow{FiscalYear: 2026, FiscalPeriod: "Q1", Revenue: floatPtr(80)})

	if got := SeasonalIndices(actuals); got != nil {
		t.Errorf("expected nil with under 2 samples in a period, got %v", got)
	}
}

func TestApplySeasonalityPreservesAnnualTotals(t *testing.T) {
	quarters := []QuarterInput{
		{FiscalYear: 2026, FiscalPeriod: "Q1", Revenue: 100},
		{FiscalYear: 2026, FiscalPeriod: "Q2", Revenue: 100},
		{FiscalYear: 2026, FiscalPeriod: "Q3", Revenue: 100},
		{FiscalYear: 2026, FiscalPeriod: "Q4", Revenue: 100},
		{FiscalYear: 2027, FiscalPeriod: "Q1", Revenue: 200},
		{FiscalYear: 2027, FiscalPeriod: "Q2", Revenue: 200},
	}
	indices := SeasonalIndices(seasonalActuals(2))

	before := map[int]float64{}
	for _, q := range quarters {
		before[q.FiscalYear] += q.Revenue
	}

	applySeasonality(quarters, indices)

	after := map[int]float64{}
	for _, q := range quarters {
		after[q.FiscalYear] += q.Revenue
	}
	for year, total := range before {
		if math.Abs(after[year]-total) > 1e-9 {
			t.Errorf("year %d: expected total %v preserved, got %v", year, total, after[year])
		}
	}

	// The reshape itself must show up: Q4 above Q1 within the full year.
	if !(quarters[3].Revenue > quarters[0].Revenue) {
		t.Errorf("expected Q4 (%v) above Q1 (%v)", quarters[3].Revenue, quarters[0].Revenue)
	}
}

func TestApplySeasonalityNoIndicesIsNoop(t *testing.T) {
	quarters := []QuarterInput{{FiscalYear: 2026, FiscalPeriod: "Q1", Revenue: 100}}
	applySeasonality(quarters, nil)
	if quarters[0].Revenue != 100 {
		t.Errorf("expected untouched revenue, got %v", quarters[0].Revenue)
	}
}
