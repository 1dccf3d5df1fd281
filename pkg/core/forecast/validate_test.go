package forecast

import (
	"errors"
	"math"
	"testing"
)

func TestValidateAssumptionAccepts(t *testing.T) {
	if err := ValidateAssumption(testAssumption()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateAssumptionRejectsOutOfDomain(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Assumption)
		field  string
	}{
		{"tax above 1", func(a *Assumption) { a.TaxRate = 1.5 }, "tax_rate"},
		{"negative rnd", func(a *Assumption) { a.RnDPct = -0.1 }, "rnd_pct"},
		{"cagr at 1", func(a *Assumption) { a.RevenueCAGRStart = 1.0 }, "revenue_cagr_start"},
		{"cagr below -1", func(a *Assumption) { a.RevenueCAGRFloor = -1.5 }, "revenue_cagr_floor"},
		{"weight above 1", func(a *Assumption) { a.DriverBlendEndWeight = 1.2 }, "driver_blend_end_weight"},
		{"negative quarters", func(a *Assumption) { a.RevenueDecayQuarters = -1 }, "revenue_decay_quarters"},
		{"bad scenario", func(a *Assumption) { a.Scenario = "sideways" }, "scenario"},
		{"bad seasonality", func(a *Assumption) { a.SeasonalityMode = "monthly" }, "seasonality_mode"},
		{"nan margin", func(a *Assumption) { a.GrossMarginTarget = math.NaN() }, "gross_margin_target"},
		{"inf cagr", func(a *Assumption) { a.RevenueCAGRStart = math.Inf(1) }, "revenue_cagr_start"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := testAssumption()
			tc.mutate(&a)
			err := ValidateAssumption(a)
			var iae *InvalidAssumptionError
			if !errors.As(err, &iae) {
				t.Fatalf("expected InvalidAssumptionError, got %v", err)
			}
			if iae.Field != tc.field {
				t.Errorf("expected field %q, got %q", tc.field, iae.Field)
			}
		})
	}
}

func TestValidateSetRequiresAllScenarios(t *testing.T) {
	base := testAssumption()
	bull := testAssumption()
	bull.Scenario = ScenarioBull

	err := ValidateSet(AssumptionSet{ScenarioBase: base, ScenarioBull: bull})
	var iae *InvalidAssumptionError
	if !errors.As(err, &iae) {
		t.Fatalf("expected InvalidAssumptionError, got %v", err)
	}
	if iae.Scenario != ScenarioBear {
		t.Errorf("expected bear reported missing, got %q", iae.Scenario)
	}
}

func TestValidateSetRejectsMismatchedKey(t *testing.T) {
	base := testAssumption()
	bull := testAssumption()
	bull.Scenario = ScenarioBull
	bear := testAssumption() // still tagged base

	err := ValidateSet(AssumptionSet{ScenarioBase: base, ScenarioBull: bull, ScenarioBear: bear})
	var iae *InvalidAssumptionError
	if !errors.As(err, &iae) {
		t.Fatalf("expected InvalidAssumptionError, got %v", err)
	}
	if iae.Field != "scenario" {
		t.Errorf("expected field scenario, got %q", iae.Field)
	}
}
