package forecast

import (
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	// Report fields by their wire names so a rejected record points at the
	// same key the collaborator sent.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
}

// InvalidAssumptionError identifies the first offending field of a rejected
// assumption record. Domain violations are rejected, never silently clamped.
type InvalidAssumptionError struct {
	Scenario Scenario
	Field    string
	Message  string
}

func (e *InvalidAssumptionError) Error() string {
	if e.Scenario != "" {
		return fmt.Sprintf("invalid assumption (%s): %s: %s", e.Scenario, e.Field, e.Message)
	}
	return fmt.Sprintf("invalid assumption: %s: %s", e.Field, e.Message)
}

// ValidateAssumption checks a single record against the schema domains.
func ValidateAssumption(a Assumption) error {
	if field, ok := firstNonFinite(a); ok {
		return &InvalidAssumptionError{Scenario: a.Scenario, Field: field, Message: "must be a finite number"}
	}
	if err := validate.Struct(a); err != nil {
		var verrs validator.ValidationErrors
		if ok := asValidationErrors(err, &verrs); ok && len(verrs) > 0 {
			fe := verrs[0]
			return &InvalidAssumptionError{
				Scenario: a.Scenario,
				Field:    fe.Field(),
				Message:  domainMessage(fe),
			}
		}
		return fmt.Errorf("validate assumption: %w", err)
	}
	return nil
}

// ValidateSet checks that the set carries all three scenarios, each valid and
// keyed consistently.
func ValidateSet(set AssumptionSet) error {
	for _, scenario := range Scenarios() {
		a, ok := set[scenario]
		if !ok {
			return &InvalidAssumptionError{Scenario: scenario, Field: "scenario", Message: "missing from assumption set"}
		}
		if a.Scenario != scenario {
			return &InvalidAssumptionError{Scenario: scenario, Field: "scenario", Message: fmt.Sprintf("keyed as %s but tagged %s", scenario, a.Scenario)}
		}
		if err := ValidateAssumption(a); err != nil {
			return err
		}
	}
	return nil
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	verrs, ok := err.(validator.ValidationErrors)
	if ok {
		*target = verrs
	}
	return ok
}

func domainMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gte":
		return fmt.Sprintf("must be >= %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be <= %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be > %s", fe.Param())
	case "lt":
		return fmt.Sprintf("must be < %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s check", fe.Tag())
	}
}

// firstNonFinite scans the fraction fields for NaN/Inf, which the range tags
// alone would report with a misleading message.
func firstNonFinite(a Assumption) (string, bool) {
	checks := []struct {
		name  string
		value float64
	}{
		{"revenue_cagr_start", a.RevenueCAGRStart},
		{"revenue_cagr_floor", a.RevenueCAGRFloor},
		{"gross_margin_target", a.GrossMarginTarget},
		{"rnd_pct", a.RnDPct},
		{"sm_pct", a.SMPct},
		{"ga_pct", a.GAPct},
		{"tax_rate", a.TaxRate},
		{"interest_pct_revenue", a.InterestPctRevenue},
		{"dilution_pct_annual", a.DilutionPctAnnual},
		{"driver_blend_start_weight", a.DriverBlendStartWeight},
		{"driver_blend_end_weight", a.DriverBlendEndWeight},
	}
	for _, c := range checks {
		if math.IsNaN(c.value) || math.IsInf(c.value, 0) {
			return c.name, true
		}
	}
	return "", false
}
