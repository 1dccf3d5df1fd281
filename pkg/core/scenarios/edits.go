package scenarios

import (
	"fmt"
	"math"
	"reflect"
	"strings"

	"fincast/pkg/core/forecast"
)

// Edit is one proposed assumption change addressed by dotted path, e.g.
// {"path": "base.revenue_cagr_start", "value": 0.22}. Paths use the scenario
// name followed by the field's JSON name.
type Edit struct {
	Path  string `json:"path" validate:"required"`
	Value any    `json:"value"`
}

// ApplyEdits applies each edit to the set in order and validates the result.
// Either every edit lands or none do: the input set is copied first and the
// original is returned untouched on any error.
func ApplyEdits(set forecast.AssumptionSet, edits []Edit) (forecast.AssumptionSet, error) {
	out := make(forecast.AssumptionSet, len(set))
	for k, v := range set {
		out[k] = v
	}

	for _, e := range edits {
		scenario, field, ok := splitPath(e.Path)
		if !ok {
			return nil, fmt.Errorf("edit path %q: want <scenario>.<field>", e.Path)
		}
		if !scenario.Valid() {
			return nil, fmt.Errorf("edit path %q: unknown scenario %q", e.Path, scenario)
		}
		a, ok := out[scenario]
		if !ok {
			return nil, fmt.Errorf("edit path %q: scenario %q not in set", e.Path, scenario)
		}
		if err := setField(&a, field, e.Value); err != nil {
			return nil, fmt.Errorf("edit path %q: %w", e.Path, err)
		}
		out[scenario] = a
	}

	if err := forecast.ValidateSet(out); err != nil {
		return nil, err
	}
	return out, nil
}

func splitPath(path string) (forecast.Scenario, string, bool) {
	scenario, field, ok := strings.Cut(path, ".")
	if !ok || scenario == "" || field == "" || strings.Contains(field, ".") {
		return "", "", false
	}
	return forecast.Scenario(scenario), field, true
}

// setField assigns a decoded JSON value to the assumption field whose json
// tag matches name. The scenario tag itself is not editable.
func setField(a *forecast.Assumption, name string, value any) error {
	if name == "scenario" {
		return fmt.Errorf("field scenario is not editable")
	}

	v := reflect.ValueOf(a).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		tag, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if tag != name {
			continue
		}
		return assign(v.Field(i), name, value)
	}
	return fmt.Errorf("unknown field %q", name)
}

func assign(field reflect.Value, name string, value any) error {
	switch field.Kind() {
	case reflect.Float64:
		f, ok := value.(float64)
		if !ok {
			return fmt.Errorf("field %q wants a number, got %T", name, value)
		}
		field.SetFloat(f)
	case reflect.Int:
		f, ok := value.(float64)
		if !ok || f != math.Trunc(f) {
			return fmt.Errorf("field %q wants an integer, got %v", name, value)
		}
		field.SetInt(int64(f))
	case reflect.String:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("field %q wants a string, got %T", name, value)
		}
		field.SetString(s)
	default:
		return fmt.Errorf("field %q is not editable", name)
	}
	return nil
}
