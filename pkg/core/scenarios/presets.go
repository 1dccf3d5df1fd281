// Package scenarios owns the default assumption presets and the operations
// that edit assumption sets: loading preset files, merging stored overrides
// over defaults, and applying dotted-path field edits.
package scenarios

import (
	"fmt"
	"os"
	"sync"

	hjson "github.com/hjson/hjson-go/v4"

	"fincast/pkg/core/forecast"

	_ "embed"
)

//go:embed presets.hjson
var embeddedPresets []byte

var (
	defaultsOnce sync.Once
	defaultsSet  forecast.AssumptionSet
	defaultsErr  error
)

// Defaults returns a fresh copy of the built-in base/bull/bear presets.
// The embedded file is parsed once; a parse failure is a programming error.
func Defaults() forecast.AssumptionSet {
	defaultsOnce.Do(func() {
		defaultsSet, defaultsErr = parseSet(embeddedPresets)
	})
	if defaultsErr != nil {
		panic(fmt.Sprintf("embedded scenario presets are invalid: %v", defaultsErr))
	}
	out := make(forecast.AssumptionSet, len(defaultsSet))
	for k, v := range defaultsSet {
		out[k] = v
	}
	return out
}

// LoadFile reads a preset file in HJSON form and validates the result. The
// file must carry all three scenarios; partial preset files are rejected so a
// deployment cannot silently run with mixed defaults.
func LoadFile(path string) (forecast.AssumptionSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario presets: %w", err)
	}
	set, err := parseSet(data)
	if err != nil {
		return nil, fmt.Errorf("parse scenario presets %s: %w", path, err)
	}
	if err := forecast.ValidateSet(set); err != nil {
		return nil, fmt.Errorf("scenario presets %s: %w", path, err)
	}
	return set, nil
}

// Merge lays stored per-ticker overrides over the defaults. Overrides replace
// whole scenario records; a scenario absent from overrides keeps its default.
func Merge(defaults forecast.AssumptionSet, overrides forecast.AssumptionSet) forecast.AssumptionSet {
	out := make(forecast.AssumptionSet, len(defaults))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range overrides {
		if k.Valid() {
			out[k] = v
		}
	}
	return out
}

func parseSet(data []byte) (forecast.AssumptionSet, error) {
	raw := make(map[string]forecast.Assumption)
	if err := hjson.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	set := make(forecast.AssumptionSet, len(raw))
	for name, a := range raw {
		scenario := forecast.Scenario(name)
		if !scenario.Valid() {
			return nil, fmt.Errorf("unknown scenario %q", name)
		}
		if a.Scenario == "" {
			a.Scenario = scenario
		}
		if a.Scenario != scenario {
			return nil, fmt.Errorf("scenario %q carries mismatched tag %q", name, a.Scenario)
		}
		set[scenario] = a
	}
	return set, nil
}
