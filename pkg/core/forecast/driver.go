package forecast

import "sort"

// DriverModel derives quarterly revenue from usage KPIs:
// driver_revenue = DAU x paid_conversion_pct x ARPU.
//
// Missing forward values are carried forward from the last known KPI row
// unchanged. With no KPI history at all, Revenue returns nil for every
// quarter and the blend collapses to the trend-only term.
type DriverModel struct {
	known map[int]KPIRow // PeriodKey -> row
	last  *KPIRow        // running forward-fill state
}

// NewDriverModel indexes the KPI history. Duplicate (year, period) rows keep
// the last occurrence, matching upsert order.
func NewDriverModel(kpis []KPIRow) *DriverModel {
	m := &DriverModel{known: make(map[int]KPIRow, len(kpis))}

	sorted := make([]KPIRow, len(kpis))
	copy(sorted, kpis)
	sort.SliceStable(sorted, func(i, j int) bool {
		return PeriodKey(sorted[i].FiscalYear, sorted[i].FiscalPeriod) <
			PeriodKey(sorted[j].FiscalYear, sorted[j].FiscalPeriod)
	})
	for _, row := range sorted {
		m.known[PeriodKey(row.FiscalYear, row.FiscalPeriod)] = row
	}
	// Fold history in order so the fill state carries the last known value
	// of every field, not just the fields the final row happened to report.
	if len(sorted) > 0 {
		acc := sorted[0]
		for _, row := range sorted[1:] {
			acc = mergeKPI(acc, row)
		}
		m.last = &acc
	}
	return m
}

// HasHistory reports whether any KPI rows were supplied.
func (m *DriverModel) HasHistory() bool {
	return m.last != nil
}

// Revenue returns the driver revenue for one forecast quarter, or nil when
// DAU, conversion, or ARPU is still unknown after forward-filling. Quarters
// must be requested in chronological order; each call advances the
// forward-fill state.
func (m *DriverModel) Revenue(year int, period string) *float64 {
	if m.last == nil {
		return nil
	}

	filled := *m.last
	if row, ok := m.known[PeriodKey(year, period)]; ok {
		filled = mergeKPI(filled, row)
	}
	filled.FiscalYear = year
	filled.FiscalPeriod = period
	m.last = &filled

	if filled.DAU == nil || filled.PaidConversionPct == nil || filled.ARPU == nil {
		return nil
	}
	return floatPtr(*filled.DAU * *filled.PaidConversionPct * *filled.ARPU)
}

// mergeKPI overlays the known row on the carried-forward row; nil fields in
// the known row keep their carried values.
func mergeKPI(base, over KPIRow) KPIRow {
	out := base
	if over.MAU != nil {
		out.MAU = over.MAU
	}
	if over.DAU != nil {
		out.DAU = over.DAU
	}
	if over.PaidSubs != nil {
		out.PaidSubs = over.PaidSubs
	}
	if over.PaidConversionPct != nil {
		out.PaidConversionPct = over.PaidConversionPct
	}
	if over.ARPU != nil {
		out.ARPU = over.ARPU
	}
	if over.ChurnPct != nil {
		out.ChurnPct = over.ChurnPct
	}
	if over.Source != "" {
		out.Source = over.Source
	}
	return out
}
