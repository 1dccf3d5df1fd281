package forecast

import (
	"sort"
	"sync"
)

// MaxHorizonQuarters is the hard cap on the forecast horizon. Boundary
// adapters clamp requested horizons before calling the engine; the runner
// enforces the cap again so no caller can run unbounded.
const MaxHorizonQuarters = 80

// defaultAnnualPeriods is the number of fiscal years the default horizon
// covers when the caller does not request one.
const defaultAnnualPeriods = 5

// Runner orchestrates one forecast per scenario: it seeds trend revenue,
// gross margin, and shares from the latest actual quarter, runs the glide
// curves and driver blend across the horizon, and rolls the quarters up into
// annual periods. A Runner is immutable after construction; Run is a pure
// function of (assumption, actuals, kpis) and scenarios may run in parallel.
type Runner struct {
	actuals []ActualsRow
	kpis    []KPIRow
}

// NewRunner copies and sorts the historical inputs.
func NewRunner(actuals []ActualsRow, kpis []KPIRow) *Runner {
	sorted := make([]ActualsRow, len(actuals))
	copy(sorted, actuals)
	sort.SliceStable(sorted, func(i, j int) bool {
		return PeriodKey(sorted[i].FiscalYear, sorted[i].FiscalPeriod) <
			PeriodKey(sorted[j].FiscalYear, sorted[j].FiscalPeriod)
	})
	return &Runner{actuals: sorted, kpis: kpis}
}

// Run produces the ScenarioResult for one assumption record. A horizon <= 0
// selects the default horizon (enough quarters to complete five fiscal
// years); anything above the hard cap is capped.
func (r *Runner) Run(a Assumption, horizon int) (*ScenarioResult, error) {
	if err := ValidateAssumption(a); err != nil {
		return nil, err
	}

	anchorYear, anchorPeriod := r.anchor()
	if horizon <= 0 {
		horizon = defaultHorizon(anchorYear, anchorPeriod)
	}
	if horizon > MaxHorizonQuarters {
		horizon = MaxHorizonQuarters
	}

	var flags []string
	seedDegraded := false

	seedRevenue := 0.0
	seedShares := 0.0
	marginStart := a.GrossMarginTarget

	last := r.latestActual()
	if last == nil {
		// No actual quarter to seed from: zero-growth baseline from zero,
		// flagged rather than failing.
		flags = append(flags, FlagMissingActualsSeed)
		seedDegraded = true
	} else {
		if last.Revenue != nil {
			seedRevenue = *last.Revenue
		} else {
			flags = append(flags, FlagMissingActualsSeed)
			seedDegraded = true
		}
		if last.SharesOutstanding != nil {
			seedShares = *last.SharesOutstanding
		}
		if last.GrossProfit != nil && last.Revenue != nil && *last.Revenue != 0 {
			marginStart = *last.GrossProfit / *last.Revenue
		}
	}

	driver := NewDriverModel(r.kpis)
	if !driver.HasHistory() && (a.DriverBlendStartWeight > 0 || a.DriverBlendEndWeight > 0) {
		flags = append(flags, FlagMissingKPIHistory)
	}

	curve := GrowthCurve{Start: a.RevenueCAGRStart, Floor: a.RevenueCAGRFloor, DecayQuarters: a.RevenueDecayQuarters}
	glide := MarginGlide{Start: marginStart, Target: a.GrossMarginTarget, GlideQuarters: a.GrossMarginGlideQuarters}
	ramp := BlendRamp{StartWeight: a.DriverBlendStartWeight, EndWeight: a.DriverBlendEndWeight, RampQuarters: a.DriverBlendRampQuarters}

	plans := make([]QuarterInput, 0, horizon)
	trendRev := seedRevenue
	year, period := NextPeriod(anchorYear, anchorPeriod)
	for q := 0; q < horizon; q++ {
		trendRev *= 1 + curve.QuarterlyRate(q)

		weight := ramp.Weight(q)
		drv := driver.Revenue(year, period)

		lowConf := seedDegraded
		revenue := trendRev
		if drv != nil {
			revenue = weight**drv + (1-weight)*trendRev
		} else {
			if weight > 0 {
				lowConf = true
			}
			weight = 0
		}

		plans = append(plans, QuarterInput{
			FiscalYear:    year,
			FiscalPeriod:  period,
			Revenue:       revenue,
			TrendRevenue:  trendRev,
			DriverRevenue: drv,
			BlendWeight:   weight,
			GrossMargin:   glide.Margin(q),
			LowConfidence: lowConf,
		})
		year, period = NextPeriod(year, period)
	}

	if a.SeasonalityMode == SeasonalityAuto {
		if indices := SeasonalIndices(r.actuals); indices != nil {
			applySeasonality(plans, indices)
		}
	}

	builder := NewIncomeStatementBuilder(a, seedShares)
	quarterly := make([]ProjectionRow, 0, horizon)
	for _, plan := range plans {
		quarterly = append(quarterly, builder.Build(plan))
	}
	r.fillRevenueYoY(quarterly)

	return &ScenarioResult{
		Name:        a.Scenario,
		Assumptions: a,
		Quarterly:   quarterly,
		Annual:      RollupAnnual(quarterly),
		Flags:       flags,
	}, nil
}

// RunAll computes all three scenarios concurrently. Each scenario is an
// independent pure computation, so the fan-out needs no coordination beyond
// the join. Results come back in canonical base/bull/bear order.
func (r *Runner) RunAll(set AssumptionSet, horizon int) ([]ScenarioResult, error) {
	if err := ValidateSet(set); err != nil {
		return nil, err
	}

	scenarios := Scenarios()
	results := make([]*ScenarioResult, len(scenarios))
	errs := make([]error, len(scenarios))

	var wg sync.WaitGroup
	for i, scenario := range scenarios {
		wg.Add(1)
		go func(i int, a Assumption) {
			defer wg.Done()
			results[i], errs[i] = r.Run(a, horizon)
		}(i, set[scenario])
	}
	wg.Wait()

	out := make([]ScenarioResult, 0, len(scenarios))
	for i := range results {
		if errs[i] != nil {
			return nil, errs[i]
		}
		out = append(out, *results[i])
	}
	return out, nil
}

func (r *Runner) latestActual() *ActualsRow {
	if len(r.actuals) == 0 {
		return nil
	}
	return &r.actuals[len(r.actuals)-1]
}

// anchor returns the last known (year, period) the forecast continues from:
// the latest actual quarter, else the latest KPI quarter, else a bare epoch.
func (r *Runner) anchor() (int, string) {
	if last := r.latestActual(); last != nil {
		return last.FiscalYear, last.FiscalPeriod
	}
	best := 0
	year, period := 0, "Q4"
	for _, k := range r.kpis {
		if key := PeriodKey(k.FiscalYear, k.FiscalPeriod); key > best {
			best = key
			year, period = k.FiscalYear, k.FiscalPeriod
		}
	}
	if best > 0 {
		return year, period
	}
	return 0, "Q4"
}

// defaultHorizon covers defaultAnnualPeriods complete fiscal years starting
// from the quarter after the anchor.
func defaultHorizon(anchorYear int, anchorPeriod string) int {
	_, startPeriod := NextPeriod(anchorYear, anchorPeriod)
	idx := periodOrder[startPeriod]
	if idx == 0 {
		idx = 1
	}
	return (4 - idx + 1) + (defaultAnnualPeriods-1)*4
}

// fillRevenueYoY annotates each quarter with growth versus the same fiscal
// period a year earlier, looking through both history and earlier forecast
// quarters.
func (r *Runner) fillRevenueYoY(rows []ProjectionRow) {
	revByKey := make(map[int]float64, len(r.actuals)+len(rows))
	for _, a := range r.actuals {
		if a.Revenue != nil {
			revByKey[PeriodKey(a.FiscalYear, a.FiscalPeriod)] = *a.Revenue
		}
	}
	for i := range rows {
		if prev, ok := revByKey[PeriodKey(rows[i].FiscalYear-1, rows[i].FiscalPeriod)]; ok && prev != 0 {
			rows[i].RevenueYoYPct = floatPtr(rows[i].Revenue/prev - 1)
		}
		revByKey[PeriodKey(rows[i].FiscalYear, rows[i].FiscalPeriod)] = rows[i].Revenue
	}
}
