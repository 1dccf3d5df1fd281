package forecast

// SeasonalIndices derives per-period revenue indices from historical
// quarters. Requires at least 8 usable quarters and at least 2 samples per
// fiscal period; otherwise returns nil and seasonality is skipped.
func SeasonalIndices(actuals []ActualsRow) map[string]float64 {
	byPeriod := map[string][]float64{"Q1": {}, "Q2": {}, "Q3": {}, "Q4": {}}
	usable := 0
	for _, row := range actuals {
		vals, ok := byPeriod[row.FiscalPeriod]
		if !ok || row.Revenue == nil {
			continue
		}
		byPeriod[row.FiscalPeriod] = append(vals, *row.Revenue)
		usable++
	}
	if usable < 8 {
		return nil
	}

	total := 0.0
	count := 0
	for _, vals := range byPeriod {
		if len(vals) < 2 {
			return nil
		}
		for _, v := range vals {
			total += v
		}
		count += len(vals)
	}
	if count == 0 {
		return nil
	}
	overall := total / float64(count)
	if overall <= 0 {
		return nil
	}

	indices := make(map[string]float64, 4)
	for period, vals := range byPeriod {
		sum := 0.0
		for _, v := range vals {
			sum += v
		}
		indices[period] = (sum / float64(len(vals))) / overall
	}
	return indices
}

// applySeasonality reshapes quarterly revenues within each fiscal year by the
// period indices, rescaled so each year's total is unchanged. Operates on the
// revenue plan before the income statement derives from it.
func applySeasonality(quarters []QuarterInput, indices map[string]float64) {
	if len(indices) == 0 {
		return
	}

	byYear := make(map[int][]int)
	for i, q := range quarters {
		byYear[q.FiscalYear] = append(byYear[q.FiscalYear], i)
	}

	for _, idxs := range byYear {
		baseTotal := 0.0
		for _, i := range idxs {
			baseTotal += quarters[i].Revenue
		}
		if baseTotal <= 0 {
			continue
		}

		adjusted := make([]float64, len(idxs))
		adjTotal := 0.0
		for n, i := range idxs {
			factor, ok := indices[quarters[i].FiscalPeriod]
			if !ok {
				factor = 1.0
			}
			adjusted[n] = quarters[i].Revenue * factor
			adjTotal += adjusted[n]
		}
		if adjTotal <= 0 {
			continue
		}

		scale := baseTotal / adjTotal
		for n, i := range idxs {
			quarters[i].Revenue = adjusted[n] * scale
		}
	}
}
