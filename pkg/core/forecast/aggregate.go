package forecast

import "sort"

// RollupAnnual aggregates quarterly rows into one annual row per fiscal
// year. Flow items are exact sums of their quarters. Annual EPS divides
// annual net income by the average diluted share count across the year's
// quarters; summing quarterly EPS would double-count dilution. Annual margin
// percentages are recomputed from annual aggregates, never averaged from
// quarterly percentages.
func RollupAnnual(quarters []ProjectionRow) []ProjectionRow {
	type bucket struct {
		row      ProjectionRow
		shareSum float64
		count    int
		lowConf  bool
	}

	byYear := make(map[int]*bucket)
	for _, q := range quarters {
		b, ok := byYear[q.FiscalYear]
		if !ok {
			b = &bucket{row: ProjectionRow{FiscalYear: q.FiscalYear}}
			byYear[q.FiscalYear] = b
		}
		b.row.Revenue += q.Revenue
		b.row.CostOfRevenue += q.CostOfRevenue
		b.row.GrossProfit += q.GrossProfit
		b.row.ResearchAndDevelopment += q.ResearchAndDevelopment
		b.row.SalesAndMarketing += q.SalesAndMarketing
		b.row.GeneralAndAdministrative += q.GeneralAndAdministrative
		b.row.OperatingExpenses += q.OperatingExpenses
		b.row.OperatingIncome += q.OperatingIncome
		b.row.InterestExpense += q.InterestExpense
		b.row.PretaxIncome += q.PretaxIncome
		b.row.IncomeTaxExpense += q.IncomeTaxExpense
		b.row.NetIncome += q.NetIncome
		b.shareSum += q.SharesOutstanding
		b.count++
		b.lowConf = b.lowConf || q.LowConfidence
	}

	years := make([]int, 0, len(byYear))
	for year := range byYear {
		years = append(years, year)
	}
	sort.Ints(years)

	annual := make([]ProjectionRow, 0, len(years))
	for _, year := range years {
		b := byYear[year]
		if b.count > 0 {
			b.row.SharesOutstanding = b.shareSum / float64(b.count)
		}
		if b.row.SharesOutstanding > 0 {
			b.row.EPS = floatPtr(b.row.NetIncome / b.row.SharesOutstanding)
		}
		b.row.GrossMarginPct = ratioOrNil(b.row.GrossProfit, b.row.Revenue)
		b.row.OperatingMarginPct = ratioOrNil(b.row.OperatingIncome, b.row.Revenue)
		b.row.NetMarginPct = ratioOrNil(b.row.NetIncome, b.row.Revenue)
		b.row.LowConfidence = b.lowConf
		annual = append(annual, b.row)
	}

	for i := 1; i < len(annual); i++ {
		prev := annual[i-1]
		if prev.Revenue != 0 {
			annual[i].RevenueYoYPct = floatPtr(annual[i].Revenue/prev.Revenue - 1)
		}
	}
	return annual
}
