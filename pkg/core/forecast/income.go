package forecast

// OpexLines holds the operating expense lines derived from revenue.
type OpexLines struct {
	RnD float64
	SM  float64
	GA  float64
}

// Total returns the summed operating expenses.
func (o OpexLines) Total() float64 {
	return o.RnD + o.SM + o.GA
}

// OpexFor derives the opex lines as fixed percentages of revenue.
func OpexFor(revenue float64, a Assumption) OpexLines {
	return OpexLines{
		RnD: revenue * a.RnDPct,
		SM:  revenue * a.SMPct,
		GA:  revenue * a.GAPct,
	}
}

// QuarterInput carries the revenue-side values for one forecast quarter into
// the income statement build: the blended revenue, its trend/driver
// components, and the glided gross margin for the quarter.
type QuarterInput struct {
	FiscalYear   int
	FiscalPeriod string

	Revenue       float64
	TrendRevenue  float64
	DriverRevenue *float64
	BlendWeight   float64
	GrossMargin   float64
	LowConfidence bool
}

// IncomeStatementBuilder assembles quarterly projection rows from revenue
// inputs, compounding diluted shares across quarters. One builder serves one
// scenario run; builders share no state.
type IncomeStatementBuilder struct {
	assumption Assumption
	shares     float64
	dilutionQ  float64
}

// NewIncomeStatementBuilder seeds the share count from the last actual
// diluted share count. A zero seed propagates as unknown shares and nil EPS.
func NewIncomeStatementBuilder(a Assumption, seedShares float64) *IncomeStatementBuilder {
	return &IncomeStatementBuilder{
		assumption: a,
		shares:     seedShares,
		dilutionQ:  QuarterlyRate(a.DilutionPctAnnual),
	}
}

// Build produces the projection row for one quarter and advances the diluted
// share count. Tax applies only to positive pretax income: losses carry no
// tax benefit, so net income equals pretax income in loss quarters.
func (b *IncomeStatementBuilder) Build(in QuarterInput) ProjectionRow {
	a := b.assumption

	cogs := in.Revenue * (1 - in.GrossMargin)
	grossProfit := in.Revenue - cogs

	opex := OpexFor(in.Revenue, a)
	operatingIncome := grossProfit - opex.Total()

	interest := in.Revenue * a.InterestPctRevenue
	pretax := operatingIncome - interest

	tax := 0.0
	if pretax > 0 {
		tax = pretax * a.TaxRate
	}
	netIncome := pretax - tax

	if b.shares > 0 {
		b.shares *= 1 + b.dilutionQ
	}

	var eps *float64
	if b.shares > 0 {
		eps = floatPtr(netIncome / b.shares)
	}

	return ProjectionRow{
		FiscalYear:   in.FiscalYear,
		FiscalPeriod: in.FiscalPeriod,

		Revenue:                  in.Revenue,
		CostOfRevenue:            cogs,
		GrossProfit:              grossProfit,
		ResearchAndDevelopment:   opex.RnD,
		SalesAndMarketing:        opex.SM,
		GeneralAndAdministrative: opex.GA,
		OperatingExpenses:        opex.Total(),
		OperatingIncome:          operatingIncome,
		InterestExpense:          interest,
		PretaxIncome:             pretax,
		IncomeTaxExpense:         tax,
		NetIncome:                netIncome,
		SharesOutstanding:        b.shares,

		EPS:                eps,
		GrossMarginPct:     ratioOrNil(grossProfit, in.Revenue),
		OperatingMarginPct: ratioOrNil(operatingIncome, in.Revenue),
		NetMarginPct:       ratioOrNil(netIncome, in.Revenue),

		DriverRevenue:   in.DriverRevenue,
		BaselineRevenue: in.TrendRevenue,
		BlendWeight:     in.BlendWeight,
		LowConfidence:   in.LowConfidence,
	}
}
