// Package forecast implements the scenario forecasting engine: it projects
// quarterly income-statement lines from a validated assumption set, blends
// trend revenue with usage-driver revenue, and rolls quarters up into annual
// periods. Every component is a pure function of its inputs; the package does
// no I/O and holds no shared state, so scenario runs can execute in parallel.
package forecast

// =============================================================================
// SCENARIO TAGS
// =============================================================================

// Scenario identifies one of the three fixed forecast cases.
type Scenario string

const (
	ScenarioBase Scenario = "base"
	ScenarioBull Scenario = "bull"
	ScenarioBear Scenario = "bear"
)

// Scenarios lists the fixed scenario set in canonical order.
func Scenarios() []Scenario {
	return []Scenario{ScenarioBase, ScenarioBull, ScenarioBear}
}

// Valid reports whether s is one of the fixed scenario tags.
func (s Scenario) Valid() bool {
	switch s {
	case ScenarioBase, ScenarioBull, ScenarioBear:
		return true
	}
	return false
}

// AssumptionSet is the enum-keyed scenario map. Every key carries a complete
// Assumption; partial records are merged over presets before they get here.
type AssumptionSet map[Scenario]Assumption

// =============================================================================
// FISCAL PERIODS
// =============================================================================

var periodOrder = map[string]int{"Q1": 1, "Q2": 2, "Q3": 3, "Q4": 4}
var orderPeriod = map[int]string{1: "Q1", 2: "Q2", 3: "Q3", 4: "Q4"}

// PeriodKey returns a sortable key for (fiscal_year, fiscal_period).
// Unknown periods sort before Q1 of the same year.
func PeriodKey(year int, period string) int {
	return year*4 + periodOrder[period]
}

// NextPeriod advances one fiscal quarter, rolling Q4 into Q1 of the next year.
func NextPeriod(year int, period string) (int, string) {
	idx := periodOrder[period]
	if idx == 0 || idx >= 4 {
		return year + 1, "Q1"
	}
	return year, orderPeriod[idx+1]
}

// =============================================================================
// ASSUMPTIONS
// =============================================================================

// SeasonalityMode toggles historical seasonality reshaping of the revenue path.
type SeasonalityMode string

const (
	SeasonalityOff  SeasonalityMode = "off"
	SeasonalityAuto SeasonalityMode = "auto"
)

// Assumption is the complete driver set for one scenario. Rates are decimal
// fractions (0.18 = 18%); CAGR fields are annualized and converted to
// quarterly multipliers inside the engine. Records are owned and edited by
// collaborators; the engine only validates and reads them.
type Assumption struct {
	Scenario Scenario `json:"scenario" yaml:"scenario" validate:"required,oneof=base bull bear"`

	RevenueCAGRStart     float64 `json:"revenue_cagr_start" yaml:"revenue_cagr_start" validate:"gte=-1,lt=1"`
	RevenueCAGRFloor     float64 `json:"revenue_cagr_floor" yaml:"revenue_cagr_floor" validate:"gte=-1,lt=1"`
	RevenueDecayQuarters int     `json:"revenue_decay_quarters" yaml:"revenue_decay_quarters" validate:"gte=0"`

	GrossMarginTarget        float64 `json:"gross_margin_target" yaml:"gross_margin_target" validate:"gte=0,lt=1"`
	GrossMarginGlideQuarters int     `json:"gross_margin_glide_quarters" yaml:"gross_margin_glide_quarters" validate:"gte=0"`

	RnDPct             float64 `json:"rnd_pct" yaml:"rnd_pct" validate:"gte=0,lt=1"`
	SMPct              float64 `json:"sm_pct" yaml:"sm_pct" validate:"gte=0,lt=1"`
	GAPct              float64 `json:"ga_pct" yaml:"ga_pct" validate:"gte=0,lt=1"`
	TaxRate            float64 `json:"tax_rate" yaml:"tax_rate" validate:"gte=0,lt=1"`
	InterestPctRevenue float64 `json:"interest_pct_revenue" yaml:"interest_pct_revenue" validate:"gte=0,lt=1"`
	DilutionPctAnnual  float64 `json:"dilution_pct_annual" yaml:"dilution_pct_annual" validate:"gte=0,lt=1"`

	SeasonalityMode SeasonalityMode `json:"seasonality_mode" yaml:"seasonality_mode" validate:"omitempty,oneof=off auto"`

	DriverBlendStartWeight  float64 `json:"driver_blend_start_weight" yaml:"driver_blend_start_weight" validate:"gte=0,lte=1"`
	DriverBlendEndWeight    float64 `json:"driver_blend_end_weight" yaml:"driver_blend_end_weight" validate:"gte=0,lte=1"`
	DriverBlendRampQuarters int     `json:"driver_blend_ramp_quarters" yaml:"driver_blend_ramp_quarters" validate:"gte=0"`
}

// =============================================================================
// INPUT ROWS
// =============================================================================

// KPISource tags where a KPI observation came from.
type KPISource string

const (
	KPISourceManual   KPISource = "manual"
	KPISourceIngested KPISource = "ingested"
)

// KPIRow is one quarter of usage metrics. Any field may be nil; nil means
// unknown, never zero.
type KPIRow struct {
	FiscalYear   int    `json:"fiscal_year" yaml:"fiscal_year"`
	FiscalPeriod string `json:"fiscal_period" yaml:"fiscal_period"`

	MAU               *float64 `json:"mau,omitempty" yaml:"mau,omitempty"`
	DAU               *float64 `json:"dau,omitempty" yaml:"dau,omitempty"`
	PaidSubs          *float64 `json:"paid_subs,omitempty" yaml:"paid_subs,omitempty"`
	PaidConversionPct *float64 `json:"paid_conversion_pct,omitempty" yaml:"paid_conversion_pct,omitempty"`
	ARPU              *float64 `json:"arpu,omitempty" yaml:"arpu,omitempty"`
	ChurnPct          *float64 `json:"churn_pct,omitempty" yaml:"churn_pct,omitempty"`

	Source KPISource `json:"source,omitempty" yaml:"source,omitempty"`
}

// ActualsRow is one historical quarter of reported financials. Read-only to
// the engine; only the latest quarter seeds the forecast.
type ActualsRow struct {
	FiscalYear   int    `json:"fiscal_year" yaml:"fiscal_year"`
	FiscalPeriod string `json:"fiscal_period" yaml:"fiscal_period"`

	Revenue           *float64 `json:"revenue,omitempty" yaml:"revenue,omitempty"`
	CostOfRevenue     *float64 `json:"cost_of_revenue,omitempty" yaml:"cost_of_revenue,omitempty"`
	GrossProfit       *float64 `json:"gross_profit,omitempty" yaml:"gross_profit,omitempty"`
	OperatingIncome   *float64 `json:"operating_income,omitempty" yaml:"operating_income,omitempty"`
	NetIncome         *float64 `json:"net_income,omitempty" yaml:"net_income,omitempty"`
	SharesOutstanding *float64 `json:"shares_outstanding,omitempty" yaml:"shares_outstanding,omitempty"`
}

// =============================================================================
// OUTPUT ROWS
// =============================================================================

// ProjectionRow is one projected period, quarterly or annual. Annual rows
// leave FiscalPeriod empty. Rows are recomputed on every run; a run returns a
// fresh sequence and never mutates a previous one.
type ProjectionRow struct {
	FiscalYear   int    `json:"fiscal_year"`
	FiscalPeriod string `json:"fiscal_period,omitempty"`

	Revenue                  float64 `json:"revenue"`
	CostOfRevenue            float64 `json:"cost_of_revenue"`
	GrossProfit              float64 `json:"gross_profit"`
	ResearchAndDevelopment   float64 `json:"research_and_development"`
	SalesAndMarketing        float64 `json:"sales_and_marketing"`
	GeneralAndAdministrative float64 `json:"general_and_administrative"`
	OperatingExpenses        float64 `json:"operating_expenses"`
	OperatingIncome          float64 `json:"operating_income"`
	InterestExpense          float64 `json:"interest_expense"`
	PretaxIncome             float64 `json:"pretax_income"`
	IncomeTaxExpense         float64 `json:"income_tax_expense"`
	NetIncome                float64 `json:"net_income"`
	SharesOutstanding        float64 `json:"shares_outstanding"`

	// Nullable metrics: nil when the denominator is zero or unknown.
	EPS                *float64 `json:"eps"`
	GrossMarginPct     *float64 `json:"gross_margin_pct,omitempty"`
	OperatingMarginPct *float64 `json:"operating_margin_pct,omitempty"`
	NetMarginPct       *float64 `json:"net_margin_pct,omitempty"`
	RevenueYoYPct      *float64 `json:"revenue_yoy_pct,omitempty"`

	// Blend diagnostics (quarterly rows only).
	DriverRevenue   *float64 `json:"driver_revenue,omitempty"`
	BaselineRevenue float64  `json:"baseline_revenue,omitempty"`
	BlendWeight     float64  `json:"blend_weight,omitempty"`

	// LowConfidence marks periods where driver data was requested by the
	// blend weight but unavailable, or where the seed itself was degraded.
	LowConfidence bool `json:"low_confidence,omitempty"`
}

// Data-quality flags attached to a ScenarioResult when seeding degraded.
const (
	FlagMissingActualsSeed = "missing_actuals_seed"
	FlagMissingKPIHistory  = "missing_kpi_history"
)

// ScenarioResult is the full output for one scenario: the quarterly path and
// the annual rollup derived from it (annual rows are never computed
// independently).
type ScenarioResult struct {
	Name        Scenario        `json:"name"`
	Assumptions Assumption      `json:"assumptions"`
	Quarterly   []ProjectionRow `json:"quarterly"`
	Annual      []ProjectionRow `json:"annual"`
	Flags       []string        `json:"flags,omitempty"`
}

func floatPtr(f float64) *float64 { return &f }

// ratioOrNil returns num/den, or nil when den is zero. Keeps NaN and Inf out
// of every serialized metric.
func ratioOrNil(num, den float64) *float64 {
	if den == 0 {
		return nil
	}
	return floatPtr(num / den)
}
