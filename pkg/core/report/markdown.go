// Package report renders forecast and valuation results as Markdown
// documents and converts them to HTML for the report endpoints.
package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"fincast/pkg/core/dcf"
	"fincast/pkg/core/forecast"
)

// ForecastReport renders the annual view of every scenario as one Markdown
// document, flagging degraded runs inline.
func ForecastReport(ticker string, results []forecast.ScenarioResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s Scenario Forecast\n\n", strings.ToUpper(ticker))

	for _, res := range results {
		fmt.Fprintf(&b, "## %s\n\n", titleCase(string(res.Name)))
		if len(res.Flags) > 0 {
			fmt.Fprintf(&b, "> Data quality: %s\n\n", strings.Join(res.Flags, ", "))
		}

		b.WriteString("| Fiscal Year | Revenue | Gross Profit | Operating Income | Net Income | EPS | Rev YoY |\n")
		b.WriteString("|---|---:|---:|---:|---:|---:|---:|\n")
		for _, row := range res.Annual {
			fmt.Fprintf(&b, "| FY%d | %s | %s | %s | %s | %s | %s |\n",
				row.FiscalYear,
				money(row.Revenue),
				money(row.GrossProfit),
				money(row.OperatingIncome),
				money(row.NetIncome),
				perShare(row.EPS),
				pct(row.RevenueYoYPct),
			)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// ValuationReport renders a DCF result as Markdown: the equity bridge summary
// followed by the explicit projection table.
func ValuationReport(ticker string, res *dcf.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s Intrinsic Value (DCF)\n\n", strings.ToUpper(ticker))

	fmt.Fprintf(&b, "- Base FCF: %s\n", money(res.BaseFCF))
	fmt.Fprintf(&b, "- PV of terminal value: %s\n", money(res.TerminalValuePV))
	fmt.Fprintf(&b, "- Enterprise value: %s\n", money(res.EnterpriseValue))
	fmt.Fprintf(&b, "- Equity value: %s\n", money(res.EquityValue))
	fmt.Fprintf(&b, "- Fair value per share: %s\n", perShare(res.FairValuePerShare))
	if res.Price != nil {
		fmt.Fprintf(&b, "- Price: %.2f\n", *res.Price)
	}
	fmt.Fprintf(&b, "- Upside vs price: %s\n\n", pct(res.UpsideVsPrice))

	b.WriteString("| Year | FCF | Growth | Discount Factor | PV |\n")
	b.WriteString("|---|---:|---:|---:|---:|\n")
	for _, row := range res.Projections {
		fmt.Fprintf(&b, "| %d | %s | %.1f%% | %.4f | %s |\n",
			row.Year, money(row.FCF), row.Growth*100, row.DiscountFactor, money(row.PVFCF))
	}
	b.WriteString("\n")
	return b.String()
}

// RenderHTML converts a Markdown report to HTML with GFM tables enabled.
func RenderHTML(markdown string) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func money(v float64) string {
	switch {
	case v >= 1e9 || v <= -1e9:
		return fmt.Sprintf("%.2fB", v/1e9)
	case v >= 1e6 || v <= -1e6:
		return fmt.Sprintf("%.1fM", v/1e6)
	default:
		return fmt.Sprintf("%.0f", v)
	}
}

func perShare(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *v)
}

func pct(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", *v*100)
}
