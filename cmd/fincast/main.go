// Command fincast runs scenario forecasts and DCF valuations from local
// files, without the API server or a database.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"fincast/pkg/core/dcf"
	"fincast/pkg/core/forecast"
	"fincast/pkg/core/report"
	"fincast/pkg/core/scenarios"
)

// modelFile is the YAML input shape for the forecast subcommand.
type modelFile struct {
	Ticker      string                 `yaml:"ticker"`
	Actuals     []forecast.ActualsRow  `yaml:"actuals"`
	KPIs        []forecast.KPIRow      `yaml:"kpis"`
	Assumptions forecast.AssumptionSet `yaml:"assumptions"`
}

func main() {
	rootCmd := &cobra.Command{
		Use:           "fincast",
		Short:         "Scenario forecasting and DCF valuation",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.AddCommand(forecastCmd(), dcfCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func forecastCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forecast <model.yaml>",
		Short: "Run base/bull/bear forecasts from a YAML model file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Flags read through viper so FINCAST_HORIZON and
			// FINCAST_MARKDOWN work as environment fallbacks.
			viper.SetEnvPrefix("fincast")
			viper.AutomaticEnv()
			if err := viper.BindPFlags(cmd.Flags()); err != nil {
				return fmt.Errorf("bind flags: %w", err)
			}
			horizon := viper.GetInt("horizon")
			markdown := viper.GetBool("markdown")

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			var model modelFile
			if err := yaml.Unmarshal(data, &model); err != nil {
				return fmt.Errorf("parse yaml %s: %w", args[0], err)
			}

			set := scenarios.Merge(scenarios.Defaults(), model.Assumptions)
			results, err := forecast.NewRunner(model.Actuals, model.KPIs).RunAll(set, horizon)
			if err != nil {
				return err
			}

			if markdown {
				fmt.Println(report.ForecastReport(model.Ticker, results))
				return nil
			}
			for _, res := range results {
				printScenario(res)
			}
			return nil
		},
	}

	cmd.Flags().Int("horizon", 0, "forecast horizon in quarters (0 = default)")
	cmd.Flags().Bool("markdown", false, "emit a Markdown report instead of tables")
	return cmd
}

func printScenario(res forecast.ScenarioResult) {
	fmt.Printf("\n%s\n", strings.ToUpper(string(res.Name)))
	if len(res.Flags) > 0 {
		fmt.Printf("flags: %s\n", strings.Join(res.Flags, ", "))
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"FY", "Revenue", "Gross Profit", "Op Income", "Net Income", "EPS", "Rev YoY"})
	for _, row := range res.Annual {
		t.AppendRow(table.Row{
			row.FiscalYear,
			fmt.Sprintf("%.1f", row.Revenue),
			fmt.Sprintf("%.1f", row.GrossProfit),
			fmt.Sprintf("%.1f", row.OperatingIncome),
			fmt.Sprintf("%.1f", row.NetIncome),
			fmtPtr(row.EPS, "%.2f"),
			fmtPct(row.RevenueYoYPct),
		})
	}
	t.SetStyle(table.StyleLight)
	t.Render()
}

func dcfCmd() *cobra.Command {
	var (
		baseFCF        float64
		baseYear       int
		years          int
		discountRate   float64
		startGrowth    float64
		terminalGrowth float64
		cash           float64
		debt           float64
		shares         float64
		price          float64
		ticker         string
		markdown       bool
	)

	cmd := &cobra.Command{
		Use:   "dcf",
		Short: "Run a two-stage DCF from explicit inputs",
		RunE: func(cmd *cobra.Command, args []string) error {
			input := dcf.Input{
				BaseFCF:      baseFCF,
				BaseYear:     baseYear,
				Years:        years,
				DiscountRate: discountRate,
				CashAndSTI:   cash,
				TotalDebt:    debt,
			}
			if cmd.Flags().Changed("start-growth") {
				input.StartGrowth = &startGrowth
			}
			if cmd.Flags().Changed("terminal-growth") {
				input.TerminalGrowth = &terminalGrowth
			}
			if shares > 0 {
				input.SharesDiluted = &shares
			}
			if price > 0 {
				input.Price = &price
			}

			res, err := input.Valuate()
			if err != nil {
				return err
			}

			if markdown {
				fmt.Println(report.ValuationReport(ticker, res))
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"Year", "FCF", "Growth", "DF", "PV"})
			for _, row := range res.Projections {
				t.AppendRow(table.Row{
					row.Year,
					fmt.Sprintf("%.1f", row.FCF),
					fmt.Sprintf("%.2f%%", row.Growth*100),
					fmt.Sprintf("%.4f", row.DiscountFactor),
					fmt.Sprintf("%.1f", row.PVFCF),
				})
			}
			t.SetStyle(table.StyleLight)
			t.Render()

			fmt.Printf("\nTerminal value (PV): %.1f\n", res.TerminalValuePV)
			fmt.Printf("Enterprise value:    %.1f\n", res.EnterpriseValue)
			fmt.Printf("Equity value:        %.1f\n", res.EquityValue)
			fmt.Printf("Fair value / share:  %s\n", fmtPtr(res.FairValuePerShare, "%.2f"))
			fmt.Printf("Upside vs price:     %s\n", fmtPct(res.UpsideVsPrice))
			return nil
		},
	}

	cmd.Flags().Float64Var(&baseFCF, "base-fcf", 0, "trailing free cash flow")
	cmd.Flags().IntVar(&baseYear, "base-year", 0, "fiscal year the base FCF belongs to")
	cmd.Flags().IntVar(&years, "years", 0, "explicit forecast years (0 = default 10)")
	cmd.Flags().Float64Var(&discountRate, "discount-rate", 0, "discount rate (0 = default 0.10)")
	cmd.Flags().Float64Var(&startGrowth, "start-growth", 0, "first-year growth rate")
	cmd.Flags().Float64Var(&terminalGrowth, "terminal-growth", 0, "perpetuity growth (default 0.025; 0 is honored when set)")
	cmd.Flags().Float64Var(&cash, "cash", 0, "cash and short-term investments")
	cmd.Flags().Float64Var(&debt, "debt", 0, "total debt")
	cmd.Flags().Float64Var(&shares, "shares", 0, "diluted shares outstanding")
	cmd.Flags().Float64Var(&price, "price", 0, "current share price")
	cmd.Flags().StringVar(&ticker, "ticker", "", "ticker label for report output")
	cmd.Flags().BoolVar(&markdown, "markdown", false, "emit a Markdown report instead of tables")
	cmd.MarkFlagRequired("base-fcf")
	return cmd
}

func fmtPtr(v *float64, format string) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf(format, *v)
}

func fmtPct(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", *v*100)
}
