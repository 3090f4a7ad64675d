package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"carbon-scribe/emissions-forecast/internal/forecast"
)

var (
	runInput    string
	runHorizon  int
	runSeed     uint64
	runNoJitter bool
	runFormat   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Forecast emissions from a data file",
	RunE: func(cmd *cobra.Command, args []string) error {
		service, _, err := newService()
		if err != nil {
			return err
		}

		observations, err := loadObservations(runInput)
		if err != nil {
			return err
		}

		req := &forecast.RunRequest{
			Observations: observations,
			Horizon:      runHorizon,
		}
		if cmd.Flags().Changed("seed") {
			req.Seed = &runSeed
		}
		if runNoJitter {
			jitter := false
			req.Jitter = &jitter
		}

		result, err := service.Run(cmd.Context(), req)
		if err != nil {
			return err
		}

		return writeResult(cmd.OutOrStdout(), runFormat, result)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&runInput, "input", "i", "", "CSV, Excel or JSON file of monthly observations")
	runCmd.Flags().IntVar(&runHorizon, "horizon", 0, "Months to forecast (defaults to the configured horizon)")
	runCmd.Flags().Uint64Var(&runSeed, "seed", 0, "Seed for reproducible noise")
	runCmd.Flags().BoolVar(&runNoJitter, "no-jitter", false, "Disable forecast noise")
	runCmd.Flags().StringVarP(&runFormat, "format", "f", "table", "Output format: table, json or yaml")
	runCmd.MarkFlagRequired("input")
}

func writeResult(w io.Writer, format string, result *forecast.RunResult) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "yaml":
		return writeYAML(w, result)
	case "table", "":
		return writeTable(w, result)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// writeYAML renders v as block YAML using its JSON field names and order
func writeYAML(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	blockStyle(&node)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return enc.Close()
}

func blockStyle(n *yaml.Node) {
	n.Style &^= yaml.FlowStyle | yaml.DoubleQuotedStyle
	for _, child := range n.Content {
		blockStyle(child)
	}
}

func writeTable(w io.Writer, result *forecast.RunResult) error {
	fmt.Fprintf(w, "Months of history: %d   Growth rate: %.2f%%\n\n", len(result.Aggregates), result.GrowthRate*100)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MONTH\tPREDICTED\tLOWER\tUPPER\tOPTIMIZED")
	for i, p := range result.Forecast {
		optimized := ""
		if i < len(result.OptimizedForecast) {
			optimized = fmt.Sprintf("%.2f", result.OptimizedForecast[i].PredictedEmissions)
		}
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t%s\n",
			p.Date.Format(forecast.MonthLabelLayout), p.PredictedEmissions, p.LowerBound, p.UpperBound, optimized)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nPotential savings: %.2f tons CO2e (%.1f%%)\n", result.Savings.Total, result.Savings.Percentage)

	if len(result.Suggestions) > 0 {
		fmt.Fprintf(w, "\nTop measures (%s impacts):\n", result.ImpactSource)
		for i, s := range result.Suggestions {
			if i == 3 {
				break
			}
			fmt.Fprintf(w, "  %d. %s: %s\n", i+1, s.Action, s.Description)
		}
	}
	for _, r := range result.Recommendations {
		fmt.Fprintf(w, "  - %s\n", r)
	}

	if len(result.Backtest.AlignedPairs) > 0 {
		fmt.Fprintf(w, "\nBacktest quality: %.0f/100 (%s)\n", result.Backtest.QualityScore, result.Assessment.Overall)
	}
	return nil
}
