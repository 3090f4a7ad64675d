package cmd

import (
	"fmt"
	"os"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"carbon-scribe/emissions-forecast/internal/forecast"
)

var (
	evaluateInput    string
	evaluateForecast string
	evaluateFormat   string
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score a forecast against observed emissions",
	RunE: func(cmd *cobra.Command, args []string) error {
		service, _, err := newService()
		if err != nil {
			return err
		}

		observations, err := loadObservations(evaluateInput)
		if err != nil {
			return err
		}
		points, err := readForecastFile(evaluateForecast)
		if err != nil {
			return err
		}

		metrics, assessment := service.EvaluateForecast(observations, points)

		w := cmd.OutOrStdout()
		switch evaluateFormat {
		case "json":
			data, err := json.MarshalIndent(map[string]any{
				"metrics":    metrics,
				"assessment": assessment,
			}, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(w, string(data))
			return err
		case "table", "":
			fmt.Fprintf(w, "Aligned months: %d\n", len(metrics.AlignedPairs))
			fmt.Fprintf(w, "MAE:   %.3f (%s)\n", metrics.MAE, assessment.MAE)
			fmt.Fprintf(w, "RMSE:  %.3f (%s)\n", metrics.RMSE, assessment.RMSE)
			fmt.Fprintf(w, "MAPE:  %.2f%% (%s)\n", metrics.MAPE, assessment.MAPE)
			fmt.Fprintf(w, "R2:    %.3f (%s)\n", metrics.R2, assessment.R2)
			fmt.Fprintf(w, "Quality score: %.0f/100\n", metrics.QualityScore)
			fmt.Fprintln(w, assessment.Summary)
			return nil
		default:
			return fmt.Errorf("unknown output format %q", evaluateFormat)
		}
	},
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
	evaluateCmd.Flags().StringVarP(&evaluateInput, "input", "i", "", "CSV, Excel or JSON file of observed emissions")
	evaluateCmd.Flags().StringVar(&evaluateForecast, "forecast", "", "JSON file holding a forecast array or a run result")
	evaluateCmd.Flags().StringVarP(&evaluateFormat, "format", "f", "table", "Output format: table or json")
	evaluateCmd.MarkFlagRequired("input")
	evaluateCmd.MarkFlagRequired("forecast")
}

// readForecastFile accepts a bare array of points or an object with a "forecast" array
func readForecastFile(path string) ([]forecast.ForecastPoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var rows []map[string]any
	if err := json.Unmarshal(data, &rows); err != nil {
		var wrapped struct {
			Forecast []map[string]any `json:"forecast"`
		}
		if err2 := json.Unmarshal(data, &wrapped); err2 != nil {
			return nil, fmt.Errorf("failed to decode forecast: %w", err)
		}
		rows = wrapped.Forecast
	}

	points := forecast.NormalizeForecast(rows)
	if len(points) == 0 {
		return nil, fmt.Errorf("no forecast points found in %s", path)
	}
	return points, nil
}
