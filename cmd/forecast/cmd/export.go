package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"carbon-scribe/emissions-forecast/internal/forecast"
	"carbon-scribe/emissions-forecast/internal/reports/export"
)

var (
	exportInput   string
	exportFormat  string
	exportOut     string
	exportHorizon int
	exportSeed    uint64
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Forecast from a data file and write the result as xlsx, csv or pdf",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := export.ParseFormat(exportFormat)
		if err != nil {
			return err
		}

		service, cfg, err := newService()
		if err != nil {
			return err
		}

		observations, err := loadObservations(exportInput)
		if err != nil {
			return err
		}

		req := &forecast.RunRequest{Observations: observations, Horizon: exportHorizon}
		if cmd.Flags().Changed("seed") {
			req.Seed = &exportSeed
		}
		result, err := service.Run(cmd.Context(), req)
		if err != nil {
			return err
		}

		opts := cfg.ExportOptions()
		out := exportOut
		if out == "" {
			out = format.FileName(opts.FileName)
		}

		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", out, err)
		}
		defer f.Close()

		if err := export.Write(f, format, export.NewReport(result), opts); err != nil {
			return fmt.Errorf("failed to export forecast: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Forecast written to %s\n", out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportInput, "input", "i", "", "CSV, Excel or JSON file of monthly observations")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "xlsx", "Export format: xlsx, csv or pdf")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file, defaults to the configured file name")
	exportCmd.Flags().IntVar(&exportHorizon, "horizon", 0, "Months to forecast (defaults to the configured horizon)")
	exportCmd.Flags().Uint64Var(&exportSeed, "seed", 0, "Seed for reproducible noise")
	exportCmd.MarkFlagRequired("input")
}
