package cmd

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"carbon-scribe/emissions-forecast/internal/forecast"
	"carbon-scribe/emissions-forecast/internal/ingestion"
)

var (
	sampleRows int
	sampleSeed uint64
	sampleOut  string
)

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Generate synthetic monthly operational data",
	RunE: func(cmd *cobra.Command, args []string) error {
		observations := ingestion.GenerateSample(sampleSeed, sampleRows)

		w := cmd.OutOrStdout()
		asJSON := false
		if sampleOut != "" {
			f, err := os.Create(sampleOut)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", sampleOut, err)
			}
			defer f.Close()
			w = f
			asJSON = strings.EqualFold(filepath.Ext(sampleOut), ".json")
		}

		if asJSON {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(observations)
		}
		return writeObservationsCSV(w, observations)
	},
}

func init() {
	rootCmd.AddCommand(sampleCmd)
	sampleCmd.Flags().IntVar(&sampleRows, "rows", ingestion.DefaultSampleRows, "Number of months to generate")
	sampleCmd.Flags().Uint64Var(&sampleSeed, "seed", 42, "Random seed")
	sampleCmd.Flags().StringVarP(&sampleOut, "out", "o", "", "Output file (.csv or .json), stdout when empty")
}

// writeObservationsCSV writes rows with canonical headers so they load back unchanged
func writeObservationsCSV(w io.Writer, observations []forecast.Observation) error {
	cw := csv.NewWriter(w)

	header := []string{"id", "date"}
	for _, f := range forecast.NumericFields {
		header = append(header, string(f))
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, obs := range observations {
		record := []string{obs.ID, obs.Date.Format(forecast.DateLayout)}
		for _, f := range forecast.NumericFields {
			record = append(record, strconv.FormatFloat(obs.Value(f), 'f', -1, 64))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
