package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"carbon-scribe/emissions-forecast/internal/forecast"
)

// CSVOptions configures CSV export behavior
type CSVOptions struct {
	Delimiter     rune   `json:"delimiter" yaml:"delimiter"`
	UseCRLF       bool   `json:"use_crlf" yaml:"use_crlf"`
	IncludeHeader bool   `json:"include_header" yaml:"include_header"`
	DateFormat    string `json:"date_format" yaml:"date_format"`
	NumberFormat  string `json:"number_format" yaml:"number_format"` // e.g. "%.2f"
}

// DefaultCSVOptions returns default CSV export options
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{
		Delimiter:     ',',
		IncludeHeader: true,
		DateFormat:    forecast.DateLayout,
	}
}

// CSVExporter streams forecast points as delimited text
type CSVExporter struct {
	writer  *csv.Writer
	options CSVOptions
	started bool
}

// NewCSVExporter creates a new CSV exporter
func NewCSVExporter(w io.Writer, options CSVOptions) *CSVExporter {
	writer := csv.NewWriter(w)
	if options.Delimiter != 0 {
		writer.Comma = options.Delimiter
	}
	writer.UseCRLF = options.UseCRLF
	if options.DateFormat == "" {
		options.DateFormat = forecast.DateLayout
	}

	return &CSVExporter{writer: writer, options: options}
}

// WritePoints appends one record per point, preceded by the header on first use
func (e *CSVExporter) WritePoints(points []forecast.ForecastPoint) error {
	if !e.started {
		e.started = true
		if e.options.IncludeHeader {
			if err := e.writer.Write(ForecastColumns); err != nil {
				return fmt.Errorf("failed to write header: %w", err)
			}
		}
	}

	for _, p := range points {
		record := []string{
			p.Date.Format(e.options.DateFormat),
			e.number(p.PredictedEmissions),
			e.number(p.LowerBound),
			e.number(p.UpperBound),
		}
		if err := e.writer.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	return nil
}

// Flush writes any buffered data to the underlying writer
func (e *CSVExporter) Flush() error {
	e.writer.Flush()
	return e.writer.Error()
}

func (e *CSVExporter) number(v float64) string {
	if e.options.NumberFormat != "" {
		return fmt.Sprintf(e.options.NumberFormat, v)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ForecastCSV writes points as CSV with the workbook's columns
func ForecastCSV(w io.Writer, points []forecast.ForecastPoint, options CSVOptions) error {
	exporter := NewCSVExporter(w, options)
	if err := exporter.WritePoints(points); err != nil {
		return err
	}
	return exporter.Flush()
}
