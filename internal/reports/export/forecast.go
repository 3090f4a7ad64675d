package export

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"carbon-scribe/emissions-forecast/internal/forecast"
)

// ErrUnsupportedFormat is returned for export formats other than xlsx, csv and pdf
var ErrUnsupportedFormat = errors.New("unsupported export format")

// Format is an export file format
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
	FormatPDF  Format = "pdf"
)

// ParseFormat resolves a format name. An empty name selects xlsx.
func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(name))) {
	case "", FormatXLSX, "excel":
		return FormatXLSX, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatPDF:
		return "application/pdf"
	default:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
}

// FileName swaps the extension of base for the format's own
func (f Format) FileName(base string) string {
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	return base + "." + string(f)
}

// Forecast export columns, in order
const (
	ColumnDate       = "date"
	ColumnPredicted  = "predicted_emissions"
	ColumnLowerBound = "lower_bound"
	ColumnUpperBound = "upper_bound"
)

// ForecastColumns lists the columns of every forecast export
var ForecastColumns = []string{ColumnDate, ColumnPredicted, ColumnLowerBound, ColumnUpperBound}

// SelectForExport returns the optimized forecast when there is one, else the raw forecast
func SelectForExport(raw []forecast.ForecastPoint, optimized []forecast.OptimizedForecastPoint) []forecast.ForecastPoint {
	if len(optimized) == 0 {
		return raw
	}
	points := make([]forecast.ForecastPoint, len(optimized))
	for i, p := range optimized {
		points[i] = forecast.ForecastPoint(p)
	}
	return points
}

// ForecastRows converts points into keyed rows for the exporters
func ForecastRows(points []forecast.ForecastPoint) []map[string]interface{} {
	rows := make([]map[string]interface{}, len(points))
	for i, p := range points {
		rows[i] = map[string]interface{}{
			ColumnDate:       p.Date,
			ColumnPredicted:  p.PredictedEmissions,
			ColumnLowerBound: p.LowerBound,
			ColumnUpperBound: p.UpperBound,
		}
	}
	return rows
}

// Report is a forecast ready to be written in any format. Only the PDF
// renders the summary fields.
type Report struct {
	Title        string
	Points       []forecast.ForecastPoint
	Optimized    bool
	GrowthRate   *float64
	Savings      *forecast.Savings
	QualityScore *float64
	Assessment   *forecast.Assessment
	GeneratedAt  time.Time
}

// NewReport builds a report from a pipeline result, preferring the optimized forecast
func NewReport(result *forecast.RunResult) *Report {
	report := &Report{
		Title:       "Carbon Emissions Forecast",
		Points:      SelectForExport(result.Forecast, result.OptimizedForecast),
		Optimized:   len(result.OptimizedForecast) > 0,
		GrowthRate:  &result.GrowthRate,
		Savings:     &result.Savings,
		GeneratedAt: result.GeneratedAt,
	}
	if len(result.Backtest.AlignedPairs) > 0 {
		report.QualityScore = &result.Backtest.QualityScore
		report.Assessment = &result.Assessment
	}
	return report
}

// Options bundles the per-format settings
type Options struct {
	FileName string       `json:"file_name" yaml:"file_name"`
	Excel    ExcelOptions `json:"excel" yaml:"excel"`
	CSV      CSVOptions   `json:"csv" yaml:"csv"`
	PDF      PDFOptions   `json:"pdf" yaml:"pdf"`
}

// DefaultOptions returns the standard export settings
func DefaultOptions() Options {
	return Options{
		FileName: "carbon_forecast.xlsx",
		Excel:    DefaultExcelOptions(),
		CSV:      DefaultCSVOptions(),
		PDF:      DefaultPDFOptions(),
	}
}

// Write renders the report to w in the given format
func Write(w io.Writer, format Format, report *Report, opts Options) error {
	switch format {
	case FormatXLSX:
		return ForecastWorkbook(w, report.Points, opts.Excel)
	case FormatCSV:
		return ForecastCSV(w, report.Points, opts.CSV)
	case FormatPDF:
		generator := NewPDFGenerator(opts.PDF)
		if err := generator.GenerateForecastReport(report); err != nil {
			return err
		}
		return generator.WriteTo(w)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}
