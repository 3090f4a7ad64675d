package ingestion

import (
	"io"
	"strings"

	"carbon-scribe/emissions-forecast/internal/forecast"
)

// Dataset is an upload mapped onto canonical columns
type Dataset struct {
	Rows     []map[string]any `json:"rows"`
	Mappings []ColumnMapping  `json:"mappings"`
	Unmapped []string         `json:"unmapped,omitempty"`
	Filled   map[string]int   `json:"filled,omitempty"`
}

// Options controls how a Table becomes a Dataset
type Options struct {
	// FillMissing replaces blank factor cells with the column mean
	FillMissing bool
}

// DefaultOptions returns the upload defaults
func DefaultOptions() Options {
	return Options{FillMissing: true}
}

// Observations normalizes the dataset rows
func (d *Dataset) Observations() []forecast.Observation {
	return forecast.NormalizeRecords(d.Rows)
}

// Parse maps a table onto canonical columns, converting waste to tons and
// water to liters. When no header maps to the date, the first column is used
// if it is not already claimed.
func Parse(table *Table, opts Options) (*Dataset, error) {
	if table == nil || len(table.Rows) == 0 {
		return nil, ErrNoRows
	}

	mappings, unmapped := MapColumns(table.Headers)
	mappings, unmapped, err := ensureDateColumn(table.Headers, mappings, unmapped)
	if err != nil {
		return nil, err
	}

	bySource := make(map[string]ColumnMapping, len(mappings))
	for _, m := range mappings {
		bySource[m.Source] = m
	}

	rows := make([]map[string]any, 0, len(table.Rows))
	for _, cells := range table.Rows {
		row := make(map[string]any, len(mappings))
		for i, header := range table.Headers {
			m, ok := bySource[header]
			if !ok || i >= len(cells) {
				continue
			}
			if v, present := convertCell(table.Format, m, cells[i]); present {
				row[m.Target] = v
			}
		}
		rows = append(rows, row)
	}

	dataset := &Dataset{
		Rows:     rows,
		Mappings: mappings,
		Unmapped: unmapped,
	}
	if opts.FillMissing {
		dataset.Filled = FillMissing(rows, factorColumns()...)
	}
	return dataset, nil
}

// Load reads, maps and normalizes an upload in one step
func Load(name string, r io.Reader, opts Options) (*Dataset, error) {
	table, err := ReadFile(name, r)
	if err != nil {
		return nil, err
	}
	return Parse(table, opts)
}

// FillMissing replaces absent or blank cells in the given columns with the
// mean of the present values. It returns the number of cells filled per
// column. Columns with no values at all are left untouched.
func FillMissing(rows []map[string]any, columns ...string) map[string]int {
	filled := make(map[string]int)
	for _, col := range columns {
		sum, count := 0.0, 0
		for _, row := range rows {
			if v, ok := row[col]; ok && !isBlank(v) {
				sum += forecast.ParseNumeric(v)
				count++
			}
		}
		if count == 0 || count == len(rows) {
			continue
		}

		mean := sum / float64(count)
		for _, row := range rows {
			if v, ok := row[col]; !ok || isBlank(v) {
				row[col] = mean
				filled[col]++
			}
		}
	}
	return filled
}

func factorColumns() []string {
	cols := make([]string, len(forecast.FactorFields))
	for i, f := range forecast.FactorFields {
		cols[i] = string(f)
	}
	return cols
}

func ensureDateColumn(headers []string, mappings []ColumnMapping, unmapped []string) ([]ColumnMapping, []string, error) {
	for _, m := range mappings {
		if m.Target == ColumnDate {
			return mappings, unmapped, nil
		}
	}
	if len(headers) == 0 {
		return nil, nil, ErrNoDateColumn
	}

	first := headers[0]
	for _, m := range mappings {
		if m.Source == first {
			return nil, nil, ErrNoDateColumn
		}
	}

	rest := make([]string, 0, len(unmapped))
	for _, h := range unmapped {
		if h != first {
			rest = append(rest, h)
		}
	}
	return append([]ColumnMapping{{Source: first, Target: ColumnDate}}, mappings...), rest, nil
}

// convertCell returns the canonical value of a cell and whether it was present
func convertCell(format Format, m ColumnMapping, cell any) (any, bool) {
	if isBlank(cell) {
		return nil, false
	}

	switch m.Target {
	case ColumnDate:
		if format == FormatXLSX {
			if date, ok := excelSerialDate(cell); ok {
				return date, true
			}
		}
		return cell, true
	case ColumnID:
		return cell, true
	default:
		return convertUnit(forecast.ParseNumeric(cell), m.Unit), true
	}
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}
