package ingestion

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/xuri/excelize/v2"

	"carbon-scribe/emissions-forecast/internal/forecast"
)

var (
	// ErrUnsupportedFormat is returned for files that are not CSV, Excel or JSON
	ErrUnsupportedFormat = errors.New("unsupported file format, upload a CSV, Excel or JSON file")
	// ErrNoRows is returned when a source holds no data rows
	ErrNoRows = errors.New("no data rows found")
	// ErrNoDateColumn is returned when no column can serve as the date
	ErrNoDateColumn = errors.New("no date column found")
)

// Format identifies the encoding of an upload
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

// Table is a decoded upload before column mapping
type Table struct {
	Format  Format
	Headers []string
	Rows    [][]any
}

// FormatFromName infers the format from a file name's extension
func FormatFromName(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV, nil
	case ".xls", ".xlsx":
		return FormatXLSX, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// ReadFile decodes r according to the extension of name
func ReadFile(name string, r io.Reader) (*Table, error) {
	format, err := FormatFromName(name)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatCSV:
		return ReadCSV(r)
	case FormatXLSX:
		return ReadXLSX(r)
	default:
		return ReadJSON(r)
	}
}

// ReadCSV decodes a CSV stream whose first record is the header
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(records) < 2 {
		return nil, ErrNoRows
	}

	return newTable(FormatCSV, records[0], records[1:]), nil
}

// ReadXLSX decodes the first sheet of an Excel workbook. Cells are read raw
// so dates arrive as serial numbers.
func ReadXLSX(r io.Reader) (*Table, error) {
	file, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoRows
	}

	rows, err := file.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rows) < 2 {
		return nil, ErrNoRows
	}

	return newTable(FormatXLSX, rows[0], rows[1:]), nil
}

// ReadJSON decodes either an array of row objects or an object with a
// "data" array
func ReadJSON(r io.Reader) (*Table, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read json: %w", err)
	}

	var rows []map[string]any
	if err := json.Unmarshal(body, &rows); err != nil {
		var wrapped struct {
			Data []map[string]any `json:"data"`
		}
		if err2 := json.Unmarshal(body, &wrapped); err2 != nil {
			return nil, fmt.Errorf("failed to decode json rows: %w", err)
		}
		rows = wrapped.Data
	}

	return TableFromRecords(FormatJSON, rows)
}

// TableFromRecords builds a Table from keyed rows. Headers follow the order
// in which keys first appear, sorted within each row.
func TableFromRecords(format Format, records []map[string]any) (*Table, error) {
	if len(records) == 0 {
		return nil, ErrNoRows
	}

	var headers []string
	index := make(map[string]int)
	for _, rec := range records {
		keys := make([]string, 0, len(rec))
		for k := range rec {
			if _, ok := index[k]; !ok {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			index[k] = len(headers)
			headers = append(headers, k)
		}
	}

	rows := make([][]any, len(records))
	for i, rec := range records {
		row := make([]any, len(headers))
		for k, v := range rec {
			row[index[k]] = v
		}
		rows[i] = row
	}

	return &Table{Format: format, Headers: headers, Rows: rows}, nil
}

func newTable(format Format, headers []string, records [][]string) *Table {
	rows := make([][]any, 0, len(records))
	for _, rec := range records {
		if isBlankRecord(rec) {
			continue
		}
		row := make([]any, len(headers))
		for i := range headers {
			if i < len(rec) {
				row[i] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return &Table{Format: format, Headers: headers, Rows: rows}
}

func isBlankRecord(rec []string) bool {
	for _, cell := range rec {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// excelSerialDate converts a raw Excel serial cell into a date string
func excelSerialDate(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	serial, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || serial <= 0 {
		return "", false
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return "", false
	}
	return t.Format(forecast.DateLayout), true
}
