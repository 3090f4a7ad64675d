package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"carbon-scribe/emissions-forecast/internal/forecast"
)

// ExcelExporter writes keyed rows to a single styled sheet
type ExcelExporter struct {
	file      *excelize.File
	options   ExcelOptions
	dataStyle int
	dateStyle int
}

// ExcelOptions configures Excel export behavior
type ExcelOptions struct {
	SheetName     string             `json:"sheet_name" yaml:"sheet_name"`
	IncludeHeader bool               `json:"include_header" yaml:"include_header"`
	FreezeHeader  bool               `json:"freeze_header" yaml:"freeze_header"`
	NumberFormat  string             `json:"number_format" yaml:"number_format"`
	DateFormat    string             `json:"date_format" yaml:"date_format"`
	HeaderStyle   *ExcelStyleConfig  `json:"header_style,omitempty" yaml:"header_style,omitempty"`
	ColumnWidths  map[string]float64 `json:"column_widths,omitempty" yaml:"column_widths,omitempty"`
}

// ExcelStyleConfig defines style for cells
type ExcelStyleConfig struct {
	FontBold  bool   `json:"font_bold" yaml:"font_bold"`
	FillColor string `json:"fill_color" yaml:"fill_color"`
	Alignment string `json:"alignment" yaml:"alignment"` // left, center, right
	Border    bool   `json:"border" yaml:"border"`
	WrapText  bool   `json:"wrap_text" yaml:"wrap_text"`
}

// DefaultExcelOptions returns the forecast workbook layout
func DefaultExcelOptions() ExcelOptions {
	return ExcelOptions{
		SheetName:     "Forecast",
		IncludeHeader: true,
		FreezeHeader:  true,
		NumberFormat:  "0.00",
		DateFormat:    "yyyy-mm-dd",
		HeaderStyle: &ExcelStyleConfig{
			FontBold:  true,
			FillColor: "D7E4BC",
			Alignment: "left",
			Border:    true,
			WrapText:  true,
		},
		ColumnWidths: map[string]float64{
			ColumnDate:       12,
			ColumnPredicted:  15,
			ColumnLowerBound: 15,
			ColumnUpperBound: 15,
		},
	}
}

// NewExcelExporter creates a new Excel exporter
func NewExcelExporter(options ExcelOptions) (*ExcelExporter, error) {
	if options.SheetName == "" {
		options.SheetName = DefaultExcelOptions().SheetName
	}

	file := excelize.NewFile()
	if err := file.SetSheetName("Sheet1", options.SheetName); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	e := &ExcelExporter{file: file, options: options}

	var err error
	if options.NumberFormat != "" {
		numFmt := options.NumberFormat
		if e.dataStyle, err = file.NewStyle(&excelize.Style{CustomNumFmt: &numFmt}); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to create number style: %w", err)
		}
	}
	if options.DateFormat != "" {
		dateFmt := options.DateFormat
		if e.dateStyle, err = file.NewStyle(&excelize.Style{CustomNumFmt: &dateFmt}); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to create date style: %w", err)
		}
	}

	return e, nil
}

// WriteHeader writes the header row with styling
func (e *ExcelExporter) WriteHeader(columns []string) error {
	if !e.options.IncludeHeader {
		return nil
	}

	sheetName := e.options.SheetName

	headerStyleID := 0
	if e.options.HeaderStyle != nil {
		style, err := e.createStyle(e.options.HeaderStyle)
		if err != nil {
			return fmt.Errorf("failed to create header style: %w", err)
		}
		headerStyleID = style
	}

	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := e.file.SetCellValue(sheetName, cell, col); err != nil {
			return fmt.Errorf("failed to write header %q: %w", col, err)
		}
		if headerStyleID > 0 {
			if err := e.file.SetCellStyle(sheetName, cell, cell, headerStyleID); err != nil {
				return fmt.Errorf("failed to style header %q: %w", col, err)
			}
		}
	}

	if e.options.FreezeHeader {
		return e.file.SetPanes(sheetName, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		})
	}

	return nil
}

// WriteRows writes data rows below the header and applies column widths
func (e *ExcelExporter) WriteRows(rows []map[string]interface{}, columns []string) error {
	sheetName := e.options.SheetName
	startRow := 1
	if e.options.IncludeHeader {
		startRow = 2
	}

	for rowIdx, row := range rows {
		for colIdx, colName := range columns {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, startRow+rowIdx)
			if err != nil {
				return err
			}
			if err := e.setCellValue(sheetName, cell, row[colName]); err != nil {
				return fmt.Errorf("failed to set cell value: %w", err)
			}
		}
	}

	for i, colName := range columns {
		width, ok := e.options.ColumnWidths[colName]
		if !ok {
			continue
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := e.file.SetColWidth(sheetName, col, col, width); err != nil {
			return fmt.Errorf("failed to set width of column %s: %w", col, err)
		}
	}

	return nil
}

// WriteTo writes the Excel file to a writer
func (e *ExcelExporter) WriteTo(w io.Writer) error {
	return e.file.Write(w)
}

// SaveAs saves the Excel file to a path
func (e *ExcelExporter) SaveAs(path string) error {
	return e.file.SaveAs(path)
}

// Close closes the Excel file
func (e *ExcelExporter) Close() error {
	return e.file.Close()
}

// createStyle creates an Excel style from config
func (e *ExcelExporter) createStyle(config *ExcelStyleConfig) (int, error) {
	style := &excelize.Style{
		Font: &excelize.Font{Bold: config.FontBold},
	}

	if config.FillColor != "" {
		style.Fill = excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{config.FillColor},
		}
	}

	if config.Alignment != "" || config.WrapText {
		style.Alignment = &excelize.Alignment{
			Horizontal: config.Alignment,
			Vertical:   "top",
			WrapText:   config.WrapText,
		}
	}

	if config.Border {
		style.Border = []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		}
	}

	return e.file.NewStyle(style)
}

// setCellValue sets a cell value with the date or number style
func (e *ExcelExporter) setCellValue(sheet, cell string, val interface{}) error {
	switch v := val.(type) {
	case nil:
		return e.file.SetCellValue(sheet, cell, "")
	case time.Time:
		if v.IsZero() {
			return e.file.SetCellValue(sheet, cell, "")
		}
		if err := e.file.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
		if e.dateStyle > 0 {
			return e.file.SetCellStyle(sheet, cell, cell, e.dateStyle)
		}
	case float64:
		if err := e.file.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
		if e.dataStyle > 0 {
			return e.file.SetCellStyle(sheet, cell, cell, e.dataStyle)
		}
	default:
		return e.file.SetCellValue(sheet, cell, v)
	}
	return nil
}

// ForecastWorkbook writes points as a single-sheet workbook
func ForecastWorkbook(w io.Writer, points []forecast.ForecastPoint, options ExcelOptions) error {
	exporter, err := NewExcelExporter(options)
	if err != nil {
		return err
	}
	defer exporter.Close()

	if err := exporter.WriteHeader(ForecastColumns); err != nil {
		return err
	}
	if err := exporter.WriteRows(ForecastRows(points), ForecastColumns); err != nil {
		return err
	}
	if err := exporter.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
