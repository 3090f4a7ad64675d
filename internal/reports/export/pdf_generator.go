package export

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"

	"carbon-scribe/emissions-forecast/internal/forecast"
)

// PDFGenerator generates PDF forecast reports
type PDFGenerator struct {
	pdf     *gofpdf.Fpdf
	options PDFOptions
}

// PDFOptions configures PDF generation
type PDFOptions struct {
	PageSize       string     `json:"page_size" yaml:"page_size"`     // A4, Letter, Legal
	Orientation    string     `json:"orientation" yaml:"orientation"` // portrait, landscape
	Title          string     `json:"title" yaml:"title"`
	DateFormat     string     `json:"date_format" yaml:"date_format"`
	IncludePageNum bool       `json:"include_page_num" yaml:"include_page_num"`
	HeaderColor    PDFColor   `json:"header_color" yaml:"header_color"`
	AlternateRows  bool       `json:"alternate_rows" yaml:"alternate_rows"`
	AlternateColor PDFColor   `json:"alternate_color" yaml:"alternate_color"`
	FontFamily     string     `json:"font_family" yaml:"font_family"`
	FontSize       float64    `json:"font_size" yaml:"font_size"`
	HeaderFontSize float64    `json:"header_font_size" yaml:"header_font_size"`
	TitleFontSize  float64    `json:"title_font_size" yaml:"title_font_size"`
	Margins        PDFMargins `json:"margins" yaml:"margins"`
}

// PDFColor represents an RGB color
type PDFColor struct {
	R int `json:"r" yaml:"r"`
	G int `json:"g" yaml:"g"`
	B int `json:"b" yaml:"b"`
}

// PDFMargins represents page margins
type PDFMargins struct {
	Left   float64 `json:"left" yaml:"left"`
	Right  float64 `json:"right" yaml:"right"`
	Top    float64 `json:"top" yaml:"top"`
	Bottom float64 `json:"bottom" yaml:"bottom"`
}

// DefaultPDFOptions returns default PDF options
func DefaultPDFOptions() PDFOptions {
	return PDFOptions{
		PageSize:       "A4",
		Orientation:    "portrait",
		Title:          "Carbon Emissions Forecast",
		DateFormat:     forecast.DateLayout,
		IncludePageNum: true,
		HeaderColor:    PDFColor{R: 215, G: 228, B: 188},
		AlternateRows:  true,
		AlternateColor: PDFColor{R: 242, G: 242, B: 242},
		FontFamily:     "Arial",
		FontSize:       10,
		HeaderFontSize: 11,
		TitleFontSize:  16,
		Margins: PDFMargins{
			Left:   15,
			Right:  15,
			Top:    20,
			Bottom: 20,
		},
	}
}

// NewPDFGenerator creates a new PDF generator
func NewPDFGenerator(options PDFOptions) *PDFGenerator {
	orientation := "P"
	if options.Orientation == "landscape" {
		orientation = "L"
	}

	pdf := gofpdf.New(orientation, "mm", options.PageSize, "")
	pdf.SetMargins(options.Margins.Left, options.Margins.Top, options.Margins.Right)
	pdf.SetAutoPageBreak(false, options.Margins.Bottom)

	g := &PDFGenerator{
		pdf:     pdf,
		options: options,
	}
	g.setFooter()
	return g
}

// SummaryItem is one labelled line of the summary section
type SummaryItem struct {
	Label string
	Value string
}

// GenerateForecastReport renders the summary section and the forecast table
func (g *PDFGenerator) GenerateForecastReport(report *Report) error {
	if report == nil {
		return fmt.Errorf("report is required")
	}

	title := report.Title
	if title == "" {
		title = g.options.Title
	}

	g.pdf.AddPage()
	g.addTitle(title)
	g.addDate(report.GeneratedAt)
	g.pdf.Ln(5)

	g.AddSummarySection("Summary", forecastSummary(report))
	g.pdf.Ln(8)

	labels := []string{"Date", "Predicted", "Lower Bound", "Upper Bound"}
	rows := ForecastRows(report.Points)
	widths := g.calculateColumnWidths(ForecastColumns, labels, rows)

	g.addTableHeader(labels, widths)
	g.addTableData(ForecastColumns, labels, rows, widths)

	return g.pdf.Error()
}

func forecastSummary(report *Report) []SummaryItem {
	variant := "Baseline"
	if report.Optimized {
		variant = "Optimized"
	}
	items := []SummaryItem{
		{Label: "Forecast", Value: variant},
		{Label: "Months", Value: fmt.Sprintf("%d", len(report.Points))},
	}
	if report.GrowthRate != nil {
		items = append(items, SummaryItem{Label: "Growth Rate", Value: fmt.Sprintf("%.2f%%", *report.GrowthRate*100)})
	}
	if report.Savings != nil {
		items = append(items,
			SummaryItem{Label: "Potential Savings", Value: fmt.Sprintf("%.2f tons CO2e", report.Savings.Total)},
			SummaryItem{Label: "Savings Percentage", Value: fmt.Sprintf("%.1f%%", report.Savings.Percentage)},
		)
	}
	if report.QualityScore != nil {
		items = append(items, SummaryItem{Label: "Quality Score", Value: fmt.Sprintf("%.0f / 100", *report.QualityScore)})
	}
	if report.Assessment != nil && report.Assessment.Summary != "" {
		items = append(items, SummaryItem{Label: "Assessment", Value: report.Assessment.Summary})
	}
	return items
}

// addTitle adds the report title
func (g *PDFGenerator) addTitle(title string) {
	g.pdf.SetFont(g.options.FontFamily, "B", g.options.TitleFontSize)
	g.pdf.SetTextColor(0, 0, 0)
	g.pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
}

// addDate adds the report generation date
func (g *PDFGenerator) addDate(generated time.Time) {
	if generated.IsZero() {
		generated = time.Now()
	}
	g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize-1)
	g.pdf.SetTextColor(128, 128, 128)
	dateStr := fmt.Sprintf("Generated: %s", generated.Format(g.options.DateFormat))
	g.pdf.CellFormat(0, 6, dateStr, "", 1, "R", false, 0, "")
}

// calculateColumnWidths sizes columns to their content, scaled to fit the page
func (g *PDFGenerator) calculateColumnWidths(columns []string, labels []string, rows []map[string]interface{}) []float64 {
	pageWidth, _ := g.pdf.GetPageSize()
	availableWidth := pageWidth - g.options.Margins.Left - g.options.Margins.Right

	maxWidths := make([]float64, len(columns))

	g.pdf.SetFont(g.options.FontFamily, "B", g.options.HeaderFontSize)
	for i, label := range labels {
		if width := g.pdf.GetStringWidth(label) + 4; width > maxWidths[i] {
			maxWidths[i] = width
		}
	}

	g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize)
	for _, row := range rows {
		for i, col := range columns {
			if width := g.pdf.GetStringWidth(g.formatValue(row[col])) + 4; width > maxWidths[i] {
				maxWidths[i] = width
			}
		}
	}

	total := 0.0
	for _, w := range maxWidths {
		total += w
	}
	if total == 0 {
		return maxWidths
	}

	// spread the table across the full width
	scale := availableWidth / total
	for i := range maxWidths {
		maxWidths[i] *= scale
	}
	return maxWidths
}

// addTableHeader adds the table header row
func (g *PDFGenerator) addTableHeader(labels []string, widths []float64) {
	g.pdf.SetFont(g.options.FontFamily, "B", g.options.HeaderFontSize)
	g.pdf.SetFillColor(g.options.HeaderColor.R, g.options.HeaderColor.G, g.options.HeaderColor.B)
	g.pdf.SetTextColor(0, 0, 0)

	for i, label := range labels {
		g.pdf.CellFormat(widths[i], 8, label, "1", 0, "C", true, 0, "")
	}
	g.pdf.Ln(-1)
}

// addTableData adds the data rows, repeating the header on each new page
func (g *PDFGenerator) addTableData(columns, labels []string, rows []map[string]interface{}, widths []float64) {
	g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize)
	g.pdf.SetTextColor(0, 0, 0)

	_, pageHeight := g.pdf.GetPageSize()

	for i, row := range rows {
		if g.pdf.GetY()+7 > pageHeight-g.options.Margins.Bottom {
			g.pdf.AddPage()
			g.addTableHeader(labels, widths)
			g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize)
			g.pdf.SetTextColor(0, 0, 0)
		}

		if g.options.AlternateRows && i%2 == 1 {
			g.pdf.SetFillColor(g.options.AlternateColor.R, g.options.AlternateColor.G, g.options.AlternateColor.B)
		} else {
			g.pdf.SetFillColor(255, 255, 255)
		}

		for j, col := range columns {
			align := "R"
			if col == ColumnDate {
				align = "L"
			}
			g.pdf.CellFormat(widths[j], 7, g.formatValue(row[col]), "1", 0, align, true, 0, "")
		}
		g.pdf.Ln(-1)
	}
}

// formatValue formats a value for display
func (g *PDFGenerator) formatValue(val interface{}) string {
	switch v := val.(type) {
	case nil:
		return ""
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.Format(g.options.DateFormat)
	case float64:
		return fmt.Sprintf("%.2f", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// AddSummarySection adds a labelled list of summary items
func (g *PDFGenerator) AddSummarySection(title string, items []SummaryItem) {
	g.pdf.SetFont(g.options.FontFamily, "B", g.options.FontSize+2)
	g.pdf.SetTextColor(0, 0, 0)
	g.pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
	g.pdf.Ln(2)

	for _, item := range items {
		g.pdf.SetFont(g.options.FontFamily, "B", g.options.FontSize)
		g.pdf.CellFormat(50, 6, item.Label+":", "", 0, "L", false, 0, "")
		g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize)
		g.pdf.MultiCell(0, 6, item.Value, "", "L", false)
	}
}

// WriteTo writes the PDF to a writer
func (g *PDFGenerator) WriteTo(w io.Writer) error {
	return g.pdf.Output(w)
}

// OutputToBytes returns the PDF as bytes
func (g *PDFGenerator) OutputToBytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := g.pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// setFooter sets up the page footer
func (g *PDFGenerator) setFooter() {
	g.pdf.SetFooterFunc(func() {
		if !g.options.IncludePageNum {
			return
		}
		g.pdf.SetY(-15)
		g.pdf.SetFont(g.options.FontFamily, "", 8)
		g.pdf.SetTextColor(128, 128, 128)
		g.pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", g.pdf.PageNo()), "", 0, "C", false, 0, "")
	})
}
