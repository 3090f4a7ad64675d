package ingestion

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestFormatFromName(t *testing.T) {
	for name, want := range map[string]Format{
		"data.csv":  FormatCSV,
		"DATA.XLSX": FormatXLSX,
		"old.xls":   FormatXLSX,
		"rows.json": FormatJSON,
	} {
		got, err := FormatFromName(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := FormatFromName("report.pdf")
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestReadCSV(t *testing.T) {
	input := "date,energy_kwh,emissions\n2023-01-01,5000,8.2\n,,\n2023-02-01,4800\n"

	table, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, FormatCSV, table.Format)
	assert.Equal(t, []string{"date", "energy_kwh", "emissions"}, table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []any{"2023-02-01", "4800", nil}, table.Rows[1])
}

func TestReadCSV_HeaderOnly(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("date,emissions\n"))

	assert.True(t, errors.Is(err, ErrNoRows))
}

func TestReadJSON(t *testing.T) {
	bare, err := ReadJSON(strings.NewReader(`[{"date":"2023-01-01","emissions":8.2},{"date":"2023-02-01","emissions":7.8,"fuel":10}]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"date", "emissions", "fuel"}, bare.Headers)
	assert.Len(t, bare.Rows, 2)
	assert.Nil(t, bare.Rows[0][2])

	wrapped, err := ReadJSON(strings.NewReader(`{"data":[{"date":"2023-01-01","emissions":8.2}]}`))
	require.NoError(t, err)
	assert.Len(t, wrapped.Rows, 1)

	_, err = ReadJSON(strings.NewReader(`not json`))
	assert.Error(t, err)

	_, err = ReadJSON(strings.NewReader(`[]`))
	assert.True(t, errors.Is(err, ErrNoRows))
}

func workbook(t *testing.T) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Date", "Energy (kWh)", "Waste (kg)", "Emissions (tons CO2e)"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), 5000, 1500, 8.2}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]interface{}{"2023-02-01", 4800, 1200, 7.8}))

	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	return &buf
}

func TestReadXLSX(t *testing.T) {
	table, err := ReadXLSX(workbook(t))
	require.NoError(t, err)

	assert.Equal(t, FormatXLSX, table.Format)
	assert.Equal(t, "Date", table.Headers[0])
	require.Len(t, table.Rows, 2)
}

func TestLoad_XLSXConvertsSerialDatesAndUnits(t *testing.T) {
	dataset, err := Load("upload.xlsx", workbook(t), DefaultOptions())
	require.NoError(t, err)

	observations := dataset.Observations()
	require.Len(t, observations, 2)
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), observations[0].Date)
	assert.Equal(t, time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC), observations[1].Date)
	assert.InDelta(t, 1.5, observations[0].Waste, 1e-9)
	assert.InDelta(t, 8.2, observations[0].Emissions, 1e-9)
}
