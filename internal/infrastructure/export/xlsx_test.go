package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"ledgertree/internal/core/types"
	"ledgertree/internal/domain/reports"
)

func sampleReport() *reports.Report {
	return &reports.Report{
		Name:     "purchase-analytics",
		Title:    "Purchase Analytics",
		FromDate: "2024-01-01",
		ToDate:   "2024-02-29",
		Columns: []reports.Column{
			{Fieldname: "item_group", Label: "Item Group", Fieldtype: "Link", Width: 250},
			{Fieldname: "jan_2024", Label: "Jan 2024", Fieldtype: "Currency", Width: 120},
			{Fieldname: "feb_2024", Label: "Feb 2024", Fieldtype: "Currency", Width: 120},
			{Fieldname: "total", Label: "Total", Fieldtype: "Currency", Width: 120},
		},
		Rows: []reports.Row{
			{
				Node: "All Item Groups", Indent: 0, IsGroup: true,
				Values: map[string]types.Money{"jan_2024": types.MustMoney("110"), "feb_2024": types.MustMoney("40.25")},
				Total:  types.MustMoney("150.25"),
			},
			{
				Node: "Steel", Parent: "All Item Groups", Indent: 1,
				Values: map[string]types.Money{"jan_2024": types.MustMoney("110"), "feb_2024": types.Zero()},
				Total:  types.MustMoney("110"),
			},
		},
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleReport()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	assert.Equal(t, "Purchase Analytics", sheet)

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Item Group", "Jan 2024", "Feb 2024", "Total"}, rows[0])
	assert.Equal(t, []string{"All Item Groups", "110", "40.25", "150.25"}, rows[1])
	assert.Equal(t, []string{"Steel", "110", "0", "110"}, rows[2])

	styleID, err := f.GetCellStyle(sheet, "A3")
	require.NoError(t, err)
	style, err := f.GetStyle(styleID)
	require.NoError(t, err)
	require.NotNil(t, style.Alignment)
	assert.Equal(t, 1, style.Alignment.Indent)
}

func TestWriteXLSX_LongTitleIsTruncated(t *testing.T) {
	rep := sampleReport()
	rep.Title = "Consumption By Cost Center And Item Group Hierarchy"

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, rep))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	assert.Len(t, f.GetSheetName(0), 31)
}

func TestXLSXFilename(t *testing.T) {
	assert.Equal(t, "purchase-analytics_2024-01-01_2024-02-29.xlsx", XLSXFilename(sampleReport()))
	assert.Equal(t, "costcenter-consumption.xlsx", XLSXFilename(&reports.Report{Name: "costcenter-consumption"}))
}
