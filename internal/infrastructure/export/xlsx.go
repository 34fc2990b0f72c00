// Package export renders finished reports into downloadable formats.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"ledgertree/internal/core/types"
	"ledgertree/internal/domain/reports"
)

const (
	// XLSXContentType is the MIME type of WriteXLSX output.
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	maxSheetName = 31
	amountFormat = "#,##0.00"
)

// XLSXFilename suggests a download name for a report.
func XLSXFilename(rep *reports.Report) string {
	name := rep.Name
	if rep.FromDate != "" && rep.ToDate != "" {
		name += "_" + rep.FromDate + "_" + rep.ToDate
	}
	return name + ".xlsx"
}

// WriteXLSX writes the report as a single-sheet workbook: a header row,
// then one row per report row with the tree label indented by depth.
func WriteXLSX(w io.Writer, rep *reports.Report) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := rep.Title
	if sheet == "" {
		sheet = rep.Name
	}
	if len(sheet) > maxSheetName {
		sheet = sheet[:maxSheetName]
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	st, err := newStyles(f)
	if err != nil {
		return err
	}

	for i, col := range rep.Columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, col.Label); err != nil {
			return err
		}
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, name, name, float64(col.Width)/7); err != nil {
			return err
		}
	}
	if len(rep.Columns) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(rep.Columns), 1)
		if err := f.SetCellStyle(sheet, "A1", last, st.header); err != nil {
			return err
		}
	}

	amountCols := rep.AmountColumns()
	for r, row := range rep.Rows {
		line := r + 2
		labelCell, _ := excelize.CoordinatesToCellName(1, line)
		if err := f.SetCellValue(sheet, labelCell, row.Node); err != nil {
			return err
		}
		labelStyle, err := st.label(f, row.Indent, row.IsGroup)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, labelCell, labelCell, labelStyle); err != nil {
			return err
		}

		for c, col := range amountCols {
			if err := setAmount(f, sheet, c+2, line, row.Values[col.Fieldname], st.amount); err != nil {
				return err
			}
		}
		if err := setAmount(f, sheet, len(amountCols)+2, line, row.Total, st.total); err != nil {
			return err
		}
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		XSplit:      1,
		YSplit:      1,
		TopLeftCell: "B2",
		ActivePane:  "bottomRight",
	}); err != nil {
		return fmt.Errorf("freeze panes: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setAmount(f *excelize.File, sheet string, col, line int, v types.Money, style int) error {
	cell, err := excelize.CoordinatesToCellName(col, line)
	if err != nil {
		return err
	}
	if err := f.SetCellFloat(sheet, cell, types.ToFloat(v), -1, 64); err != nil {
		return err
	}
	return f.SetCellStyle(sheet, cell, cell, style)
}

type styles struct {
	header int
	amount int
	total  int
	labels map[[2]int]int // (indent, group) -> style
}

func newStyles(f *excelize.File) (*styles, error) {
	numFmt := amountFormat
	header, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"E0E0E0"}},
		Border: []excelize.Border{{Type: "bottom", Color: "999999", Style: 1}},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	amount, err := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	if err != nil {
		return nil, fmt.Errorf("amount style: %w", err)
	}
	total, err := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt, Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("total style: %w", err)
	}
	return &styles{header: header, amount: amount, total: total, labels: make(map[[2]int]int)}, nil
}

func (s *styles) label(f *excelize.File, indent int, group bool) (int, error) {
	g := 0
	if group {
		g = 1
	}
	key := [2]int{indent, g}
	if id, ok := s.labels[key]; ok {
		return id, nil
	}
	id, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: group},
		Alignment: &excelize.Alignment{Horizontal: "left", Indent: indent},
	})
	if err != nil {
		return 0, fmt.Errorf("label style: %w", err)
	}
	s.labels[key] = id
	return id, nil
}
