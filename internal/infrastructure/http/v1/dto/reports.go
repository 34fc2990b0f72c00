package dto

import (
	"strings"
	"time"

	"ledgertree/internal/core/apperror"
	"ledgertree/internal/core/types"
	"ledgertree/internal/domain/period"
	"ledgertree/internal/domain/reports"
	"ledgertree/internal/domain/rollup"
)

// Response formats for report runs.
const (
	FormatJSON = "json"
	FormatXLSX = "xlsx"
)

// RunReportRequest holds the query parameters of a report run.
type RunReportRequest struct {
	Company          string   `form:"company"`
	FromDate         string   `form:"fromDate"`
	ToDate           string   `form:"toDate"`
	Range            string   `form:"range"`
	Subtree          string   `form:"subtree"`
	Warehouse        string   `form:"warehouse"`
	PaymentType      string   `form:"paymentType"`
	ParentCostCenter string   `form:"parentCostCenter"`
	Include          []string `form:"include"`
	IncludeExpr      string   `form:"includeExpr"`
	DropUnplaced     bool     `form:"dropUnplaced"`
	Format           string   `form:"format"`
}

// ToFilter parses dates (YYYY-MM-DD) and the range name.
func (r RunReportRequest) ToFilter() (reports.Filter, error) {
	f := reports.Filter{
		Company:          r.Company,
		Subtree:          strings.TrimSpace(r.Subtree),
		Warehouse:        strings.TrimSpace(r.Warehouse),
		PaymentType:      strings.TrimSpace(r.PaymentType),
		ParentCostCenter: strings.TrimSpace(r.ParentCostCenter),
		IncludeExpr:      strings.TrimSpace(r.IncludeExpr),
		DropUnplaced:     r.DropUnplaced,
	}

	var err error
	if f.FromDate, err = parseOptionalDate("fromDate", r.FromDate); err != nil {
		return reports.Filter{}, err
	}
	if f.ToDate, err = parseOptionalDate("toDate", r.ToDate); err != nil {
		return reports.Filter{}, err
	}
	if strings.TrimSpace(r.Range) != "" {
		if f.Range, err = period.ParseGranularity(r.Range); err != nil {
			return reports.Filter{}, err
		}
	}

	// include=a,b and include=a&include=b are both accepted.
	for _, v := range r.Include {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				f.Include = append(f.Include, id)
			}
		}
	}
	return f, nil
}

// ResponseFormat returns the normalized format, defaulting to JSON.
func (r RunReportRequest) ResponseFormat() (string, error) {
	switch strings.ToLower(strings.TrimSpace(r.Format)) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", apperror.NewValidation("unsupported format").
			WithDetail("format", r.Format).
			WithDetail("allowed", []string{FormatJSON, FormatXLSX})
	}
}

func parseOptionalDate(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := period.ParseDate(s)
	if err != nil {
		return time.Time{}, apperror.NewValidation("invalid " + field + ", expected YYYY-MM-DD").
			WithDetail("field", field).
			WithDetail("value", s)
	}
	return t, nil
}

// ReportDefinitionResponse describes a runnable report.
type ReportDefinitionResponse struct {
	Name         string `json:"name"`
	Title        string `json:"title"`
	Tree         string `json:"tree"`
	TreeLabel    string `json:"treeLabel"`
	Source       string `json:"source"`
	Columns      string `json:"columns"`
	RequireDates bool   `json:"requireDates"`
}

// FromDefinitions converts catalog entries.
func FromDefinitions(defs []reports.Definition) []ReportDefinitionResponse {
	out := make([]ReportDefinitionResponse, len(defs))
	for i, d := range defs {
		cols := "period"
		if d.Columns == reports.ColumnsByCostCenter {
			cols = "cost_center"
		}
		out[i] = ReportDefinitionResponse{
			Name:         d.Name,
			Title:        d.Title,
			Tree:         string(d.Tree),
			TreeLabel:    d.TreeLabel,
			Source:       string(d.Source),
			Columns:      cols,
			RequireDates: d.RequireDates,
		}
	}
	return out
}

// ReportResponse is a report flattened for grid widgets: every row is a
// map keyed by column fieldname plus indent and parent keys.
type ReportResponse struct {
	Name        string           `json:"name"`
	Title       string           `json:"title"`
	Company     string           `json:"company"`
	Range       string           `json:"range,omitempty"`
	FromDate    string           `json:"fromDate,omitempty"`
	ToDate      string           `json:"toDate,omitempty"`
	Columns     []reports.Column `json:"columns"`
	Data        []map[string]any `json:"data"`
	Chart       *ChartResponse   `json:"chart,omitempty"`
	Dropped     int              `json:"dropped,omitempty"`
	GeneratedAt string           `json:"generatedAt"`
}

// ChartResponse wraps the chart payload the way chart widgets expect it.
type ChartResponse struct {
	Data      ChartData `json:"data"`
	Type      string    `json:"type"`
	FieldType string    `json:"fieldtype"`
}

// ChartData holds chart labels and series.
type ChartData struct {
	Labels   []string         `json:"labels"`
	Datasets []rollup.Dataset `json:"datasets"`
}

// FromReport flattens a report.
func FromReport(rep *reports.Report) *ReportResponse {
	resp := &ReportResponse{
		Name:        rep.Name,
		Title:       rep.Title,
		Company:     rep.Company,
		Range:       rep.Range,
		FromDate:    rep.FromDate,
		ToDate:      rep.ToDate,
		Columns:     rep.Columns,
		Data:        make([]map[string]any, 0, len(rep.Rows)),
		Dropped:     rep.Dropped,
		GeneratedAt: rep.GeneratedAt.UTC().Format(time.RFC3339),
	}
	if resp.Columns == nil {
		resp.Columns = []reports.Column{}
	}

	treeField := ""
	if len(rep.Columns) > 0 {
		treeField = rep.Columns[0].Fieldname
	}
	amountCols := rep.AmountColumns()
	for _, row := range rep.Rows {
		m := make(map[string]any, len(amountCols)+5)
		m[treeField] = row.Node
		m["parent_"+treeField] = row.Parent
		m["indent"] = row.Indent
		m["is_group"] = row.IsGroup
		for _, col := range amountCols {
			m[col.Fieldname] = types.ToFloat(row.Values[col.Fieldname])
		}
		m["total"] = types.ToFloat(row.Total)
		resp.Data = append(resp.Data, m)
	}

	if rep.Chart != nil {
		resp.Chart = &ChartResponse{
			Data:      ChartData{Labels: rep.Chart.Labels, Datasets: rep.Chart.Datasets},
			Type:      rep.Chart.Type,
			FieldType: rep.Chart.FieldType,
		}
	}
	return resp
}
