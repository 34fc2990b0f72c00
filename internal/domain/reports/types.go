// Package reports runs hierarchical period reports: it loads a tree and
// its transactions in one snapshot, buckets them into columns and rolls
// the sums up the tree.
package reports

import (
	"strings"
	"time"

	"ledgertree/internal/core/apperror"
	"ledgertree/internal/core/types"
	"ledgertree/internal/domain/period"
	"ledgertree/internal/domain/rollup"
)

// TreeKind names a nested-set table.
type TreeKind string

const (
	TreeItemGroup     TreeKind = "item_group"
	TreeSupplierGroup TreeKind = "supplier_group"
	TreeCostCenter    TreeKind = "cost_center"
)

// Source names the transactions a report sums.
type Source string

const (
	// SourcePurchases sums net plus tax of submitted purchase receipt items.
	SourcePurchases Source = "purchases"
	// SourceMaterialIssues sums the value of stock issued out of warehouses.
	SourceMaterialIssues Source = "material_issues"
	// SourcePayments sums paid amounts of submitted payment entries.
	SourcePayments Source = "payments"
)

// ColumnMode selects how records are spread across columns.
type ColumnMode int

const (
	// ColumnsByPeriod uses one column per calendar bucket.
	ColumnsByPeriod ColumnMode = iota
	// ColumnsByCostCenter uses one column per cost center with activity.
	ColumnsByCostCenter
)

// Filter holds the caller's report parameters.
// Zero dates mean "not set".
type Filter struct {
	Company          string
	FromDate         time.Time
	ToDate           time.Time
	Range            period.Granularity
	Subtree          string
	Warehouse        string
	PaymentType      string
	ParentCostCenter string
	Include          []string
	IncludeExpr      string
	DropUnplaced     bool
}

// Validate checks required parameters for def and fills defaults.
func (f *Filter) Validate(def Definition) error {
	f.Company = strings.TrimSpace(f.Company)
	if f.Company == "" {
		return apperror.NewValidation("company is required").WithDetail("field", "company")
	}
	if def.RequireDates && (f.FromDate.IsZero() || f.ToDate.IsZero()) {
		return apperror.NewValidation("fromDate and toDate are required").WithDetail("report", def.Name)
	}
	if !f.FromDate.IsZero() && !f.ToDate.IsZero() && f.FromDate.After(f.ToDate) {
		return apperror.NewInvalidRange("from date must not be after to date").
			WithDetail("from_date", period.FormatDate(f.FromDate)).
			WithDetail("to_date", period.FormatDate(f.ToDate))
	}
	if !f.Range.Valid() {
		f.Range = period.Monthly
	}
	if def.Source == SourcePayments && f.PaymentType == "" {
		f.PaymentType = DefaultPaymentType
	}
	return nil
}

// CacheKey renders the filter as a stable key fragment.
func (f Filter) CacheKey() string {
	parts := []string{
		f.Company,
		formatOptionalDate(f.FromDate),
		formatOptionalDate(f.ToDate),
		f.Range.String(),
		f.Subtree,
		f.Warehouse,
		f.PaymentType,
		f.ParentCostCenter,
		strings.Join(f.Include, ","),
		f.IncludeExpr,
	}
	if f.DropUnplaced {
		parts = append(parts, "drop")
	}
	return strings.Join(parts, "|")
}

func formatOptionalDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return period.FormatDate(t)
}

// Column describes one output column.
type Column struct {
	Fieldname string `json:"fieldname"`
	Label     string `json:"label"`
	Fieldtype string `json:"fieldtype"`
	Options   string `json:"options,omitempty"`
	Width     int    `json:"width"`
}

// Row is one report row. Values is keyed by column fieldname.
type Row struct {
	Node    string                 `json:"node"`
	Parent  string                 `json:"parent,omitempty"`
	Indent  int                    `json:"indent"`
	IsGroup bool                   `json:"isGroup"`
	Values  map[string]types.Money `json:"values"`
	Total   types.Money            `json:"total"`
}

// Report is a finished report run.
type Report struct {
	Name        string        `json:"name"`
	Title       string        `json:"title"`
	Company     string        `json:"company"`
	Range       string        `json:"range,omitempty"`
	FromDate    string        `json:"fromDate,omitempty"`
	ToDate      string        `json:"toDate,omitempty"`
	Columns     []Column      `json:"columns"`
	Rows        []Row         `json:"rows"`
	Chart       *rollup.Chart `json:"chart,omitempty"`
	Dropped     int           `json:"dropped,omitempty"`
	GeneratedAt time.Time     `json:"generatedAt"`
}

// AmountColumns returns the columns holding amounts, excluding the tree
// column and the total.
func (r *Report) AmountColumns() []Column {
	if len(r.Columns) < 2 {
		return nil
	}
	return r.Columns[1 : len(r.Columns)-1]
}
