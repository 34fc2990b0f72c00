// Package report_repo provides the PostgreSQL implementation of reports.Repository.
package report_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"ledgertree/internal/core/apperror"
	"ledgertree/internal/domain/hierarchy"
	"ledgertree/internal/domain/period"
	"ledgertree/internal/domain/reports"
	"ledgertree/internal/domain/rollup"
	"ledgertree/internal/infrastructure/storage/postgres"
)

var _ reports.Repository = (*ReportRepo)(nil)

// treeTable maps a tree kind to its nested-set table.
type treeTable struct {
	table      string
	parentCol  string
	perCompany bool
}

var treeTables = map[reports.TreeKind]treeTable{
	reports.TreeItemGroup:     {table: "item_groups", parentCol: "parent_item_group"},
	reports.TreeSupplierGroup: {table: "supplier_groups", parentCol: "parent_supplier_group"},
	reports.TreeCostCenter:    {table: "cost_centers", parentCol: "parent_cost_center", perCompany: true},
}

// ReportRepo implements reports.Repository.
type ReportRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewReportRepo creates a new report repository.
func NewReportRepo(txm *postgres.TxManager) *ReportRepo {
	return &ReportRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// LoadTree returns every node of a nested-set table ordered by lft.
func (r *ReportRepo) LoadTree(ctx context.Context, kind reports.TreeKind, company string) ([]hierarchy.Node, error) {
	q, err := r.treeQuery(kind, company)
	if err != nil {
		return nil, err
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build tree query: %w", err)
	}

	var nodes []hierarchy.Node
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &nodes, sql, args...); err != nil {
		return nil, apperror.NewDatabase("load "+string(kind)+" tree", err)
	}
	return nodes, nil
}

func (r *ReportRepo) treeQuery(kind reports.TreeKind, company string) (squirrel.SelectBuilder, error) {
	t, ok := treeTables[kind]
	if !ok {
		return squirrel.SelectBuilder{}, apperror.NewValidation(fmt.Sprintf("unknown tree %q", kind))
	}
	q := r.builder.
		Select(
			"name AS id",
			fmt.Sprintf("COALESCE(%s, '') AS parent_id", t.parentCol),
			"lft",
			"rgt",
		).
		From(t.table).
		OrderBy("lft")
	if t.perCompany {
		q = q.Where(squirrel.Eq{"company": company})
	}
	return q, nil
}

// LoadRecords returns per-day sums of the source's amounts by tree node.
func (r *ReportRepo) LoadRecords(ctx context.Context, rq reports.RecordQuery) ([]rollup.Record, error) {
	if rq.CostCenters != nil && len(rq.CostCenters) == 0 {
		return nil, nil
	}
	q, err := r.recordsQuery(rq)
	if err != nil {
		return nil, err
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build records query: %w", err)
	}

	var records []rollup.Record
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &records, sql, args...); err != nil {
		return nil, apperror.NewDatabase("load "+string(rq.Source)+" records", err)
	}
	return records, nil
}

func (r *ReportRepo) recordsQuery(rq reports.RecordQuery) (squirrel.SelectBuilder, error) {
	var (
		q       squirrel.SelectBuilder
		alias   string
		groupBy []string
	)

	switch rq.Source {
	case reports.SourcePurchases:
		alias = "p"
		q = r.builder.
			Select(
				"i.item_group AS node_id",
				"p.posting_date",
				"'' AS column_key",
				"SUM(p.net_amount + p.tax_amount) AS amount",
			).
			From("purchase_receipt_items p").
			Join("items i ON i.item_code = p.item_code")
		groupBy = []string{"i.item_group", "p.posting_date"}
	case reports.SourceMaterialIssues:
		alias = "s"
		q = r.builder.
			Select(
				"i.item_group AS node_id",
				"s.posting_date",
				"COALESCE(s.cost_center, '') AS column_key",
				"SUM(ABS(s.qty) * s.valuation_rate) AS amount",
			).
			From("stock_issue_items s").
			Join("items i ON i.item_code = s.item_code")
		groupBy = []string{"i.item_group", "s.posting_date", "s.cost_center"}
	case reports.SourcePayments:
		alias = "pe"
		q = r.builder.
			Select(
				"sp.supplier_group AS node_id",
				"pe.posting_date",
				"'' AS column_key",
				"SUM(pe.paid_amount) AS amount",
			).
			From("payment_entries pe").
			Join("suppliers sp ON sp.name = pe.party")
		groupBy = []string{"sp.supplier_group", "pe.posting_date"}
	default:
		return squirrel.SelectBuilder{}, apperror.NewValidation(fmt.Sprintf("unknown record source %q", rq.Source))
	}

	col := func(name string) string { return alias + "." + name }

	q = q.
		Where(squirrel.Eq{col("docstatus"): 1}).
		Where(squirrel.Eq{col("company"): rq.Company})
	if !rq.FromDate.IsZero() {
		q = q.Where(squirrel.GtOrEq{col("posting_date"): period.Day(rq.FromDate)})
	}
	if !rq.ToDate.IsZero() {
		q = q.Where(squirrel.LtOrEq{col("posting_date"): period.Day(rq.ToDate)})
	}
	if rq.Warehouse != "" && rq.Source != reports.SourcePayments {
		q = q.Where(squirrel.Eq{col("warehouse"): rq.Warehouse})
	}
	if rq.Source == reports.SourcePayments && rq.PaymentType != "" {
		q = q.Where(squirrel.Eq{col("payment_type"): rq.PaymentType})
	}
	if rq.CostCenters != nil && rq.Source == reports.SourceMaterialIssues {
		q = q.Where(squirrel.Eq{col("cost_center"): rq.CostCenters})
	}

	return q.GroupBy(groupBy...).OrderBy(col("posting_date")), nil
}

// LoadFiscalYears returns the company's fiscal years ordered by start date.
func (r *ReportRepo) LoadFiscalYears(ctx context.Context, company string) (period.FiscalYears, error) {
	sql, args, err := r.fiscalYearsQuery(company).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build fiscal years query: %w", err)
	}

	var fys period.FiscalYears
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &fys, sql, args...); err != nil {
		return nil, apperror.NewDatabase("load fiscal years", err)
	}
	return fys, nil
}

func (r *ReportRepo) fiscalYearsQuery(company string) squirrel.SelectBuilder {
	return r.builder.
		Select("name", "year_start_date", "year_end_date").
		From("fiscal_years").
		Where(squirrel.Eq{"company": company}).
		OrderBy("year_start_date")
}
