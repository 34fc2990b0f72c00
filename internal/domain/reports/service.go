package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ledgertree/internal/core/apperror"
	appctx "ledgertree/internal/core/context"
	"ledgertree/internal/core/tx"
	"ledgertree/internal/core/types"
	"ledgertree/internal/domain/hierarchy"
	"ledgertree/internal/domain/period"
	"ledgertree/internal/domain/rollup"
	"ledgertree/pkg/logger"
)

var tracer = otel.Tracer("ledgertree/reports")

// Service runs catalog reports.
type Service struct {
	repo    Repository
	txm     tx.ReadOnlyManager
	cache   Cache
	catalog *Catalog
	now     func() time.Time
}

// ServiceConfig configures the reports service. Cache and Catalog are optional.
type ServiceConfig struct {
	Repo      Repository
	TxManager tx.ReadOnlyManager
	Cache     Cache
	Catalog   *Catalog
}

// NewService creates a new reports service.
func NewService(cfg ServiceConfig) *Service {
	catalog := cfg.Catalog
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Service{
		repo:    cfg.Repo,
		txm:     cfg.TxManager,
		cache:   cfg.Cache,
		catalog: catalog,
		now:     time.Now,
	}
}

// Catalog returns the reports this service can run.
func (s *Service) Catalog() *Catalog {
	return s.catalog
}

// Run computes the named report for the filter.
func (s *Service) Run(ctx context.Context, name string, f Filter) (*Report, error) {
	def, ok := s.catalog.Lookup(name)
	if !ok {
		return nil, apperror.NewUnknownReport(name)
	}
	if err := f.Validate(def); err != nil {
		return nil, err
	}
	policy, err := inclusionPolicy(f)
	if err != nil {
		return nil, err
	}

	ctx = appctx.WithRun(ctx, def.Name)
	ctx, span := tracer.Start(ctx, "reports.Run", trace.WithAttributes(
		attribute.String("report.name", def.Name),
		attribute.String("report.company", f.Company),
		attribute.String("report.range", f.Range.String()),
	))
	defer span.End()

	rep, err := s.cached(ctx, def, f, policy)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return rep, nil
}

func (s *Service) cached(ctx context.Context, def Definition, f Filter, policy rollup.InclusionPolicy) (*Report, error) {
	if s.cache == nil {
		return s.compute(ctx, def, f, policy)
	}

	key, err := s.cache.BuildKey(ctx, "reports", def.Name, f.CacheKey())
	if err != nil {
		logger.Warn(ctx, "report cache unavailable", "error", err)
		return s.compute(ctx, def, f, policy)
	}

	var (
		computed   *Report
		computeErr error
		rep        Report
	)
	err = s.cache.FetchJSON(ctx, key, &rep, func(ctx context.Context) (any, error) {
		computed, computeErr = s.compute(ctx, def, f, policy)
		if computeErr != nil {
			return nil, computeErr
		}
		return computed, nil
	})
	switch {
	case computeErr != nil:
		return nil, computeErr
	case err != nil && computed != nil:
		logger.Warn(ctx, "report cache write failed", "error", err)
		return computed, nil
	case err != nil:
		logger.Warn(ctx, "report cache read failed", "error", err)
		return s.compute(ctx, def, f, policy)
	}
	return &rep, nil
}

type snapshot struct {
	tree        []hierarchy.Node
	records     []rollup.Record
	fiscalYears period.FiscalYears
}

func (s *Service) load(ctx context.Context, def Definition, f Filter) (*snapshot, error) {
	snap := &snapshot{}
	err := s.txm.ReadOnly(ctx, func(ctx context.Context) error {
		var err error
		snap.tree, err = s.repo.LoadTree(ctx, def.Tree, f.Company)
		if err != nil {
			return fmt.Errorf("load %s tree: %w", def.Tree, err)
		}

		q := RecordQuery{
			Source:      def.Source,
			Company:     f.Company,
			FromDate:    f.FromDate,
			ToDate:      f.ToDate,
			Warehouse:   f.Warehouse,
			PaymentType: f.PaymentType,
		}
		switch {
		case def.Columns == ColumnsByCostCenter:
			centers, err := s.repo.LoadTree(ctx, TreeCostCenter, f.Company)
			if err != nil {
				return fmt.Errorf("load cost center tree: %w", err)
			}
			q.CostCenters, err = costCenterScope(centers, f.ParentCostCenter)
			if err != nil {
				return err
			}
		case f.Range == period.Yearly:
			snap.fiscalYears, err = s.repo.LoadFiscalYears(ctx, f.Company)
			if err != nil {
				return fmt.Errorf("load fiscal years: %w", err)
			}
		}

		snap.records, err = s.repo.LoadRecords(ctx, q)
		if err != nil {
			return fmt.Errorf("load %s records: %w", def.Source, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *Service) compute(ctx context.Context, def Definition, f Filter, policy rollup.InclusionPolicy) (*Report, error) {
	snap, err := s.load(ctx, def, f)
	if err != nil {
		return nil, err
	}

	idx, err := hierarchy.Build(snap.tree)
	if err != nil {
		return nil, err
	}

	rep := &Report{
		Name:        def.Name,
		Title:       def.Title,
		Company:     f.Company,
		FromDate:    formatOptionalDate(f.FromDate),
		ToDate:      formatOptionalDate(f.ToDate),
		GeneratedAt: s.now().UTC(),
	}

	var cols rollup.ColumnSet
	if def.Columns == ColumnsByCostCenter {
		cols = rollup.ByKey(distinctColumns(snap.records))
	} else {
		resolver := period.FiscalResolver(period.CalendarYears{})
		if len(snap.fiscalYears) > 0 {
			resolver = snap.fiscalYears.Sorted()
		}
		cal, err := period.Generate(f.FromDate, f.ToDate, f.Range, period.WithFiscalYears(resolver))
		if err != nil {
			return nil, err
		}
		cols = rollup.ByPeriod(cal)
		rep.Range = f.Range.String()
	}

	if len(cols.Labels()) == 0 {
		if f.Subtree != "" && !idx.Has(f.Subtree) {
			return nil, apperror.NewUnknownNode(f.Subtree).WithDetail("filter", "subtree")
		}
		rep.Columns = buildColumns(def, nil)
		rep.Rows = []Row{}
		return rep, nil
	}

	opts := []rollup.Option{rollup.WithInclusion(policy)}
	if f.Subtree != "" {
		opts = append(opts, rollup.WithSubtree(f.Subtree))
	}
	if f.DropUnplaced {
		opts = append(opts, rollup.WithUnplaced(rollup.Drop))
	}

	res, err := rollup.Aggregate(snap.records, idx, cols, opts...)
	if err != nil {
		return nil, err
	}
	if len(res.Dropped) > 0 {
		logger.Warn(ctx, "unplaced records dropped",
			"count", len(res.Dropped),
			"first_reason", res.Dropped[0].Reason.Error())
	}

	rep.Columns = buildColumns(def, res.Columns)
	rep.Rows = toRows(rep.AmountColumns(), res.Rows)
	rep.Chart = rollup.BuildChart(res, def.ChartName, def.ChartRows)
	rep.Dropped = len(res.Dropped)

	logger.Info(ctx, "report computed",
		"columns", len(res.Columns),
		"records", len(snap.records),
		"rows", len(rep.Rows),
		"dropped", rep.Dropped,
		"skipped", res.Skipped)
	return rep, nil
}

func toRows(amountCols []Column, rows []rollup.Row) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		values := make(map[string]types.Money, len(amountCols))
		for j, c := range amountCols {
			values[c.Fieldname] = r.Amounts[j]
		}
		out[i] = Row{
			Node:    r.NodeID,
			Parent:  r.ParentID,
			Indent:  r.Depth,
			IsGroup: !r.Leaf,
			Values:  values,
			Total:   r.Total,
		}
	}
	return out
}

func inclusionPolicy(f Filter) (rollup.InclusionPolicy, error) {
	var policies []rollup.InclusionPolicy
	if len(f.Include) > 0 {
		policies = append(policies, rollup.Whitelist(f.Include...))
	}
	if f.IncludeExpr != "" {
		p, err := rollup.Expression(f.IncludeExpr)
		if err != nil {
			return nil, err
		}
		policies = append(policies, p)
	}

	switch len(policies) {
	case 0:
		return rollup.NonZeroOnly(), nil
	case 1:
		return policies[0], nil
	default:
		return rollup.AnyOf(policies...), nil
	}
}

// costCenterScope returns the cost centers below parent, or parent itself
// when it is a leaf. An empty parent selects every cost center.
func costCenterScope(centers []hierarchy.Node, parent string) ([]string, error) {
	idx, err := hierarchy.Build(centers)
	if err != nil {
		return nil, err
	}
	if parent == "" {
		return idx.PreOrder(), nil
	}
	if !idx.Has(parent) {
		return nil, apperror.NewUnknownNode(parent).WithDetail("filter", "parent_cost_center")
	}
	if idx.IsLeaf(parent) {
		return []string{parent}, nil
	}
	return idx.DescendantsOf(parent), nil
}

// distinctColumns returns the non-empty column keys of records, sorted.
func distinctColumns(records []rollup.Record) []string {
	seen := make(map[string]struct{})
	for _, r := range records {
		if r.Column != "" {
			seen[r.Column] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
