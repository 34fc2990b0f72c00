package reports

import (
	"context"
	"time"

	"ledgertree/internal/domain/hierarchy"
	"ledgertree/internal/domain/period"
	"ledgertree/internal/domain/rollup"
)

// RecordQuery selects the transactions of one report run.
// Zero dates leave that side of the range open.
type RecordQuery struct {
	Source      Source
	Company     string
	FromDate    time.Time
	ToDate      time.Time
	Warehouse   string
	PaymentType string
	// CostCenters restricts records to these cost centers and tags each
	// record's Column with its cost center. Nil means no restriction.
	CostCenters []string
}

// Repository loads report inputs. All calls of one run happen inside
// the same read-only transaction.
type Repository interface {
	LoadTree(ctx context.Context, kind TreeKind, company string) ([]hierarchy.Node, error)
	LoadRecords(ctx context.Context, q RecordQuery) ([]rollup.Record, error)
	LoadFiscalYears(ctx context.Context, company string) (period.FiscalYears, error)
}

// Cache stores finished reports. Implementations must tolerate a nil
// receiver by calling the loader directly.
type Cache interface {
	BuildKey(ctx context.Context, parts ...string) (string, error)
	FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error
}
