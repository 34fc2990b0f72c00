package reports

import (
	"sort"

	"ledgertree/internal/domain/rollup"
)

// DefaultPaymentType is used by payment reports when none is given.
const DefaultPaymentType = "Pay"

// Definition describes one report of the catalog.
type Definition struct {
	Name         string             `json:"name"`
	Title        string             `json:"title"`
	Tree         TreeKind           `json:"tree"`
	TreeLabel    string             `json:"treeLabel"`
	Source       Source             `json:"source"`
	Columns      ColumnMode         `json:"-"`
	RequireDates bool               `json:"requireDates"`
	ChartName    string             `json:"chartName"`
	ChartRows    rollup.RowSelector `json:"-"`
}

// Catalog is the set of runnable reports, keyed by name.
type Catalog struct {
	defs map[string]Definition
}

// NewCatalog builds a catalog from definitions. Later duplicates win.
func NewCatalog(defs ...Definition) *Catalog {
	c := &Catalog{defs: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		c.defs[d.Name] = d
	}
	return c
}

// DefaultCatalog returns the built-in reports.
func DefaultCatalog() *Catalog {
	return NewCatalog(
		Definition{
			Name:         "purchase-analytics",
			Title:        "Purchase Analytics",
			Tree:         TreeItemGroup,
			TreeLabel:    "Item Group",
			Source:       SourcePurchases,
			Columns:      ColumnsByPeriod,
			RequireDates: true,
			ChartName:    "Purchase Amount",
			ChartRows:    rollup.DeepestRows(),
		},
		Definition{
			Name:         "stock-consumption",
			Title:        "Stock Consumption",
			Tree:         TreeItemGroup,
			TreeLabel:    "Item Group",
			Source:       SourceMaterialIssues,
			Columns:      ColumnsByPeriod,
			RequireDates: true,
			ChartName:    "Consumed Value",
			ChartRows:    rollup.TopRows(),
		},
		Definition{
			Name:         "supplier-payments",
			Title:        "Supplier Payments",
			Tree:         TreeSupplierGroup,
			TreeLabel:    "Supplier Group",
			Source:       SourcePayments,
			Columns:      ColumnsByPeriod,
			RequireDates: true,
			ChartName:    "Paid Amount",
			ChartRows:    rollup.TopRows(),
		},
		Definition{
			Name:      "costcenter-consumption",
			Title:     "Cost Center Consumption",
			Tree:      TreeItemGroup,
			TreeLabel: "Item Group",
			Source:    SourceMaterialIssues,
			Columns:   ColumnsByCostCenter,
			ChartName: "Consumed Value",
			ChartRows: rollup.TopRows(),
		},
	)
}

// Lookup returns the definition with the given name.
func (c *Catalog) Lookup(name string) (Definition, bool) {
	d, ok := c.defs[name]
	return d, ok
}

// List returns all definitions ordered by name.
func (c *Catalog) List() []Definition {
	out := make([]Definition, 0, len(c.defs))
	for _, d := range c.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
