// Package main creates the report schema and seeds demo trees and ledgers.
package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"ledgertree/internal/domain/period"
	"ledgertree/internal/infrastructure/storage/postgres"
	"ledgertree/pkg/logger"
)

const demoCompany = "Demo Manufacturing"

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := logger.WithLogger(context.Background(), log)

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	poolCfg := postgres.DefaultPoolConfig(dbURL)
	poolCfg.ApplicationName = "ledgertree-seed"
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	if err := postgres.ApplySchema(ctx, pool); err != nil {
		log.Fatalw("failed to apply schema", "error", err)
	}
	log.Info("schema applied")

	if os.Getenv("SEED_DEMO_DATA") == "false" {
		log.Info("SEED_DEMO_DATA=false, skipping demo data")
		return
	}

	txm := postgres.NewTxManager(pool)
	loader := postgres.NewBulkLoader(txm)
	start := time.Now()
	var counts map[string]int64
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := loader.Exec(ctx, masterStatements()); err != nil {
			return err
		}
		counts = make(map[string]int64, 3)
		for _, l := range demoLedgers() {
			n, err := loader.Copy(ctx, l.table, l.columns, l.rows)
			if err != nil {
				return err
			}
			counts[l.table] = n
		}
		return nil
	})
	if err != nil {
		log.Fatalw("failed to seed demo data", "error", err)
	}

	log.Infow("seeding completed successfully", "company", demoCompany, "rows", counts, "duration", time.Since(start))
}

// treeNode is a seed tree written as parent/children; lft and rgt are
// numbered on insert.
type treeNode struct {
	name     string
	children []treeNode
}

type numbered struct {
	name, parent string
	lft, rgt     int
}

// numberTree assigns nested-set bounds in pre-order, starting at 1.
func numberTree(roots []treeNode) []numbered {
	var out []numbered
	counter := 0
	var walk func(n treeNode, parent string)
	walk = func(n treeNode, parent string) {
		counter++
		idx := len(out)
		out = append(out, numbered{name: n.name, parent: parent, lft: counter})
		for _, c := range n.children {
			walk(c, n.name)
		}
		counter++
		out[idx].rgt = counter
	}
	for _, r := range roots {
		walk(r, "")
	}
	return out
}

var itemGroups = []treeNode{{
	name: "All Item Groups",
	children: []treeNode{
		{name: "Raw Material", children: []treeNode{{name: "Steel"}, {name: "Cement"}}},
		{name: "Consumables"},
		{name: "Packaging"},
	},
}}

var supplierGroups = []treeNode{{
	name: "All Supplier Groups",
	children: []treeNode{
		{name: "Local", children: []treeNode{{name: "Distributor"}}},
		{name: "Import"},
	},
}}

var costCenters = []treeNode{{
	name: demoCompany,
	children: []treeNode{
		{name: "Plant", children: []treeNode{{name: "Line 1"}, {name: "Line 2"}}},
		{name: "Office"},
	},
}}

var items = map[string]string{
	"REBAR-12":  "Steel",
	"PLATE-6":   "Steel",
	"OPC-53":    "Cement",
	"GLOVES":    "Consumables",
	"CARTON-L":  "Packaging",
	"STRETCH-F": "Packaging",
}

var suppliers = map[string]string{
	"Tata Steel":        "Distributor",
	"UltraTech":         "Local",
	"Hamburg Packaging": "Import",
}

func parentOrNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// masterStatements upserts trees, fiscal years and masters, and clears
// the demo company's ledgers so repeated runs give the same totals.
func masterStatements() []postgres.Statement {
	var stmts []postgres.Statement
	add := func(sql string, args ...any) {
		stmts = append(stmts, postgres.Statement{SQL: sql, Args: args})
	}

	for _, n := range numberTree(itemGroups) {
		add(`INSERT INTO item_groups (name, parent_item_group, lft, rgt) VALUES ($1, $2, $3, $4)
			ON CONFLICT (name) DO UPDATE SET parent_item_group = EXCLUDED.parent_item_group, lft = EXCLUDED.lft, rgt = EXCLUDED.rgt`,
			n.name, parentOrNil(n.parent), n.lft, n.rgt)
	}
	for _, n := range numberTree(supplierGroups) {
		add(`INSERT INTO supplier_groups (name, parent_supplier_group, lft, rgt) VALUES ($1, $2, $3, $4)
			ON CONFLICT (name) DO UPDATE SET parent_supplier_group = EXCLUDED.parent_supplier_group, lft = EXCLUDED.lft, rgt = EXCLUDED.rgt`,
			n.name, parentOrNil(n.parent), n.lft, n.rgt)
	}
	for _, n := range numberTree(costCenters) {
		add(`INSERT INTO cost_centers (name, company, parent_cost_center, lft, rgt) VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (name) DO UPDATE SET parent_cost_center = EXCLUDED.parent_cost_center, lft = EXCLUDED.lft, rgt = EXCLUDED.rgt`,
			n.name, demoCompany, parentOrNil(n.parent), n.lft, n.rgt)
	}

	// April to March fiscal years.
	for _, y := range []int{2023, 2024, 2025} {
		add(`INSERT INTO fiscal_years (company, name, year_start_date, year_end_date) VALUES ($1, $2, $3, $4)
			ON CONFLICT (company, name) DO NOTHING`,
			demoCompany, fmt.Sprintf("%d-%d", y, y+1), period.Date(y, time.April, 1), period.Date(y+1, time.March, 31))
	}

	for _, code := range sortedKeys(items) {
		add(`INSERT INTO items (item_code, item_group) VALUES ($1, $2) ON CONFLICT (item_code) DO NOTHING`, code, items[code])
	}
	for _, name := range sortedKeys(suppliers) {
		add(`INSERT INTO suppliers (name, supplier_group) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`, name, suppliers[name])
	}

	for _, table := range []string{"purchase_receipt_items", "stock_issue_items", "payment_entries"} {
		add(`DELETE FROM `+pgx.Identifier{table}.Sanitize()+` WHERE company = $1`, demoCompany)
	}
	return stmts
}

type ledger struct {
	table   string
	columns []string
	rows    [][]any
}

// demoLedgers generates one year of monthly activity.
func demoLedgers() []ledger {
	purchases := ledger{
		table:   "purchase_receipt_items",
		columns: []string{"company", "posting_date", "item_code", "warehouse", "net_amount", "tax_amount", "docstatus"},
	}
	issues := ledger{
		table:   "stock_issue_items",
		columns: []string{"company", "posting_date", "item_code", "warehouse", "cost_center", "qty", "valuation_rate", "docstatus"},
	}
	payments := ledger{
		table:   "payment_entries",
		columns: []string{"company", "posting_date", "party", "payment_type", "paid_amount", "docstatus"},
	}

	codes := sortedKeys(items)
	parties := sortedKeys(suppliers)
	lines := []string{"Line 1", "Line 2", "Office"}
	taxRate := decimal.RequireFromString("0.18")

	for m := 0; m < 12; m++ {
		day := period.Date(2024, time.January, 1).AddDate(0, m, 0)
		for i, code := range codes {
			net := decimal.NewFromInt(int64(1000 + 150*m + 75*i))
			purchases.rows = append(purchases.rows, []any{
				demoCompany, day.AddDate(0, 0, 2*i), code, "Stores", net, net.Mul(taxRate).Round(2), int16(1),
			})

			qty := decimal.NewFromInt(int64(5 + (m+i)%7))
			rate := decimal.RequireFromString("42.50").Add(decimal.NewFromInt(int64(i)))
			issues.rows = append(issues.rows, []any{
				demoCompany, day.AddDate(0, 0, 3*i+1), code, "Stores", lines[(m+i)%len(lines)], qty, rate, int16(1),
			})
		}

		// A cancelled receipt that reports must ignore.
		purchases.rows = append(purchases.rows, []any{
			demoCompany, day, codes[0], "Stores", decimal.NewFromInt(99999), decimal.Zero, int16(2),
		})

		for j, party := range parties {
			payments.rows = append(payments.rows, []any{
				demoCompany, day.AddDate(0, 0, 10+j), party, "Pay", decimal.NewFromInt(int64(5000 + 500*j + 100*m)), int16(1),
			})
		}
	}
	return []ledger{purchases, issues, payments}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
