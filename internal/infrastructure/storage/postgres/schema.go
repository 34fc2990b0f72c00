package postgres

import (
	"context"
	_ "embed"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// LedgerChangedChannel is the NOTIFY channel raised by every ledger and
// tree table after a write.
const LedgerChangedChannel = "ledger_changed"

// ApplySchema creates the report tables, indexes and change triggers.
// Statements are idempotent.
func ApplySchema(ctx context.Context, pool *Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
