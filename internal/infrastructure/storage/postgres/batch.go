package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// errNoTx is returned by loader methods called outside RunInTransaction.
var errNoTx = errors.New("bulk load requires a transaction in context")

// BulkLoader writes many rows inside the transaction carried by ctx.
type BulkLoader struct {
	txm *TxManager
}

// NewBulkLoader creates a loader bound to txm.
func NewBulkLoader(txm *TxManager) *BulkLoader {
	return &BulkLoader{txm: txm}
}

// Copy streams rows into table with the COPY protocol.
// Each row must match columns in order.
func (l *BulkLoader) Copy(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	tx := l.txm.GetTx(ctx)
	if tx == nil {
		return 0, errNoTx
	}
	n, err := tx.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return n, fmt.Errorf("copy into %s: %w", table, err)
	}
	return n, nil
}

// Statement is one queued query.
type Statement struct {
	SQL  string
	Args []any
}

// Exec sends statements in a single round-trip and stops at the first
// failure.
func (l *BulkLoader) Exec(ctx context.Context, stmts []Statement) error {
	tx := l.txm.GetTx(ctx)
	if tx == nil {
		return errNoTx
	}

	b := &pgx.Batch{}
	for _, s := range stmts {
		b.Queue(s.SQL, s.Args...)
	}
	results := tx.SendBatch(ctx, b)
	defer results.Close()

	for i := range stmts {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("batch statement %d: %w", i, err)
		}
	}
	return nil
}
