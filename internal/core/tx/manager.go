// Package tx defines the transaction contract the domain depends on.
// The pgx implementation lives in infrastructure/storage/postgres.
package tx

import (
	"context"
)

// Manager runs fn inside a transaction carried by the returned context.
// fn's error rolls back; nil commits. A nested call joins the outer
// transaction.
type Manager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReadOnlyManager also offers read-only snapshots. Every read inside fn
// sees the same committed state.
type ReadOnlyManager interface {
	Manager
	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}
