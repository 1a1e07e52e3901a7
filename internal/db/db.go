// Package db
package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/journal"
	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/order"
	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/position"
)

// ExecutionStore persists append-only execution records.
type ExecutionStore interface {
	SaveExecution(ctx context.Context, rec order.ExecutionRecord) error
	// MarkExecuted flips the executed flag once a terminal broker success
	// is confirmed. The record itself stays immutable otherwise.
	MarkExecuted(ctx context.Context, id, brokerStatus string) error
	GetExecutions(ctx context.Context, symbol string, start, end time.Time) ([]order.ExecutionRecord, error)
}

// Storage is the interface for all persistent storage.
type Storage interface {
	position.Store
	ExecutionStore
	journal.Journaler
}

// Transaction context key
type txKey struct{}

// WithTransaction adds a transaction to the context
func WithTransaction(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// GetTransaction retrieves a transaction from context, or returns nil if not present
func GetTransaction(ctx context.Context) *sql.Tx {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return nil
}
