// Package position
package position

import (
	"context"
	"time"
)

// Position is the engine's local belief about an instrument's holding.
type Position string

const (
	None Position = "NONE"
	Long Position = "LONG"
)

// Entry is the per-instrument ledger record. Its Position must equal the
// last confirmed broker-completed transaction's implied position; it may
// disagree with the broker only between reconciliation points.
type Entry struct {
	Symbol     string    `json:"symbol"`
	Position   Position  `json:"position"`
	LastSignal string    `json:"last_signal"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Store persists ledger entries keyed by trading symbol.
type Store interface {
	// GetOrCreate returns the entry for symbol, creating a NONE entry on
	// first reference.
	GetOrCreate(ctx context.Context, symbol string) (Entry, error)
	// Save overwrites the entry for entry.Symbol.
	Save(ctx context.Context, entry Entry) error
}
