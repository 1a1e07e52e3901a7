// Package order
package order

import (
	"time"

	"github.com/google/uuid"
)

// OrderRequest represents a new order to be submitted.
type OrderRequest struct {
	SymbolToken   string  `json:"symbol_token"`
	TradingSymbol string  `json:"trading_symbol"`
	Exchange      string  `json:"exchange"`
	Side          string  `json:"side"` // "BUY" or "SELL"
	Type          string  `json:"type"` // "MARKET", "LIMIT"
	Price         float64 `json:"price"`
	Quantity      int     `json:"quantity"`
}

// ExecutionRecord is an append-only audit entry for one execution attempt.
// Nothing on it is mutated after creation except the Executed flag, which
// flips once when a terminal broker success is confirmed.
type ExecutionRecord struct {
	ID           string       `json:"id"`
	Symbol       string       `json:"symbol"`
	SignalKind   string       `json:"signal_kind"`
	SignalReason string       `json:"signal_reason"`
	OrderID      string       `json:"order_id"`
	BrokerStatus string       `json:"broker_status"`
	Payload      OrderRequest `json:"payload"`
	Executed     bool         `json:"executed"`
	CreatedAt    time.Time    `json:"created_at"`
}

// NewExecutionRecord creates an audit record for one attempt.
func NewExecutionRecord(symbol, signalKind, signalReason string, payload OrderRequest) ExecutionRecord {
	return ExecutionRecord{
		ID:           uuid.NewString(),
		Symbol:       symbol,
		SignalKind:   signalKind,
		SignalReason: signalReason,
		Payload:      payload,
		CreatedAt:    time.Now().UTC(),
	}
}
