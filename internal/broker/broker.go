// Package broker
package broker

import (
	"context"

	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/candle"
	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/order"
)

// Broker order statuses the engine cares about. Everything else is
// carried through verbatim.
const (
	StatusComplete = "COMPLETE"
	StatusUnknown  = "UNKNOWN"
)

// PositionInfo is the broker's authoritative view of one holding.
type PositionInfo struct {
	TradingSymbol string
	Quantity      float64
	Side          string // "LONG" or "NONE"
}

// SubmitResult is the structured outcome of an order submission.
// Business rejections are results, not errors: OK is false and Message
// carries the broker's reason verbatim.
type SubmitResult struct {
	OK      bool
	OrderID string
	Message string
}

// OrderStatus is the outcome of one order-status poll. Found is false
// when the order could not be located in the broker's order history.
type OrderStatus struct {
	Found  bool
	Status string
}

// Broker is the capability set the engine consumes. All methods are
// fallible; implementations must not use a shared session concurrently.
type Broker interface {
	Name() string
	Authenticate(ctx context.Context) error
	FetchRecentCandles(ctx context.Context, symbolToken, interval string, count int) ([]candle.Candle, error)
	GetPosition(ctx context.Context, tradingSymbol string) (PositionInfo, error)
	GetAvailableMargin(ctx context.Context) (float64, error)
	SubmitOrder(ctx context.Context, req order.OrderRequest) (SubmitResult, error)
	GetOrderStatus(ctx context.Context, orderID string) (OrderStatus, error)
}
