// Package broker
package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/candle"
	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/order"
	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/tfutils"
	"github.com/google/uuid"
)

// Simulator is an in-memory broker for paper trading and wiring tests.
// Candles are served from a preloaded feed, every accepted order fills
// instantly, and positions track fills.
type Simulator struct {
	mu       sync.Mutex
	feed     map[string][]candle.Candle // symbolToken -> candles
	pos      map[string]float64         // tradingSymbol -> quantity
	orders   map[string]string          // orderID -> status
	margin   float64
	loggedIn bool
}

func NewSimulator(margin float64) *Simulator {
	return &Simulator{
		feed:   make(map[string][]candle.Candle),
		pos:    make(map[string]float64),
		orders: make(map[string]string),
		margin: margin,
	}
}

// LoadCandles preloads the feed served for a symbol token.
func (s *Simulator) LoadCandles(symbolToken string, candles []candle.Candle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feed[symbolToken] = candles
}

func (s *Simulator) Name() string { return "simulator" }

func (s *Simulator) Authenticate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loggedIn = true
	return nil
}

func (s *Simulator) FetchRecentCandles(ctx context.Context, symbolToken, interval string, count int) ([]candle.Candle, error) {
	if !tfutils.IsValidTimeframe(interval) {
		return nil, fmt.Errorf("unsupported timeframe: %s", interval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	candles, ok := s.feed[symbolToken]
	if !ok {
		return nil, fmt.Errorf("no market data for %s", symbolToken)
	}
	if len(candles) > count {
		candles = candles[len(candles)-count:]
	}
	out := make([]candle.Candle, len(candles))
	copy(out, candles)
	return out, nil
}

func (s *Simulator) GetPosition(ctx context.Context, tradingSymbol string) (PositionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := PositionInfo{TradingSymbol: tradingSymbol, Side: "NONE"}
	if qty := s.pos[tradingSymbol]; qty > 0 {
		info.Quantity = qty
		info.Side = "LONG"
	}
	return info, nil
}

func (s *Simulator) GetAvailableMargin(ctx context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.margin, nil
}

func (s *Simulator) SubmitOrder(ctx context.Context, req order.OrderRequest) (SubmitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loggedIn {
		return SubmitResult{}, fmt.Errorf("not authenticated")
	}
	if req.Quantity <= 0 {
		return SubmitResult{OK: false, Message: "invalid quantity"}, nil
	}

	orderID := uuid.NewString()
	s.orders[orderID] = StatusComplete

	qty := float64(req.Quantity)
	switch req.Side {
	case "BUY":
		s.pos[req.TradingSymbol] += qty
		s.margin -= req.Price * qty
	case "SELL":
		s.pos[req.TradingSymbol] -= qty
		if s.pos[req.TradingSymbol] < 0 {
			s.pos[req.TradingSymbol] = 0
		}
		s.margin += req.Price * qty
	}

	return SubmitResult{OK: true, OrderID: orderID}, nil
}

func (s *Simulator) GetOrderStatus(ctx context.Context, orderID string) (OrderStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, ok := s.orders[orderID]
	if !ok {
		return OrderStatus{Found: false}, nil
	}
	return OrderStatus{Found: true, Status: status}, nil
}

// SyntheticCandles builds a deterministic walk of valid candles ending at
// end, one per interval. Handy for paper sessions without a data feed.
func SyntheticCandles(symbol, interval string, count int, base float64, end time.Time) []candle.Candle {
	duration := tfutils.GetTimeframeDuration(interval)
	candles := make([]candle.Candle, 0, count)
	price := base
	for i := count - 1; i >= 0; i-- {
		// Small deterministic oscillation around the base price.
		step := float64((i%7)-3) * base * 0.001
		open := price
		close := price + step
		high := open
		if close > high {
			high = close
		}
		low := open
		if close < low {
			low = close
		}
		candles = append(candles, candle.Candle{
			Timestamp: end.Add(-time.Duration(i) * duration),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     close,
			Volume:    1,
			Symbol:    symbol,
			Timeframe: interval,
			Source:    "simulator",
		})
		price = close
	}
	return candles
}
