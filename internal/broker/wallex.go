// Package broker
package broker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/candle"
	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/order"
	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/tfutils"
	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/utils"
	wallex "github.com/wallexchange/wallex-go"
)

// dustThreshold is the minimum base-asset balance treated as an open
// position. Balances below it are leftover rounding, not holdings.
const dustThreshold = 1e-8

// WallexBroker adapts the Wallex exchange client to the Broker capability
// set. Wallex is a spot exchange: "position" is derived from the base-asset
// balance and "margin" from the quote-asset balance.
type WallexBroker struct {
	client     *wallex.Client
	quoteAsset string
}

func NewWallexBroker(apiKey, quoteAsset string) *WallexBroker {
	return &WallexBroker{
		client:     wallex.New(wallex.ClientOptions{APIKey: apiKey}),
		quoteAsset: strings.ToUpper(quoteAsset),
	}
}

func (w *WallexBroker) Name() string {
	return "wallex"
}

// retry wraps a function with retry logic for transient errors, using
// exponential backoff and error logging. Only idempotent reads go through
// it; order submission is never retried.
func retry(attempts int, delay time.Duration, fn func() error) error {
	backoff := delay
	for i := 1; i <= attempts; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		utils.GetLogger().Printf("Broker | Wallex retry attempt %d/%d failed: %v. Backing off for %v", i, attempts, err, backoff)
		time.Sleep(backoff)
		if backoff < 5*time.Minute {
			backoff *= 2
			if backoff > 5*time.Minute {
				backoff = 5 * time.Minute
			}
		}
	}
	return errors.New("all retry attempts failed")
}

// Authenticate verifies the API key with a balances call. Wallex sessions
// are key-based, so this doubles as the one-time login of a batch.
func (w *WallexBroker) Authenticate(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		err := retry(3, 2*time.Second, func() error {
			_, err := w.client.Balances()
			return err
		})
		if err != nil {
			return fmt.Errorf("wallex authentication failed: %w", err)
		}
		return nil
	}
}

func (w *WallexBroker) FetchRecentCandles(ctx context.Context, symbolToken, interval string, count int) ([]candle.Candle, error) {
	duration, err := tfutils.ParseTimeframe(interval)
	if err != nil {
		return nil, fmt.Errorf("unsupported timeframe %s: %w", interval, err)
	}
	if count <= 0 {
		return nil, fmt.Errorf("candle count must be positive, got %d", count)
	}

	end := time.Now().UTC()
	start := end.Add(-duration * time.Duration(count))

	normalizedSymbol := NormalizeSymbol(symbolToken)
	normalizedTimeframe := NormalizedTimeframe(interval)

	var wallexCandles []*wallex.Candle

	select {
	case <-ctx.Done():
		utils.GetLogger().Printf("Broker | %s FetchRecentCandles timeout", w.Name())
		return nil, ctx.Err()

	default:
		err := retry(3, 2*time.Second, func() error {
			var err error
			wallexCandles, err = w.client.Candles(normalizedSymbol, normalizedTimeframe, start, end)
			if err != nil {
				return fmt.Errorf("fetching candles: %w", err)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("FetchRecentCandles failed: %w", err)
		}
	}

	var candles []candle.Candle
	for _, wc := range wallexCandles {
		open, _ := strconv.ParseFloat(string(wc.Open), 64)
		high, _ := strconv.ParseFloat(string(wc.High), 64)
		low, _ := strconv.ParseFloat(string(wc.Low), 64)
		close, _ := strconv.ParseFloat(string(wc.Close), 64)
		volume, _ := strconv.ParseFloat(string(wc.Volume), 64)

		c := candle.Candle{
			Timestamp: wc.Timestamp.UTC().Truncate(time.Minute),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     close,
			Volume:    volume,
			Symbol:    symbolToken,
			Timeframe: interval,
			Source:    w.Name(),
		}

		if err := c.Validate(); err != nil {
			continue // Skip invalid candles
		}

		candles = append(candles, c)
	}

	return candles, nil
}

// GetPosition reports LONG when the base asset of the trading symbol has a
// non-dust balance.
func (w *WallexBroker) GetPosition(ctx context.Context, tradingSymbol string) (PositionInfo, error) {
	select {
	case <-ctx.Done():
		utils.GetLogger().Printf("Broker | %s GetPosition timeout", w.Name())
		return PositionInfo{}, ctx.Err()

	default:
		var balances map[string]*wallex.Balance
		err := retry(3, 2*time.Second, func() error {
			var err error
			balances, err = w.client.Balances()
			if err != nil {
				return fmt.Errorf("fetching balances: %w", err)
			}
			return nil
		})
		if err != nil {
			return PositionInfo{}, fmt.Errorf("GetPosition failed: %w", err)
		}

		info := PositionInfo{TradingSymbol: tradingSymbol, Side: "NONE"}

		base := BaseAsset(tradingSymbol)
		if b, ok := balances[base]; ok {
			available, _ := strconv.ParseFloat(string(b.Value), 64)
			if available > dustThreshold {
				info.Quantity = available
				info.Side = "LONG"
			}
		}

		return info, nil
	}
}

// GetAvailableMargin returns the free quote-asset balance.
func (w *WallexBroker) GetAvailableMargin(ctx context.Context) (float64, error) {
	select {
	case <-ctx.Done():
		utils.GetLogger().Printf("Broker | %s GetAvailableMargin timeout", w.Name())
		return 0, ctx.Err()

	default:
		var balances map[string]*wallex.Balance
		err := retry(3, 2*time.Second, func() error {
			var err error
			balances, err = w.client.Balances()
			if err != nil {
				return fmt.Errorf("fetching balances: %w", err)
			}
			return nil
		})
		if err != nil {
			return 0, fmt.Errorf("GetAvailableMargin failed: %w", err)
		}

		b, ok := balances[w.quoteAsset]
		if !ok {
			return 0, nil
		}
		available, _ := strconv.ParseFloat(string(b.Value), 64)
		return available, nil
	}
}

func (w *WallexBroker) SubmitOrder(ctx context.Context, req order.OrderRequest) (SubmitResult, error) {
	select {
	case <-ctx.Done():
		utils.GetLogger().Printf("Broker | %s SubmitOrder timeout", w.Name())
		return SubmitResult{}, ctx.Err()

	default:
		price := strconv.FormatFloat(req.Price, 'f', 8, 64)
		qty := strconv.Itoa(req.Quantity)

		params := &wallex.OrderParams{
			Symbol:   NormalizeSymbol(req.TradingSymbol),
			Type:     strings.ToUpper(req.Type),
			Side:     strings.ToUpper(req.Side),
			Price:    wallex.Number(price),
			Quantity: wallex.Number(qty),
		}

		resp, err := w.client.PlaceOrder(params)
		if err != nil {
			return SubmitResult{}, err
		}

		if resp.ClientOrderID == "" {
			return SubmitResult{OK: false, Message: "no order ID returned"}, nil
		}

		return SubmitResult{OK: true, OrderID: resp.ClientOrderID}, nil
	}
}

func (w *WallexBroker) GetOrderStatus(ctx context.Context, orderID string) (OrderStatus, error) {
	select {
	case <-ctx.Done():
		utils.GetLogger().Printf("Broker | %s GetOrderStatus timeout", w.Name())
		return OrderStatus{}, ctx.Err()

	default:
		resp, err := w.client.Order(orderID)
		if err != nil {
			return OrderStatus{}, err
		}
		if resp == nil || resp.ClientOrderID == "" {
			return OrderStatus{Found: false}, nil
		}

		status := strings.ToUpper(resp.Status)
		// Wallex reports filled orders as DONE; normalize to the engine's
		// terminal-success status.
		if status == "DONE" || status == "FILLED" {
			status = StatusComplete
		}

		return OrderStatus{Found: true, Status: status}, nil
	}
}

// NormalizeSymbol converts a dashed pair ("BTC-USDT") to exchange form.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.ReplaceAll(symbol, "-", ""))
}

// NormalizedTimeframe maps engine timeframes ("1m", "1h") to Wallex
// chart resolutions.
func NormalizedTimeframe(timeframe string) string {
	return strings.TrimSuffix(timeframe, "m")
}

// BaseAsset extracts the base currency from a trading symbol, e.g.
// "BTC-USDT" -> "BTC".
func BaseAsset(symbol string) string {
	parts := strings.Split(symbol, "-")
	if len(parts) != 2 {
		return strings.ToUpper(symbol)
	}
	return strings.ToUpper(parts[0])
}
