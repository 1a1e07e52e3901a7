// Package broker
package broker

import (
	"context"
	"testing"
	"time"

	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/order"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulator_RequiresAuthentication(t *testing.T) {
	sim := NewSimulator(1000)

	_, err := sim.SubmitOrder(context.Background(), order.OrderRequest{
		TradingSymbol: "BTC-USDT",
		Side:          "BUY",
		Quantity:      1,
		Price:         100,
	})
	assert.Error(t, err)

	require.NoError(t, sim.Authenticate(context.Background()))
	res, err := sim.SubmitOrder(context.Background(), order.OrderRequest{
		TradingSymbol: "BTC-USDT",
		Side:          "BUY",
		Quantity:      1,
		Price:         100,
	})
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.NotEmpty(t, res.OrderID)
}

func TestSimulator_FillUpdatesPositionAndMargin(t *testing.T) {
	sim := NewSimulator(1000)
	require.NoError(t, sim.Authenticate(context.Background()))

	res, err := sim.SubmitOrder(context.Background(), order.OrderRequest{
		TradingSymbol: "BTC-USDT",
		Side:          "BUY",
		Quantity:      2,
		Price:         100,
	})
	require.NoError(t, err)

	status, err := sim.GetOrderStatus(context.Background(), res.OrderID)
	require.NoError(t, err)
	assert.True(t, status.Found)
	assert.Equal(t, StatusComplete, status.Status)

	pos, err := sim.GetPosition(context.Background(), "BTC-USDT")
	require.NoError(t, err)
	assert.Equal(t, "LONG", pos.Side)
	assert.Equal(t, 2.0, pos.Quantity)

	margin, err := sim.GetAvailableMargin(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 800.0, margin)

	// Selling the full quantity flattens the position and returns margin.
	_, err = sim.SubmitOrder(context.Background(), order.OrderRequest{
		TradingSymbol: "BTC-USDT",
		Side:          "SELL",
		Quantity:      2,
		Price:         100,
	})
	require.NoError(t, err)

	pos, err = sim.GetPosition(context.Background(), "BTC-USDT")
	require.NoError(t, err)
	assert.Equal(t, "NONE", pos.Side)

	margin, err = sim.GetAvailableMargin(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1000.0, margin)
}

func TestSimulator_UnknownOrderNotFound(t *testing.T) {
	sim := NewSimulator(1000)
	status, err := sim.GetOrderStatus(context.Background(), "no-such-order")
	require.NoError(t, err)
	assert.False(t, status.Found)
}

func TestSimulator_FetchRecentCandles(t *testing.T) {
	sim := NewSimulator(1000)
	end := time.Date(2025, 6, 2, 9, 15, 0, 0, time.UTC)
	sim.LoadCandles("BTC-USDT", SyntheticCandles("BTC-USDT", "1m", 50, 100, end))

	candles, err := sim.FetchRecentCandles(context.Background(), "BTC-USDT", "1m", 10)
	require.NoError(t, err)
	require.Len(t, candles, 10)
	assert.Equal(t, end, candles[len(candles)-1].Timestamp)

	_, err = sim.FetchRecentCandles(context.Background(), "ETH-USDT", "1m", 10)
	assert.Error(t, err)

	_, err = sim.FetchRecentCandles(context.Background(), "BTC-USDT", "2m", 10)
	assert.Error(t, err)
}

func TestSyntheticCandles_AreValidAndOrdered(t *testing.T) {
	end := time.Date(2025, 6, 2, 9, 15, 0, 0, time.UTC)
	candles := SyntheticCandles("BTC-USDT", "5m", 20, 100, end)
	require.Len(t, candles, 20)

	for i, c := range candles {
		require.NoError(t, c.Validate(), "candle %d", i)
		if i > 0 {
			assert.True(t, c.Timestamp.After(candles[i-1].Timestamp))
		}
	}
	assert.Equal(t, end, candles[19].Timestamp)
}
