package db

import (
	"context"
	"testing"
	"time"

	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/journal"
	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/order"
	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/position"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_GetOrCreate(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	entry, err := m.GetOrCreate(ctx, "RELIANCE-EQ")
	require.NoError(t, err)
	assert.Equal(t, "RELIANCE-EQ", entry.Symbol)
	assert.Equal(t, position.None, entry.Position)

	entry.Position = position.Long
	entry.LastSignal = "BUY"
	require.NoError(t, m.Save(ctx, entry))

	again, err := m.GetOrCreate(ctx, "RELIANCE-EQ")
	require.NoError(t, err)
	assert.Equal(t, position.Long, again.Position)
	assert.Equal(t, "BUY", again.LastSignal)
}

func TestMemory_Executions(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	rec := order.NewExecutionRecord("RELIANCE-EQ", "BUY", "FRESH_CROSSOVER", order.OrderRequest{
		TradingSymbol: "RELIANCE-EQ",
		Side:          "BUY",
		Type:          "MARKET",
		Quantity:      1,
	})
	require.NoError(t, m.SaveExecution(ctx, rec))

	require.NoError(t, m.MarkExecuted(ctx, rec.ID, "COMPLETE"))
	assert.Error(t, m.MarkExecuted(ctx, "missing-id", "COMPLETE"))

	recs, err := m.GetExecutions(ctx, "RELIANCE-EQ",
		rec.CreatedAt.Add(-time.Minute), rec.CreatedAt.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.True(t, recs[0].Executed)
	assert.Equal(t, "COMPLETE", recs[0].BrokerStatus)

	none, err := m.GetExecutions(ctx, "OTHER", time.Time{}, time.Now())
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemory_Events(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, m.LogEvent(ctx, journal.Event{
		Time: now, Type: "signal", Description: "fresh_crossover",
		Data: map[string]any{"symbol": "RELIANCE-EQ"},
	}))
	require.NoError(t, m.LogEvent(ctx, journal.Event{
		Time: now, Type: "order", Description: "submitted",
	}))

	events, err := m.GetEvents(ctx, "signal", now.Add(-time.Minute), now.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "fresh_crossover", events[0].Description)
}
