// Package engine
package engine

import (
	"context"
	"time"

	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/broker"
	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/config"
	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/journal"
	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/utils"
)

// pendingWindow bounds how far back unresolved executions are re-polled.
const pendingWindow = 24 * time.Hour

// ResolvePendingExecutions re-polls executions whose broker status never
// resolved and marks them executed once the broker reports a fill. It must
// run inside the cycle, never concurrently with a batch: the shared broker
// session has no concurrency contract.
func (e *Engine) ResolvePendingExecutions(ctx context.Context, instruments []config.InstrumentConfig) {
	now := e.now()
	for _, inst := range instruments {
		recs, err := e.storage.GetExecutions(ctx, inst.TradingSymbol, now.Add(-pendingWindow), now)
		if err != nil {
			utils.GetLogger().Printf("Engine | [%s] failed to fetch executions: %v", inst.TradingSymbol, err)
			continue
		}
		for _, rec := range recs {
			if rec.Executed || rec.OrderID == "" || rec.BrokerStatus != string(StateUnknown) {
				continue
			}
			status, err := e.broker.GetOrderStatus(ctx, rec.OrderID)
			if err != nil {
				utils.GetLogger().Printf("Engine | [%s] status re-poll for %s failed: %v", inst.TradingSymbol, rec.OrderID, err)
				continue
			}
			if !status.Found || status.Status != broker.StatusComplete {
				continue
			}

			utils.GetLogger().Printf("Engine | [%s] order %s resolved as complete", inst.TradingSymbol, rec.OrderID)
			if err := e.storage.MarkExecuted(ctx, rec.ID, status.Status); err != nil {
				utils.GetLogger().Printf("Engine | [%s] failed to mark execution %s: %v", inst.TradingSymbol, rec.ID, err)
				continue
			}
			if err := e.storage.LogEvent(ctx, journal.Event{
				Time:        now,
				Type:        "order",
				Description: "resolved_after_repoll",
				Data:        map[string]any{"symbol": inst.TradingSymbol, "order_id": rec.OrderID},
			}); err != nil {
				utils.GetLogger().Printf("Engine | failed to journal re-poll resolution: %v", err)
			}
		}
	}
}
