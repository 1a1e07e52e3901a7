// Package engine
package engine

import (
	"context"
	"fmt"

	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/config"
	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/strategy"
	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/utils"
)

// InstrumentResult pairs one requested instrument with its cycle result.
type InstrumentResult struct {
	Symbol string `json:"symbol"`
	Result Result `json:"result"`
}

// RunBatch authenticates once and runs the pipeline for every instrument
// sequentially over the shared session. One instrument's failure becomes
// its own result entry and never aborts the rest: the returned slice has
// exactly one entry per requested instrument, in input order.
func (e *Engine) RunBatch(ctx context.Context, instruments []config.InstrumentConfig, force strategy.SignalKind) []InstrumentResult {
	results := make([]InstrumentResult, 0, len(instruments))

	// Login once; broker sessions are rate-limited and must be shared
	// across the whole batch.
	if err := e.broker.Authenticate(ctx); err != nil {
		utils.GetLogger().Printf("Engine | batch login failed: %v", err)
		for _, inst := range instruments {
			results = append(results, InstrumentResult{
				Symbol: inst.TradingSymbol,
				Result: Result{Outcome: Outcome{
					State:  StateFailed,
					Reason: fmt.Sprintf("broker login failed: %v", err),
				}},
			})
		}
		return results
	}

	for _, inst := range instruments {
		result, err := e.RunInstrument(ctx, inst, force)
		if err != nil {
			utils.GetLogger().Printf("Engine | [%s] cycle failed: %v", inst.TradingSymbol, err)
			result = Result{Outcome: Outcome{State: StateFailed, Reason: err.Error()}}
		}
		results = append(results, InstrumentResult{Symbol: inst.TradingSymbol, Result: result})
	}

	return results
}
