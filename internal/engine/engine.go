// Package engine
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/broker"
	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/candle"
	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/config"
	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/db"
	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/journal"
	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/notifier"
	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/strategy"
	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/utils"
)

// Result is the structured output of one instrument cycle.
type Result struct {
	Signal  strategy.Signal `json:"signal"`
	Outcome Outcome         `json:"outcome"`
}

// Engine runs the per-instrument pipeline: fetch candles, detect a
// crossover, gate freshness, and hand a fresh signal to the executor.
type Engine struct {
	broker      broker.Broker
	storage     db.Storage
	executor    *Executor
	strategyFor func(config.InstrumentConfig) (strategy.Strategy, error)
	now         func() time.Time
}

func New(b broker.Broker, storage db.Storage, n notifier.Notifier, opts ExecutorOptions) *Engine {
	return &Engine{
		broker:   b,
		storage:  storage,
		executor: NewExecutor(b, storage, n, opts),
		strategyFor: func(inst config.InstrumentConfig) (strategy.Strategy, error) {
			return strategy.NewEMACrossover(inst.TradingSymbol, inst.ShortWindow, inst.LongWindow)
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

// RunInstrument executes one full cycle for a single instrument. The force
// override replaces the gated signal kind for testing live plumbing; it is
// an explicit argument, never ambient state.
func (e *Engine) RunInstrument(ctx context.Context, inst config.InstrumentConfig, force strategy.SignalKind) (Result, error) {
	raw, err := e.broker.FetchRecentCandles(ctx, inst.SymbolToken, inst.Timeframe, inst.CandleCount)
	if err != nil {
		return Result{}, fmt.Errorf("fetching candles for %s: %w", inst.SymbolToken, err)
	}

	series, err := candle.BuildSeries(raw)
	if err != nil {
		return Result{}, fmt.Errorf("building series for %s: %w", inst.SymbolToken, err)
	}

	if last := series[len(series)-1]; !last.IsComplete() {
		utils.GetLogger().Printf("Engine | [%s] latest candle still forming, evaluating anyway", inst.TradingSymbol)
	}

	strat, err := e.strategyFor(inst)
	if err != nil {
		return Result{}, fmt.Errorf("configuring strategy for %s: %w", inst.SymbolToken, err)
	}
	if len(series) < strat.WarmupPeriod() {
		utils.GetLogger().Printf("Engine | [%s] %d candles is under the %s warmup of %d, averages may not be settled",
			inst.TradingSymbol, len(series), strat.Name(), strat.WarmupPeriod())
	}

	sig, err := strat.Evaluate(series, inst.Validity, e.now())
	if err != nil {
		return Result{}, fmt.Errorf("evaluating strategy for %s: %w", inst.SymbolToken, err)
	}

	if force == strategy.Buy || force == strategy.Sell {
		utils.GetLogger().Printf("Engine | [%s] force signal enabled: %s", inst.TradingSymbol, force)
		sig.Kind = force
		sig.Reason = strategy.ReasonForcedSignal
	}

	if err := e.storage.LogEvent(ctx, journal.Event{
		Time:        sig.Time,
		Type:        "signal",
		Description: sig.Reason,
		Data: map[string]any{
			"symbol":     sig.Symbol,
			"kind":       string(sig.Kind),
			"last_close": sig.LastClose,
			"short_avg":  sig.ShortAvg,
			"long_avg":   sig.LongAvg,
			"diff":       sig.Diff,
		},
	}); err != nil {
		utils.GetLogger().Printf("Engine | [%s] failed to journal signal: %v", inst.TradingSymbol, err)
	}

	outcome := e.executor.Execute(ctx, inst, sig)
	return Result{Signal: sig, Outcome: outcome}, nil
}
