// Package engine coordinates signal evaluation, order safety, and broker
// execution for one instrument at a time.
package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/broker"
	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/config"
	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/db"
	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/journal"
	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/notifier"
	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/order"
	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/position"
	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/strategy"
	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/utils"
)

// State is the terminal outcome of one execution attempt.
type State string

const (
	StateCompleted State = "COMPLETED" // order confirmed, ledger mutated
	StateFailed    State = "FAILED"    // broker/network error, no mutation
	StateBlocked   State = "BLOCKED"   // safety rule tripped, no mutation
	StateSkipped   State = "SKIPPED"   // no actionable signal
	StateDisabled  State = "DISABLED"  // kill switch forbids live orders
	StateDryRun    State = "DRY_RUN"   // simulation stop, payload reported
	StateUnknown   State = "UNKNOWN"   // order submitted, status unresolved
)

// Outcome describes how one execution attempt ended.
type Outcome struct {
	State        State               `json:"state"`
	Reason       string              `json:"reason,omitempty"`
	OrderID      string              `json:"order_id,omitempty"`
	BrokerStatus string              `json:"broker_status,omitempty"`
	Payload      *order.OrderRequest `json:"payload,omitempty"`
}

// ExecutorOptions control the execution mode and safety layers.
type ExecutorOptions struct {
	DryRun             bool
	LiveTradingEnabled bool
	CheckMargin        bool
	PriceBandPercent   float64
}

// Executor is the order-execution state machine. Given a signal it
// reconciles the position ledger against the broker, applies safety
// checks, submits, polls for a terminal status, and mutates the ledger
// only on confirmed completion.
type Executor struct {
	broker   broker.Broker
	storage  db.Storage
	notifier notifier.Notifier
	opts     ExecutorOptions
}

func NewExecutor(b broker.Broker, storage db.Storage, n notifier.Notifier, opts ExecutorOptions) *Executor {
	if n == nil {
		n = notifier.NoopNotifier{}
	}
	return &Executor{broker: b, storage: storage, notifier: n, opts: opts}
}

// Execute runs the state machine for one signal. Every failure is folded
// into a terminal Outcome; nothing escapes the instrument boundary.
//
// Ordering is load-bearing: reconciliation before safety checks before
// submission, so safety checks always see the broker-true position.
func (e *Executor) Execute(ctx context.Context, inst config.InstrumentConfig, sig strategy.Signal) Outcome {
	if sig.Kind != strategy.Buy && sig.Kind != strategy.Sell {
		reason := sig.Reason
		if reason == "" {
			reason = "no valid signal"
		}
		return Outcome{State: StateSkipped, Reason: reason}
	}

	// RECONCILING: the broker is the source of truth. Drift is logged and
	// overwritten, never treated as an error.
	brokerPos, err := e.broker.GetPosition(ctx, inst.TradingSymbol)
	if err != nil {
		return e.failed(ctx, inst, sig, fmt.Errorf("position reconciliation: %w", err))
	}

	entry, err := e.storage.GetOrCreate(ctx, inst.TradingSymbol)
	if err != nil {
		return e.failed(ctx, inst, sig, fmt.Errorf("loading trade state: %w", err))
	}

	brokerSide := position.None
	if brokerPos.Side == "LONG" {
		brokerSide = position.Long
	}

	if entry.Position != brokerSide {
		utils.GetLogger().Printf("Engine | [%s] position sync: %s -> %s", inst.TradingSymbol, entry.Position, brokerSide)
		e.logEvent(ctx, journal.Event{
			Time:        time.Now().UTC(),
			Type:        "reconciliation",
			Description: "ledger_overwritten_from_broker",
			Data: map[string]any{
				"symbol": inst.TradingSymbol,
				"ledger": string(entry.Position),
				"broker": string(brokerSide),
			},
		})
		entry.Position = brokerSide
		entry.UpdatedAt = time.Now().UTC()
		// A dry run observes drift but leaves the stored ledger alone.
		if !e.opts.DryRun {
			if err := e.storage.Save(ctx, entry); err != nil {
				return e.failed(ctx, inst, sig, fmt.Errorf("saving reconciled state: %w", err))
			}
		}
	}

	// CHECKING_SAFETY: cheap, local, ordered. No broker call here.
	if inst.Quantity <= 0 {
		return e.blocked(ctx, inst, sig, "invalid quantity")
	}
	if sig.Kind == strategy.Buy && entry.Position == position.Long {
		return e.blocked(ctx, inst, sig, "already long")
	}
	if sig.Kind == strategy.Sell && entry.Position == position.None {
		return e.blocked(ctx, inst, sig, "no position to close")
	}

	// Optional margin layer. A fetch failure counts as insufficient: the
	// broker would reject the order anyway, blocking is just earlier.
	if e.opts.CheckMargin && sig.Kind == strategy.Buy {
		required := sig.LastClose * float64(inst.Quantity)
		margin, err := e.broker.GetAvailableMargin(ctx)
		if err != nil {
			utils.GetLogger().Printf("Engine | [%s] margin check failed: %v", inst.TradingSymbol, err)
			margin = 0
		}
		if margin < required {
			return e.blocked(ctx, inst, sig, "insufficient margin")
		}
	}

	payload := e.buildPayload(inst, sig)
	rec := order.NewExecutionRecord(inst.TradingSymbol, string(sig.Kind), sig.Reason, payload)

	// DRY_RUN: report the would-be payload; no order call, no mutation.
	if e.opts.DryRun {
		rec.BrokerStatus = string(StateDryRun)
		e.saveRecord(ctx, rec)
		return Outcome{State: StateDryRun, Payload: &payload}
	}

	// Kill switch, deliberately last: dry runs above still exercise and
	// report the full decision trail.
	if !e.opts.LiveTradingEnabled {
		rec.BrokerStatus = string(StateDisabled)
		e.saveRecord(ctx, rec)
		e.logEvent(ctx, journal.Event{
			Time:        time.Now().UTC(),
			Type:        "order",
			Description: "kill_switch_disabled",
			Data:        map[string]any{"symbol": inst.TradingSymbol, "signal": string(sig.Kind)},
		})
		return Outcome{State: StateDisabled, Reason: "live trading disabled"}
	}

	// SUBMITTING
	utils.GetLogger().Printf("Engine | [%s] live order attempt: %s qty=%d", inst.TradingSymbol, sig.Kind, inst.Quantity)
	e.notifier.SendWithRetry(fmt.Sprintf("Live order attempt: %s %s qty=%d", sig.Kind, inst.TradingSymbol, inst.Quantity))

	res, err := e.broker.SubmitOrder(ctx, payload)
	if err != nil {
		rec.BrokerStatus = string(StateFailed)
		e.saveRecord(ctx, rec)
		return e.failed(ctx, inst, sig, fmt.Errorf("order submission: %w", err))
	}
	if !res.OK || res.OrderID == "" {
		msg := res.Message
		if msg == "" {
			msg = "no order ID returned"
		}
		rec.BrokerStatus = string(StateFailed)
		e.saveRecord(ctx, rec)
		e.logEvent(ctx, journal.Event{
			Time:        time.Now().UTC(),
			Type:        "order",
			Description: "submission_rejected",
			Data:        map[string]any{"symbol": inst.TradingSymbol, "message": msg},
		})
		return Outcome{State: StateFailed, Reason: msg}
	}

	rec.OrderID = res.OrderID
	e.logEvent(ctx, journal.Event{
		Time:        time.Now().UTC(),
		Type:        "order",
		Description: "submitted",
		Data:        map[string]any{"symbol": inst.TradingSymbol, "order_id": res.OrderID},
	})

	// POLLING: one status pass per cycle. An order that cannot be located
	// stays UNKNOWN; the next cycle re-polls instead of busy-waiting here.
	status, err := e.broker.GetOrderStatus(ctx, res.OrderID)
	if err != nil {
		rec.BrokerStatus = string(StateUnknown)
		e.saveRecord(ctx, rec)
		return Outcome{
			State:        StateFailed,
			Reason:       fmt.Sprintf("order status poll: %v", err),
			OrderID:      res.OrderID,
			BrokerStatus: string(StateUnknown),
		}
	}
	if !status.Found {
		rec.BrokerStatus = string(StateUnknown)
		e.saveRecord(ctx, rec)
		return Outcome{State: StateUnknown, Reason: "order not found in order history", OrderID: res.OrderID, BrokerStatus: string(StateUnknown)}
	}

	rec.BrokerStatus = status.Status

	switch status.Status {
	case broker.StatusComplete:
		// Confirmed completion is the single point that mutates the ledger.
		newPosition := position.Long
		if sig.Kind == strategy.Sell {
			newPosition = position.None
		}
		entry.Position = newPosition
		entry.LastSignal = string(sig.Kind)
		entry.UpdatedAt = time.Now().UTC()
		if err := e.storage.Save(ctx, entry); err != nil {
			// The order filled but the ledger write failed; surface loudly,
			// the next reconciliation will repair the ledger.
			utils.GetLogger().Printf("Engine | [%s] ledger update after fill failed: %v", inst.TradingSymbol, err)
			e.notifier.SendWithRetry(fmt.Sprintf("Ledger update failed after fill of %s: %v", res.OrderID, err))
		}
		rec.Executed = true
		e.saveRecord(ctx, rec)
		return Outcome{State: StateCompleted, OrderID: res.OrderID, BrokerStatus: status.Status}

	case "REJECTED", "CANCELED", "CANCELLED", "EXPIRED":
		e.saveRecord(ctx, rec)
		return Outcome{State: StateFailed, Reason: "order " + status.Status, OrderID: res.OrderID, BrokerStatus: status.Status}

	default:
		e.saveRecord(ctx, rec)
		return Outcome{State: StateUnknown, Reason: "order not terminal yet", OrderID: res.OrderID, BrokerStatus: status.Status}
	}
}

// buildPayload builds a market order with a protective limit derived from
// the last close: a bounded premium above it for buys, a bounded discount
// below it for sells, so a slipping market cannot fill far from the
// observed price.
func (e *Executor) buildPayload(inst config.InstrumentConfig, sig strategy.Signal) order.OrderRequest {
	band := e.opts.PriceBandPercent / 100.0
	price := sig.LastClose * (1 + band)
	if sig.Kind == strategy.Sell {
		price = sig.LastClose * (1 - band)
	}

	return order.OrderRequest{
		SymbolToken:   inst.SymbolToken,
		TradingSymbol: inst.TradingSymbol,
		Exchange:      inst.Exchange,
		Side:          string(sig.Kind),
		Type:          "MARKET",
		Price:         math.Round(price*100) / 100,
		Quantity:      inst.Quantity,
	}
}

// blocked records a safety stop. Blocked attempts leave an audit trail
// like every other attempt; the record carries the payload that would
// have been submitted.
func (e *Executor) blocked(ctx context.Context, inst config.InstrumentConfig, sig strategy.Signal, reason string) Outcome {
	rec := order.NewExecutionRecord(inst.TradingSymbol, string(sig.Kind), sig.Reason, e.buildPayload(inst, sig))
	rec.BrokerStatus = string(StateBlocked)
	e.saveRecord(ctx, rec)
	e.logEvent(ctx, journal.Event{
		Time:        time.Now().UTC(),
		Type:        "order",
		Description: "execution_blocked",
		Data: map[string]any{
			"symbol": inst.TradingSymbol,
			"signal": string(sig.Kind),
			"reason": reason,
		},
	})
	return Outcome{State: StateBlocked, Reason: reason}
}

func (e *Executor) failed(ctx context.Context, inst config.InstrumentConfig, sig strategy.Signal, err error) Outcome {
	utils.GetLogger().Printf("Engine | [%s] execution failed: %v", inst.TradingSymbol, err)
	e.logEvent(ctx, journal.Event{
		Time:        time.Now().UTC(),
		Type:        "error",
		Description: "execution_failed",
		Data: map[string]any{
			"symbol": inst.TradingSymbol,
			"signal": string(sig.Kind),
			"error":  err.Error(),
		},
	})
	return Outcome{State: StateFailed, Reason: err.Error()}
}

func (e *Executor) saveRecord(ctx context.Context, rec order.ExecutionRecord) {
	if err := e.storage.SaveExecution(ctx, rec); err != nil {
		utils.GetLogger().Printf("Engine | [%s] failed to save execution record: %v", rec.Symbol, err)
	}
}

func (e *Executor) logEvent(ctx context.Context, event journal.Event) {
	if err := e.storage.LogEvent(ctx, event); err != nil {
		utils.GetLogger().Printf("Engine | failed to journal event %s: %v", event.Description, err)
	}
}
