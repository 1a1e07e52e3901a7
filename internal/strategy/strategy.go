// Package strategy
package strategy

import (
	"time"

	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/candle"
)

// SignalKind is the trade direction a strategy asks for.
type SignalKind string

const (
	Buy  SignalKind = "BUY"
	Sell SignalKind = "SELL"
	None SignalKind = "NONE"
)

// Named reasons attached to signals. These are observable outputs:
// auditing downstream distinguishes "nothing happened" from "something
// happened too long ago to trust".
const (
	ReasonFreshCrossover   = "FRESH_CROSSOVER"
	ReasonNoFreshCrossover = "NO_FRESH_CROSSOVER"
	ReasonStaleSignal      = "STALE_SIGNAL"
	ReasonForcedSignal     = "FORCED_SIGNAL"
)

// Signal is the outcome of one strategy evaluation over a candle series.
type Signal struct {
	Time          time.Time  `json:"time"`
	Kind          SignalKind `json:"kind"`
	Reason        string     `json:"reason"`
	StrategyName  string     `json:"strategy_name"`
	Symbol        string     `json:"symbol"`
	CrossoverTime time.Time  `json:"crossover_time"`
	LastClose     float64    `json:"last_close"`
	ShortAvg      float64    `json:"short_avg"`
	LongAvg       float64    `json:"long_avg"`
	Diff          float64    `json:"diff"`
}

// Strategy is the interface for all signal-generating strategies.
type Strategy interface {
	Name() string
	Symbol() string
	Evaluate(series []candle.Candle, validity time.Duration, now time.Time) (Signal, error)
	WarmupPeriod() int
}
