// Package strategy
package strategy

import (
	"errors"
	"fmt"
	"time"

	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/candle"
	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/indicator"
	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/utils"
)

var (
	// ErrInsufficientData means the series is too short for crossover detection.
	ErrInsufficientData = errors.New("not enough candles for crossover detection")

	// ErrBadWindows means the averaging windows are misconfigured.
	ErrBadWindows = errors.New("short window must be positive and smaller than long window")
)

// Direction of a crossover: short average crossing above or below the long one.
type Direction string

const (
	Up   Direction = "UP"
	Down Direction = "DOWN"
)

// CrossoverEvent is the last index where the sign of (shortAvg - longAvg)
// changed relative to the previous index.
type CrossoverEvent struct {
	Index     int       `json:"index"`
	Timestamp time.Time `json:"timestamp"`
	Direction Direction `json:"direction"`
	ShortAvg  float64   `json:"short_avg"`
	LongAvg   float64   `json:"long_avg"`
}

var _ Strategy = (*EMACrossover)(nil)

// EMACrossover detects crossovers between a short and a long exponential
// moving average over close prices.
type EMACrossover struct {
	symbol      string
	ShortWindow int
	LongWindow  int
}

// NewEMACrossover creates the strategy, validating the averaging windows.
func NewEMACrossover(symbol string, shortWindow, longWindow int) (*EMACrossover, error) {
	if shortWindow <= 0 || longWindow <= 0 || shortWindow >= longWindow {
		return nil, fmt.Errorf("%w: short=%d long=%d", ErrBadWindows, shortWindow, longWindow)
	}
	return &EMACrossover{
		symbol:      symbol,
		ShortWindow: shortWindow,
		LongWindow:  longWindow,
	}, nil
}

// Name returns the name of the strategy
func (s *EMACrossover) Name() string { return "EMA Crossover" }

// Symbol returns the symbol this strategy is configured for
func (s *EMACrossover) Symbol() string { return s.symbol }

// WarmupPeriod returns the number of candles needed before averages settle
func (s *EMACrossover) WarmupPeriod() int { return s.LongWindow }

// averages computes both moving averages over the closes. One pass per
// cycle; both Detect and Evaluate feed off the same pair.
func (s *EMACrossover) averages(closes []float64) (shortAvg, longAvg []float64) {
	return indicator.CalculateEMA(closes, s.ShortWindow), indicator.CalculateEMA(closes, s.LongWindow)
}

// Detect scans the whole series and reports the most recent crossover, or
// nil if the diff never changes sign.
func (s *EMACrossover) Detect(series []candle.Candle) (*CrossoverEvent, error) {
	if len(series) < 2 {
		return nil, ErrInsufficientData
	}

	shortAvg, longAvg := s.averages(candle.Closes(series))
	return s.lastCrossover(series, shortAvg, longAvg), nil
}

// lastCrossover finds the most recent sign change of (shortAvg - longAvg).
// The full-series scan matters: checking only the final point would let a
// crossover several candles back look like no event at all, hiding that the
// real signal has already aged out.
//
// A zero diff is never itself a crossover; crossing from zero to a nonzero
// value counts, crossing into zero does not.
func (s *EMACrossover) lastCrossover(series []candle.Candle, shortAvg, longAvg []float64) *CrossoverEvent {
	diff := indicator.Diff(shortAvg, longAvg)

	var event *CrossoverEvent
	for i := 1; i < len(diff); i++ {
		crossedUp := diff[i] > 0 && diff[i-1] <= 0
		crossedDown := diff[i] < 0 && diff[i-1] >= 0
		if !crossedUp && !crossedDown {
			continue
		}

		dir := Up
		if crossedDown {
			dir = Down
		}
		event = &CrossoverEvent{
			Index:     i,
			Timestamp: series[i].Timestamp,
			Direction: dir,
			ShortAvg:  shortAvg[i],
			LongAvg:   longAvg[i],
		}
	}

	return event
}

// Evaluate runs detection and the freshness gate, producing a Signal with
// full diagnostics taken from the latest candle. The averages are computed
// once and shared with detection.
func (s *EMACrossover) Evaluate(series []candle.Candle, validity time.Duration, now time.Time) (Signal, error) {
	if len(series) < 2 {
		return Signal{}, ErrInsufficientData
	}

	shortAvg, longAvg := s.averages(candle.Closes(series))
	event := s.lastCrossover(series, shortAvg, longAvg)

	last := series[len(series)-1]
	n := len(series) - 1

	sig := Signal{
		Time:         now,
		Kind:         None,
		StrategyName: s.Name(),
		Symbol:       s.symbol,
		LastClose:    last.Close,
		ShortAvg:     shortAvg[n],
		LongAvg:      longAvg[n],
		Diff:         shortAvg[n] - longAvg[n],
	}

	kind, reason := gateFreshness(event, validity, now)
	sig.Kind = kind
	sig.Reason = reason
	if event != nil {
		sig.CrossoverTime = event.Timestamp
	}

	if kind != None {
		utils.GetLogger().Printf("Strategy | [%s %s] %s crossover at %s short=%.4f long=%.4f",
			s.symbol, s.Name(), event.Direction, event.Timestamp, event.ShortAvg, event.LongAvg)
	}

	return sig, nil
}

// gateFreshness decides whether a detected crossover is still actionable.
// The crossover timestamp must fall within [now-validity, now], lower bound
// inclusive. The crossover timestamp is compared, not the last candle's:
// a crossover several candles back with fresh candles on top is stale.
func gateFreshness(event *CrossoverEvent, validity time.Duration, now time.Time) (SignalKind, string) {
	if event == nil {
		return None, ReasonNoFreshCrossover
	}

	oldest := now.Add(-validity)
	if event.Timestamp.Before(oldest) || event.Timestamp.After(now) {
		return None, ReasonStaleSignal
	}

	if event.Direction == Up {
		return Buy, ReasonFreshCrossover
	}
	return Sell, ReasonFreshCrossover
}
