// Package candle
package candle

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/tfutils"
)

type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"`
	Source    string    `json:"source"`
}

// IsComplete checks if a candle is complete (not the current interval)
func (c *Candle) IsComplete() bool {
	now := time.Now().UTC()
	candleEnd := c.Timestamp.Add(tfutils.GetTimeframeDuration(c.Timeframe))
	return now.After(candleEnd)
}

// Validate checks if a candle has valid data
func (c *Candle) Validate() error {
	if c.Timestamp.IsZero() {
		return errors.New("candle timestamp is zero")
	}
	if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
		return errors.New("candle prices must be positive")
	}
	if c.High < c.Low {
		return errors.New("candle high cannot be less than low")
	}
	if c.Open < c.Low || c.Open > c.High {
		return errors.New("candle open price must be between high and low")
	}
	if c.Close < c.Low || c.Close > c.High {
		return errors.New("candle close price must be between high and low")
	}
	if c.Volume < 0 {
		return errors.New("candle volume cannot be negative")
	}
	if c.Symbol == "" {
		return errors.New("candle symbol cannot be empty")
	}
	return nil
}

// BuildSeries turns raw broker candles into a clean series: validated,
// sorted ascending by timestamp, duplicate timestamps collapsed to the
// last occurrence. Averaging downstream depends on this ordering.
func BuildSeries(raw []Candle) ([]Candle, error) {
	if len(raw) == 0 {
		return nil, errors.New("empty candle data received")
	}

	series := make([]Candle, 0, len(raw))
	for i, c := range raw {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("invalid candle at index %d: %w", i, err)
		}
		series = append(series, c)
	}

	sort.SliceStable(series, func(i, j int) bool {
		return series[i].Timestamp.Before(series[j].Timestamp)
	})

	deduped := series[:0]
	for _, c := range series {
		if n := len(deduped); n > 0 && deduped[n-1].Timestamp.Equal(c.Timestamp) {
			deduped[n-1] = c
			continue
		}
		deduped = append(deduped, c)
	}

	return deduped, nil
}

// Closes extracts the close prices of a series, aligned index-for-index.
func Closes(series []Candle) []float64 {
	closes := make([]float64, len(series))
	for i, c := range series {
		closes[i] = c.Close
	}
	return closes
}
