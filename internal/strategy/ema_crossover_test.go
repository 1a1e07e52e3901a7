// Package strategy
package strategy

import (
	"testing"
	"time"

	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/candle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seriesFromCloses(start time.Time, closes []float64) []candle.Candle {
	series := make([]candle.Candle, len(closes))
	for i, c := range closes {
		series[i] = candle.Candle{
			Timestamp: start.Add(time.Duration(i) * time.Minute),
			Open:      c,
			High:      c,
			Low:       c,
			Close:     c,
			Volume:    1,
			Symbol:    "RELIANCE-EQ",
			Timeframe: "1m",
			Source:    "test",
		}
	}
	return series
}

func TestNewEMACrossover_Windows(t *testing.T) {
	tests := []struct {
		name        string
		short, long int
		wantErr     bool
	}{
		{"valid windows", 9, 21, false},
		{"short equals long", 9, 9, true},
		{"short above long", 21, 9, true},
		{"zero short", 0, 21, true},
		{"negative long", 9, -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEMACrossover("RELIANCE-EQ", tt.short, tt.long)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrBadWindows)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDetect_InsufficientData(t *testing.T) {
	s, err := NewEMACrossover("RELIANCE-EQ", 2, 4)
	require.NoError(t, err)

	start := time.Date(2025, 6, 2, 9, 15, 0, 0, time.UTC)

	_, err = s.Detect(seriesFromCloses(start, []float64{10}))
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = s.Detect(nil)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestDetect_FlatSeriesHasNoEvent(t *testing.T) {
	s, err := NewEMACrossover("RELIANCE-EQ", 2, 4)
	require.NoError(t, err)

	start := time.Date(2025, 6, 2, 9, 15, 0, 0, time.UTC)
	event, err := s.Detect(seriesFromCloses(start, []float64{10, 10, 10, 10, 10}))
	require.NoError(t, err)
	assert.Nil(t, event)
}

func TestDetect_UpCrossoverAtJump(t *testing.T) {
	s, err := NewEMACrossover("RELIANCE-EQ", 2, 4)
	require.NoError(t, err)

	start := time.Date(2025, 6, 2, 9, 15, 0, 0, time.UTC)
	series := seriesFromCloses(start, []float64{10, 10, 10, 10, 20, 20, 20})

	event, err := s.Detect(series)
	require.NoError(t, err)
	require.NotNil(t, event)

	// Short EMA reacts faster to the jump, so the sign flips exactly there
	// and never again afterwards.
	assert.Equal(t, 4, event.Index)
	assert.Equal(t, Up, event.Direction)
	assert.Equal(t, series[4].Timestamp, event.Timestamp)
	assert.Greater(t, event.ShortAvg, event.LongAvg)
}

func TestDetect_ReportsLastCrossover(t *testing.T) {
	s, err := NewEMACrossover("RELIANCE-EQ", 2, 4)
	require.NoError(t, err)

	start := time.Date(2025, 6, 2, 9, 15, 0, 0, time.UTC)
	closes := []float64{10, 20, 10, 10, 10, 30}

	// The prefix ends on a down crossover...
	prefix, err := s.Detect(seriesFromCloses(start, closes[:5]))
	require.NoError(t, err)
	require.NotNil(t, prefix)
	assert.Equal(t, Down, prefix.Direction)
	assert.Equal(t, 2, prefix.Index)

	// ...but the full series crosses back up at the tail, and only the
	// latest event is reported.
	event, err := s.Detect(seriesFromCloses(start, closes))
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, 5, event.Index)
	assert.Equal(t, Up, event.Direction)
}

func TestGateFreshness(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	validity := 5 * time.Minute

	up := func(ts time.Time) *CrossoverEvent {
		return &CrossoverEvent{Index: 1, Timestamp: ts, Direction: Up}
	}

	tests := []struct {
		name       string
		event      *CrossoverEvent
		wantKind   SignalKind
		wantReason string
	}{
		{"no event", nil, None, ReasonNoFreshCrossover},
		{"fresh crossover", up(now.Add(-time.Minute)), Buy, ReasonFreshCrossover},
		{"crossover right now", up(now), Buy, ReasonFreshCrossover},
		{"exactly at validity boundary", up(now.Add(-validity)), Buy, ReasonFreshCrossover},
		{"one microsecond past boundary", up(now.Add(-validity).Add(-time.Microsecond)), None, ReasonStaleSignal},
		{"timestamp in the future", up(now.Add(time.Second)), None, ReasonStaleSignal},
		{
			"down crossover maps to sell",
			&CrossoverEvent{Index: 1, Timestamp: now, Direction: Down},
			Sell, ReasonFreshCrossover,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, reason := gateFreshness(tt.event, validity, now)
			assert.Equal(t, tt.wantKind, kind)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}

func TestEvaluate_FreshBuySignal(t *testing.T) {
	s, err := NewEMACrossover("RELIANCE-EQ", 2, 4)
	require.NoError(t, err)

	start := time.Date(2025, 6, 2, 9, 15, 0, 0, time.UTC)
	series := seriesFromCloses(start, []float64{10, 10, 10, 10, 20, 20, 20})
	now := series[len(series)-1].Timestamp.Add(30 * time.Second)

	sig, err := s.Evaluate(series, 5*time.Minute, now)
	require.NoError(t, err)

	assert.Equal(t, Buy, sig.Kind)
	assert.Equal(t, ReasonFreshCrossover, sig.Reason)
	assert.Equal(t, series[4].Timestamp, sig.CrossoverTime)
	assert.Equal(t, 20.0, sig.LastClose)
	assert.Greater(t, sig.Diff, 0.0)
	assert.Equal(t, "EMA Crossover", sig.StrategyName)
}

func TestEvaluate_StaleCrossoverYieldsNone(t *testing.T) {
	s, err := NewEMACrossover("RELIANCE-EQ", 2, 4)
	require.NoError(t, err)

	start := time.Date(2025, 6, 2, 9, 15, 0, 0, time.UTC)
	series := seriesFromCloses(start, []float64{10, 10, 10, 10, 20, 20, 20})

	// The crossover happened at index 4 but two flat candles followed;
	// with a short validity window it has already aged out.
	now := series[len(series)-1].Timestamp.Add(30 * time.Second)

	sig, err := s.Evaluate(series, time.Minute, now)
	require.NoError(t, err)

	assert.Equal(t, None, sig.Kind)
	assert.Equal(t, ReasonStaleSignal, sig.Reason)
	assert.Equal(t, series[4].Timestamp, sig.CrossoverTime)
}
