package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateEMA(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		period   int
		expected []float64
		isNil    bool
	}{
		{
			name:     "Seeded from first value",
			values:   []float64{10, 10, 10},
			period:   3,
			expected: []float64{10, 10, 10},
		},
		{
			name:   "Recursive blend period 2",
			values: []float64{10, 20, 30},
			period: 2,
			// alpha = 2/3: 10, 10+2/3*10 = 16.667, 16.667+2/3*13.333 = 25.556
			expected: []float64{10, 16.6666667, 25.5555556},
		},
		{
			name:   "Recursive blend period 4",
			values: []float64{10, 10, 10, 10, 20},
			period: 4,
			// alpha = 0.4: flat until the jump, then 10+0.4*10 = 14
			expected: []float64{10, 10, 10, 10, 14},
		},
		{
			name:     "Single value",
			values:   []float64{42},
			period:   9,
			expected: []float64{42},
		},
		{
			name:   "Empty input",
			values: nil,
			period: 9,
			isNil:  true,
		},
		{
			name:   "Invalid period",
			values: []float64{10, 11},
			period: 0,
			isNil:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CalculateEMA(tt.values, tt.period)
			if tt.isNil {
				assert.Nil(t, result)
				return
			}
			require.Len(t, result, len(tt.expected))
			for i := range tt.expected {
				assert.InDelta(t, tt.expected[i], result[i], 1e-6, "index %d", i)
			}
		})
	}
}

func TestCalculateEMA_NoLookAhead(t *testing.T) {
	// The prefix of a longer series must produce identical values:
	// each point depends only on what came before it.
	full := []float64{10, 12, 11, 15, 14, 18, 17}
	prefix := full[:4]

	fullEMA := CalculateEMA(full, 3)
	prefixEMA := CalculateEMA(prefix, 3)

	require.Len(t, prefixEMA, 4)
	for i := range prefixEMA {
		assert.InDelta(t, fullEMA[i], prefixEMA[i], 1e-12)
	}
}

func TestDiff(t *testing.T) {
	assert.Equal(t, []float64{1, -1, 0}, Diff([]float64{2, 1, 3}, []float64{1, 2, 3}))
	assert.Nil(t, Diff([]float64{1}, []float64{1, 2}))
}
