package indicator

// CalculateEMA computes the exponential moving average of values with
// smoothing factor 2/(period+1), aligned to the input length.
//
// The average is unadjusted: out[0] equals values[0] and every later
// point is the recursive blend of the new value with the previous
// average. There is no warm-up window, so restarting the series resets
// the average. Returns nil for an empty input or non-positive period.
func CalculateEMA(values []float64, period int) []float64 {
	if len(values) == 0 || period <= 0 {
		return nil
	}

	alpha := 2.0 / float64(period+1)

	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = values[i]*alpha + out[i-1]*(1-alpha)
	}
	return out
}

// Diff returns a[i]-b[i] for two equal-length series.
func Diff(a, b []float64) []float64 {
	if len(a) != len(b) {
		return nil
	}
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] - b[i]
	}
	return out
}
