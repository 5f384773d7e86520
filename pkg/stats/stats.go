// Package stats holds the descriptive statistics the transforms are defined over.
package stats

import (
	"errors"
	"math"
	"sort"

	mstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
)

// ErrEmpty is returned when a statistic is requested over no values
var ErrEmpty = errors.New("no values")

// Mean returns the arithmetic mean
func Mean(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrEmpty
	}
	return mstats.Mean(values)
}

// StdDev returns the population standard deviation (divides by n)
func StdDev(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrEmpty
	}
	return mstats.StandardDeviationPopulation(values)
}

// Median returns the middle value, averaging the two central values for even counts
func Median(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrEmpty
	}
	return mstats.Median(values)
}

// MinMax returns the smallest and largest values
func MinMax(values []float64) (float64, float64, error) {
	if len(values) == 0 {
		return 0, 0, ErrEmpty
	}
	return floats.Min(values), floats.Max(values), nil
}

// Quantile returns the q-quantile (0 <= q <= 1) using linear interpolation between the
// closest ranks: h = (n-1)q, result = x[floor(h)] + (h-floor(h))(x[floor(h)+1]-x[floor(h)]).
// The input slice is not modified.
func Quantile(values []float64, q float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrEmpty
	}
	if q < 0 || q > 1 || math.IsNaN(q) {
		return 0, errors.New("quantile must be within [0, 1]")
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	h := float64(len(sorted)-1) * q
	lo := math.Floor(h)
	i := int(lo)
	if i >= len(sorted)-1 {
		return sorted[len(sorted)-1], nil
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i]), nil
}

// Quartiles returns Q1, Q3 and the interquartile range Q3-Q1
func Quartiles(values []float64) (q1, q3, iqr float64, err error) {
	if q1, err = Quantile(values, 0.25); err != nil {
		return 0, 0, 0, err
	}
	if q3, err = Quantile(values, 0.75); err != nil {
		return 0, 0, 0, err
	}
	return q1, q3, q3 - q1, nil
}

// Mode returns the most frequent key. Ties go to the key encountered first.
func Mode(keys []string) (string, int, bool) {
	if len(keys) == 0 {
		return "", 0, false
	}
	counts := make(map[string]int, len(keys))
	best, bestCount := "", 0
	for _, k := range keys {
		counts[k]++
	}
	// second pass in input order so ties resolve to first appearance
	for _, k := range keys {
		if c := counts[k]; c > bestCount {
			best, bestCount = k, c
		}
	}
	return best, bestCount, true
}
