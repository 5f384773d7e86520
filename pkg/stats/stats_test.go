package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuantileLinearInterpolation(t *testing.T) {
	values := []float64{100, 1, 4, 2, 3}

	q1, q3, iqr, err := Quartiles(values)
	require.NoError(t, err)
	assert.Equal(t, 2.0, q1)
	assert.Equal(t, 4.0, q3)
	assert.Equal(t, 2.0, iqr)

	// input order is untouched
	assert.Equal(t, []float64{100, 1, 4, 2, 3}, values)

	q, err := Quantile([]float64{1, 2, 3, 4}, 0.25)
	require.NoError(t, err)
	assert.InDelta(t, 1.75, q, 1e-12)

	q, err = Quantile([]float64{7}, 0.75)
	require.NoError(t, err)
	assert.Equal(t, 7.0, q)

	_, err = Quantile(nil, 0.5)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestMeanStdDevMedian(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	mean, err := Mean(values)
	require.NoError(t, err)
	assert.Equal(t, 5.0, mean)

	std, err := StdDev(values)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, std, 1e-12)

	median, err := Median(values)
	require.NoError(t, err)
	assert.Equal(t, 4.5, median)

	lo, hi, err := MinMax(values)
	require.NoError(t, err)
	assert.Equal(t, 2.0, lo)
	assert.Equal(t, 9.0, hi)
}

func TestModeTieBreaksOnFirstSeen(t *testing.T) {
	mode, count, ok := Mode([]string{"b", "a", "a", "b", "c"})
	require.True(t, ok)
	assert.Equal(t, "b", mode)
	assert.Equal(t, 2, count)

	_, _, ok = Mode(nil)
	assert.False(t, ok)
}
