package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func TestPeakWeights(t *testing.T) {
	rates := [][]float64{
		{0, 0, 0},
		{2, -4, 1},
		{-1, 0.5, 0.25},
	}

	got, err := PeakWeights(rates, 3)
	require.NoError(t, err)

	want := []float64{1, 1, 0.25}
	assert.True(t, floats.EqualApprox(want, got, 1e-12), "got %v", got)
}

func TestPeakWeightsMismatchedRow(t *testing.T) {
	_, err := PeakWeights([][]float64{{1, 2}, {1}}, 2)
	assert.Error(t, err)
}

func TestPeakWeightsNoReactions(t *testing.T) {
	got, err := PeakWeights([][]float64{{}, {}}, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPeak(t *testing.T) {
	v, i := Peak([]float64{300, 1800, 2100, 2050})
	assert.Equal(t, 2100.0, v)
	assert.Equal(t, 2, i)

	_, i = Peak(nil)
	assert.Equal(t, -1, i)
}
