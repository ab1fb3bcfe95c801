package merge

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdaptiveN(t *testing.T) {
	got, err := AdaptiveN(vec(t, 1), vec(t, 2), vec(t, 3))
	require.NoError(t, err)
	assert.InDelta(t, 14.0/6.0, got.Floats()[0], 1e-12)

	t.Run("alle normen null", func(t *testing.T) {
		got, err := AdaptiveN(vec(t, 0, 0), vec(t, 0, 0), vec(t, 0))
		require.NoError(t, err)
		assert.Equal(t, []float64{0, 0}, got.Floats())
		for _, f := range got.Floats() {
			assert.False(t, math.IsNaN(f))
		}
	})

	t.Run("unterschiedliche shapes", func(t *testing.T) {
		got, err := AdaptiveN(vec(t, 3, 4), vec(t, 5), vec(t, 0, 0, 10))
		require.NoError(t, err)
		assert.Equal(t, []int{3}, got.Shape())
	})

	t.Run("ein tensor", func(t *testing.T) {
		x := vec(t, 7)
		got, err := AdaptiveN(x)
		require.NoError(t, err)
		assert.Same(t, x, got)
	})

	t.Run("rang", func(t *testing.T) {
		_, err := AdaptiveN(vec(t, 1), tensorOf(t, []int{1, 1}, 1))
		assert.ErrorIs(t, err, ErrRankMismatch)
	})
}

func TestAdditiveN(t *testing.T) {
	got, err := AdditiveN(vec(t, 1), vec(t, 2), vec(t, 3), vec(t, 4))
	require.NoError(t, err)
	assert.Equal(t, []float64{2.5}, got.Floats())

	x := vec(t, 7)
	got, err = AdditiveN(x)
	require.NoError(t, err)
	assert.Same(t, x, got)

	_, err = AdditiveN()
	assert.Error(t, err)
}
