package merge

import (
	"fmt"
	"os"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loramerge/loramerge/ml"
)

func vec(t *testing.T, vals ...float64) *ml.Tensor {
	t.Helper()
	return tensorOf(t, []int{len(vals)}, vals...)
}

func tensorOf(t *testing.T, shape []int, vals ...float64) *ml.Tensor {
	t.Helper()
	tt, err := ml.NewTensor(ml.DTypeFloat32, slices.Clone(vals), shape...)
	require.NoError(t, err)
	return tt
}

func requireTensor(t *testing.T, want, got *ml.Tensor) {
	t.Helper()
	require.NotNil(t, got)
	require.Equal(t, want.Shape(), got.Shape())
	require.Equal(t, want.Floats(), got.Floats())
}

func requireDict(t *testing.T, want, got ml.Dictionary) {
	t.Helper()
	require.Equal(t, want.Keys(), got.Keys())
	for _, k := range want.Keys() {
		requireTensor(t, want[k], got[k])
	}
}

// mapLoader liefert Dictionaries aus dem Speicher; fehlende Pfade sind
// ein Ladefehler
func mapLoader(m map[string]ml.Dictionary) LoadFunc {
	return func(path string) (ml.Dictionary, error) {
		if d, ok := m[path]; ok {
			return d, nil
		}
		return nil, fmt.Errorf("open %s: %w", path, os.ErrNotExist)
	}
}
