package merge

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loramerge/loramerge/ml"
)

func TestMergeKeyUnion(t *testing.T) {
	cases := []struct {
		name string
		a, b []string
		want []string
	}{
		{"gleich", []string{"x", "y"}, []string{"x", "y"}, []string{"x", "y"}},
		{"disjunkt", []string{"x"}, []string{"y"}, []string{"x", "y"}},
		{"teilweise", []string{"a", "b", "c"}, []string{"b", "d"}, []string{"a", "b", "c", "d"}},
		{"a leer", nil, []string{"q"}, []string{"q"}},
		{"beide leer", nil, nil, []string{}},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			a, b := ml.Dictionary{}, ml.Dictionary{}
			for _, k := range tt.a {
				a[k] = vec(t, 1, 2)
			}
			for _, k := range tt.b {
				b[k] = vec(t, 3, 4, 5)
			}

			for _, s := range []Strategy{Adaptive, Manual, Additive} {
				got, err := Merge(a, b, s, 0.4)
				require.NoError(t, err)
				if diff := cmp.Diff(tt.want, got.Keys(), cmpopts.EquateEmpty()); diff != "" {
					t.Errorf("%s keys mismatch (-want +got):\n%s", s, diff)
				}
			}
		})
	}
}

func TestMergeUnmatchedKeys(t *testing.T) {
	onlyA, onlyB := vec(t, 1, 2), vec(t, 4, 8)
	a := ml.Dictionary{"shared": vec(t, 1), "only_a": onlyA}
	b := ml.Dictionary{"shared": vec(t, 3), "only_b": onlyB}

	t.Run("additive", func(t *testing.T) {
		got, err := Merge(a, b, Additive, 0.25)
		require.NoError(t, err)

		assert.Same(t, onlyA, got["only_a"])
		assert.Equal(t, []float64{1, 2}, got["only_b"].Floats())
		assert.Equal(t, []float64{1.75}, got["shared"].Floats())

		// Quelle bleibt unveraendert
		assert.Equal(t, []float64{4, 8}, onlyB.Floats())
	})

	for _, s := range []Strategy{Adaptive, Manual} {
		t.Run(s.String(), func(t *testing.T) {
			got, err := Merge(a, b, s, 0.25)
			require.NoError(t, err)
			assert.Same(t, onlyA, got["only_a"])
			assert.Same(t, onlyB, got["only_b"])
		})
	}
}

func TestMergeSymmetricAdaptive(t *testing.T) {
	a1, a2 := vec(t, 3, 4), vec(t, 0, 5)
	a := ml.Dictionary{"a": a1, "b": vec(t, 1, 1)}
	b := ml.Dictionary{"a": a2, "b": vec(t, 2, 2)}

	got, err := Merge(a, b, Adaptive, 0.5)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 4.5}, got["a"].Floats())
	assert.Equal(t, []string{"a", "b"}, got.Keys())
}

func TestMergeRankMismatch(t *testing.T) {
	a := ml.Dictionary{"ok": vec(t, 1), "lora_up.weight": vec(t, 1, 2)}
	b := ml.Dictionary{"ok": vec(t, 2), "lora_up.weight": tensorOf(t, []int{2, 1}, 1, 2)}

	_, err := Merge(a, b, Manual, 0.5)
	require.ErrorIs(t, err, ErrRankMismatch)
	assert.Contains(t, err.Error(), `"lora_up.weight"`)
}

func TestMergeMix(t *testing.T) {
	a := ml.Dictionary{"x": vec(t, 1, 2, 3), "y": vec(t, 4)}
	b := ml.Dictionary{"x": vec(t, 5, 6), "z": vec(t, 8)}

	fractions := []float64{0.25, 0.50, 0.75}
	for _, s := range []Strategy{Adaptive, Manual, Additive} {
		t.Run(s.String(), func(t *testing.T) {
			got, err := MergeMix(a, b, s, fractions)
			require.NoError(t, err)
			require.Len(t, got, 3)

			for i, f := range fractions {
				want, err := Merge(a, b, s, f)
				require.NoError(t, err)
				requireDict(t, want, got[i])
			}
		})
	}

	t.Run("fehler", func(t *testing.T) {
		bad := ml.Dictionary{"x": tensorOf(t, []int{1, 1}, 1)}
		_, err := MergeMix(a, bad, Manual, fractions)
		assert.ErrorIs(t, err, ErrRankMismatch)
	})
}
