// ops.go - Vektor-Operationen auf Tensoren
// Hauptfunktionen: Norm, Scale, WeightedSum, Pad
package ml

import (
	"fmt"
	"slices"

	"github.com/pdevine/tensor"
	"gonum.org/v1/gonum/floats"
)

// Norm ist die L2-Norm ueber alle Elemente
func Norm(t *Tensor) float64 {
	return floats.Norm(t.data, 2)
}

// Scale gibt c*t als neuen Tensor zurueck
func Scale(t *Tensor, c float64) *Tensor {
	out := Zeros(t.dtype, t.shape...)
	floats.ScaleTo(out.data, c, t.data)
	return out
}

// WeightedSum berechnet sum(weights[i] * ts[i]). Alle Tensoren muessen
// dieselbe Shape haben; der Ergebnistyp wird ueber Promote bestimmt.
func WeightedSum(weights []float64, ts ...*Tensor) (*Tensor, error) {
	if len(ts) == 0 {
		return nil, fmt.Errorf("weighted sum of zero tensors")
	}
	if len(weights) != len(ts) {
		return nil, fmt.Errorf("got %d weights for %d tensors", len(weights), len(ts))
	}

	dtype := ts[0].dtype
	for _, t := range ts[1:] {
		if !t.SameShape(ts[0]) {
			return nil, fmt.Errorf("%w: %v != %v", ErrShapeMismatch, t.shape, ts[0].shape)
		}
		dtype = Promote(dtype, t.dtype)
	}

	out := Zeros(dtype, ts[0].shape...)
	floats.ScaleTo(out.data, weights[0], ts[0].data)
	for i, t := range ts[1:] {
		floats.AddScaled(out.data, weights[i+1], t.data)
	}

	return out, nil
}

// Pad fuellt t mit Nullen bis zur Ziel-Shape auf. Die Originaldaten liegen
// im Ursprungs-Teilbereich; jede Dimension wird einzeln durch Anhaengen
// eines Null-Blocks verlaengert.
func Pad(t *Tensor, shape ...int) (*Tensor, error) {
	if len(shape) != len(t.shape) {
		return nil, fmt.Errorf("cannot pad rank %d tensor to rank %d", len(t.shape), len(shape))
	}

	for i := range shape {
		if shape[i] < t.shape[i] {
			return nil, fmt.Errorf("cannot pad %v down to %v", t.shape, shape)
		}
	}

	if slices.Equal(shape, t.shape) {
		return t, nil
	}

	if t.Len() == 0 {
		return Zeros(t.dtype, shape...), nil
	}

	var cur tensor.Tensor = tensor.New(tensor.WithShape(t.shape...), tensor.WithBacking(slices.Clone(t.data)))
	for axis, n := range shape {
		dims := slices.Clone([]int(cur.Shape()))
		if dims[axis] == n {
			continue
		}

		dims[axis] = n - dims[axis]
		zeros := tensor.New(tensor.WithShape(dims...), tensor.WithBacking(make([]float64, mul(dims...))))

		var err error
		cur, err = tensor.Concat(axis, cur, zeros)
		if err != nil {
			return nil, fmt.Errorf("pad axis %d: %w", axis, err)
		}
	}

	cur = tensor.Materialize(cur)
	data, ok := cur.Data().([]float64)
	if !ok {
		return nil, fmt.Errorf("unexpected backing %T", cur.Data())
	}

	return &Tensor{dtype: t.dtype, shape: slices.Clone(shape), data: data}, nil
}
