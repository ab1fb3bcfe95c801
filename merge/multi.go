// multi.go - N-aere Merge-Regeln fuer einen Layer-Key
// Hauptfunktionen: AdaptiveN, AdditiveN
package merge

import (
	"github.com/loramerge/loramerge/ml"
)

// AdaptiveN gewichtet jeden Tensor mit norm_i / sum(norm). Sind alle Normen
// 0, wird gleich gewichtet.
func AdaptiveN(ts ...*ml.Tensor) (*ml.Tensor, error) {
	ts, err := prepare(ts)
	if err != nil || len(ts) == 1 {
		return first(ts), err
	}

	weights := make([]float64, len(ts))
	var sum float64
	for i, t := range ts {
		weights[i] = ml.Norm(t)
		sum += weights[i]
	}

	if sum <= 0 {
		return ml.WeightedSum(equalWeights(len(ts)), ts...)
	}

	for i := range weights {
		weights[i] /= sum
	}

	return ml.WeightedSum(weights, ts...)
}

// AdditiveN mittelt alle Tensoren mit Gewicht 1/N
func AdditiveN(ts ...*ml.Tensor) (*ml.Tensor, error) {
	ts, err := prepare(ts)
	if err != nil || len(ts) == 1 {
		return first(ts), err
	}

	return ml.WeightedSum(equalWeights(len(ts)), ts...)
}

func prepare(ts []*ml.Tensor) ([]*ml.Tensor, error) {
	if len(ts) == 0 {
		return nil, errNoTensors
	}

	return ReconcileAll(ts...)
}

func first(ts []*ml.Tensor) *ml.Tensor {
	if len(ts) == 0 {
		return nil
	}
	return ts[0]
}

func equalWeights(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1 / float64(n)
	}
	return w
}
