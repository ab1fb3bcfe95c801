// reconcile.go - Angleichen von Tensor-Shapes vor dem Kombinieren
// Hauptfunktionen: Reconcile, ReconcileAll
package merge

import (
	"errors"
	"fmt"

	"github.com/loramerge/loramerge/ml"
)

var ErrRankMismatch = errors.New("rank mismatch")

// Reconcile bringt zwei Tensoren gleichen Rangs auf die elementweise
// maximale Shape. Ueberzaehlige Positionen werden mit Null aufgefuellt.
func Reconcile(a, b *ml.Tensor) (*ml.Tensor, *ml.Tensor, error) {
	ts, err := ReconcileAll(a, b)
	if err != nil {
		return nil, nil, err
	}

	return ts[0], ts[1], nil
}

// ReconcileAll ist Reconcile fuer beliebig viele Tensoren. Haben bereits
// alle dieselbe Shape, werden die Eingaben unveraendert zurueckgegeben.
func ReconcileAll(ts ...*ml.Tensor) ([]*ml.Tensor, error) {
	if len(ts) == 0 {
		return nil, nil
	}

	shape := ts[0].Shape()
	same := true
	for _, t := range ts[1:] {
		if t.Rank() != len(shape) {
			return nil, fmt.Errorf("%w: %v vs %v", ErrRankMismatch, ts[0].Shape(), t.Shape())
		}

		for i, n := range t.Shape() {
			if n != shape[i] {
				same = false
				shape[i] = max(shape[i], n)
			}
		}
	}

	out := make([]*ml.Tensor, len(ts))
	if same {
		copy(out, ts)
		return out, nil
	}

	for i, t := range ts {
		padded, err := ml.Pad(t, shape...)
		if err != nil {
			return nil, err
		}
		out[i] = padded
	}

	return out, nil
}
