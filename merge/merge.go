// merge.go - Zusammenfuehren zweier Gewichts-Dictionaries
// Hauptfunktionen: Merge, MergeMix
package merge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/emirpasic/gods/v2/sets/treeset"

	"github.com/loramerge/loramerge/logutil"
	"github.com/loramerge/loramerge/ml"
)

// Merge kombiniert a und b Key fuer Key. Keys, die nur in a vorkommen,
// werden uebernommen. Keys, die nur in b vorkommen, werden uebernommen bzw.
// bei Additive mit alpha skaliert, da b dort als Delta auf a gilt.
// Ein Rang-Konflikt bricht den gesamten Merge ab.
func Merge(a, b ml.Dictionary, s Strategy, alpha float64) (ml.Dictionary, error) {
	return mergePair(a, b, s, alpha, nil)
}

// MergeMix fuehrt fuer jedes Gewicht einen eigenen, unabhaengigen Merge aus
// und gibt die Ergebnisse in derselben Reihenfolge zurueck
func MergeMix(a, b ml.Dictionary, s Strategy, fractions []float64) ([]ml.Dictionary, error) {
	return mergeMix(a, b, s, fractions, nil)
}

func mergeMix(a, b ml.Dictionary, s Strategy, fractions []float64, fn ProgressFunc) ([]ml.Dictionary, error) {
	out := make([]ml.Dictionary, 0, len(fractions))
	for _, f := range fractions {
		slog.Info("merging", "strategy", s, "weight", f)
		d, err := mergePair(a, b, s, f, fn)
		if err != nil {
			return nil, fmt.Errorf("weight %v: %w", f, err)
		}
		out = append(out, d)
	}

	return out, nil
}

func mergePair(a, b ml.Dictionary, s Strategy, alpha float64, fn ProgressFunc) (ml.Dictionary, error) {
	keys := unionKeys(a, b)
	out := make(ml.Dictionary, len(keys))
	for i, key := range keys {
		ta, inA := a[key]
		tb, inB := b[key]

		switch {
		case inA && inB:
			t, err := s.Combine([]*ml.Tensor{ta, tb}, alpha)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", key, err)
			}
			out[key] = t
		case inA:
			out[key] = ta
		case s == Additive:
			out[key] = ml.Scale(tb, alpha)
		default:
			out[key] = tb
		}

		slog.Log(context.TODO(), logutil.LevelTrace, "merged", "key", key, "tensor", out[key])
		fn.report(StageMerging, "", i+1, len(keys))
	}

	return out, nil
}

// unionKeys gibt die sortierte Vereinigung aller Keys zurueck
func unionKeys(ds ...ml.Dictionary) []string {
	set := treeset.New[string]()
	for _, d := range ds {
		for k := range d {
			set.Add(k)
		}
	}
	return set.Values()
}
