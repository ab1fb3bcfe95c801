// strategy.go - Merge-Strategien fuer Tensoren
// Hauptfunktionen: ParseStrategy, Strategy.Combine, Strategy.CombineN,
// AdaptiveWeights, AdaptiveMerge, ManualMerge, AdditiveMerge
package merge

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/loramerge/loramerge/ml"
)

// Strategy legt fest, wie Tensoren desselben Layer-Keys kombiniert werden
type Strategy int

const (
	// Adaptive gewichtet nach L2-Norm
	Adaptive Strategy = iota
	// Manual interpoliert linear mit festem Gewicht
	Manual
	// Additive addiert den zweiten Tensor skaliert zum ersten
	Additive
)

var strategyNames = map[string]Strategy{
	"adaptive": Adaptive,
	"manual":   Manual,
	"weighted": Manual,
	"additive": Additive,
}

func (s Strategy) String() string {
	switch s {
	case Adaptive:
		return "adaptive"
	case Manual:
		return "manual"
	case Additive:
		return "additive"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

func (s Strategy) valid() bool {
	return s >= Adaptive && s <= Additive
}

// ParseStrategy liest einen Strategie-Namen (Gross-/Kleinschreibung egal)
func ParseStrategy(name string) (Strategy, error) {
	if s, ok := strategyNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return s, nil
	}

	return 0, &ConfigError{Field: "strategy", Value: name, Reason: unknownName(name, strategyNames)}
}

// Combine kombiniert die Tensoren eines Keys. Zwei Tensoren werden mit der
// paarweisen Regel und dem Hauptgewicht alpha verrechnet, mehr als zwei mit
// der N-aeren Regel (alpha wird dann ignoriert), ein einzelner Tensor wird
// unveraendert zurueckgegeben.
func (s Strategy) Combine(ts []*ml.Tensor, alpha float64) (*ml.Tensor, error) {
	if len(ts) != 2 {
		return s.CombineN(ts)
	}

	switch s {
	case Adaptive:
		return AdaptiveMerge(ts[0], ts[1], alpha)
	case Manual:
		return ManualMerge(ts[0], ts[1], alpha)
	case Additive:
		return AdditiveMerge(ts[0], ts[1], alpha)
	default:
		return nil, fmt.Errorf("unknown %s", s)
	}
}

// CombineN wendet immer die N-aere Regel an: Adaptive gewichtet nach Norm,
// Manual und Additive mitteln mit 1/N.
func (s Strategy) CombineN(ts []*ml.Tensor) (*ml.Tensor, error) {
	switch s {
	case Adaptive:
		return AdaptiveN(ts...)
	case Manual, Additive:
		return AdditiveN(ts...)
	default:
		return nil, fmt.Errorf("unknown %s", s)
	}
}

// AdaptiveWeights berechnet die Gewichte der adaptiven Mischung aus den
// Normen beider Tensoren und dem Hauptgewicht alpha. Die Summe ist immer 1;
// bei Normsumme 0 gilt 50/50.
func AdaptiveWeights(norm1, norm2, alpha float64) (float64, float64) {
	w1, w2 := 0.5, 0.5
	if sum := norm1 + norm2; sum > 0 && !math.IsInf(sum, 0) {
		w1, w2 = norm1/sum, norm2/sum
	}

	final := w1*alpha + (1-w2)*(1-alpha)
	return final, 1 - final
}

// AdaptiveMerge gibt final1*a + final2*b mit den Gewichten aus AdaptiveWeights zurueck
func AdaptiveMerge(a, b *ml.Tensor, alpha float64) (*ml.Tensor, error) {
	a, b, err := Reconcile(a, b)
	if err != nil {
		return nil, err
	}

	w1, w2 := AdaptiveWeights(ml.Norm(a), ml.Norm(b), alpha)
	return ml.WeightedSum([]float64{w1, w2}, a, b)
}

// ManualMerge gibt alpha*a + (1-alpha)*b zurueck
func ManualMerge(a, b *ml.Tensor, alpha float64) (*ml.Tensor, error) {
	a, b, err := Reconcile(a, b)
	if err != nil {
		return nil, err
	}

	return ml.WeightedSum([]float64{alpha, 1 - alpha}, a, b)
}

// AdditiveMerge gibt a + alpha*b zurueck. a bleibt vollstaendig erhalten.
func AdditiveMerge(a, b *ml.Tensor, alpha float64) (*ml.Tensor, error) {
	a, b, err := Reconcile(a, b)
	if err != nil {
		return nil, err
	}

	return ml.WeightedSum([]float64{1, alpha}, a, b)
}

var errNoTensors = errors.New("no tensors to combine")
