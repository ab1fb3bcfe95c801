// budget.go - Batch-Groesse fuer den sequentiellen Fold
// Hauptfunktionen: BudgetPolicy, FixedBudget, MemoryBudget
package merge

import (
	"log/slog"

	"github.com/loramerge/loramerge/discover"
)

// BudgetPolicy entscheidet, wie viele der verbleibenden Modelle im naechsten
// Fold-Durchlauf geladen werden. 0 bedeutet, dass kein weiteres Modell
// geladen werden kann; der Fold endet dann mit dem bisherigen Ergebnis.
type BudgetPolicy interface {
	BatchSize(remaining int, modelBytes uint64) int
}

// FixedBudget laedt immer hoechstens n Modelle pro Durchlauf
type FixedBudget int

func (b FixedBudget) BatchSize(remaining int, _ uint64) int {
	return max(0, min(int(b), remaining))
}

// MemoryBudget richtet die Batch-Groesse nach dem freien Arbeitsspeicher
type MemoryBudget struct {
	// Max ist die Obergrenze pro Durchlauf
	Max int

	// Headroom ist der Anteil des freien Speichers, der verplant werden darf
	Headroom float64

	// Expansion ist das Verhaeltnis von Speicherbedarf zu Dateigroesse.
	// Tensoren liegen im Speicher als float64 vor, eine F16-Datei waechst
	// also um Faktor 4.
	Expansion float64

	// Available liefert den freien Speicher in Bytes
	Available func() (uint64, error)
}

// NewMemoryBudget erstellt ein MemoryBudget ueber discover.AvailableMemory
func NewMemoryBudget(maxBatch int, headroom float64) *MemoryBudget {
	return &MemoryBudget{
		Max:       maxBatch,
		Headroom:  headroom,
		Expansion: 4,
		Available: discover.AvailableMemory,
	}
}

func (b *MemoryBudget) BatchSize(remaining int, modelBytes uint64) int {
	limit := max(0, min(b.Max, remaining))

	resident := float64(modelBytes) * max(b.Expansion, 1)
	if resident <= 0 {
		return limit
	}

	available, err := b.Available()
	if err != nil {
		// ohne Speicherinfo gilt nur die Obergrenze
		slog.Debug("available memory unknown, using batch cap", "error", err, "batch", limit)
		return limit
	}

	n := int(float64(available) * b.Headroom / resident)
	slog.Debug("memory budget", "available", available, "model", modelBytes, "batch", min(n, limit))
	return max(0, min(n, limit))
}
