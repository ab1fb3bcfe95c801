// config.go - Merge-Konfiguration und Validierung
// Hauptfunktionen: Config.Validate, Config.Fractions, ConfigError
//
// Alle Konfigurationsfehler werden vor dem Laden des ersten Tensors
// erkannt.
package merge

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"os"
	"slices"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/loramerge/loramerge/fs"
)

// ConfigError beschreibt eine ungueltige Einstellung
type ConfigError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, fmt.Sprint(e.Value), e.Reason)
}

// Config ist die aufgeloeste Konfiguration eines Zwei-Quellen-Merges
type Config struct {
	// Sources enthaelt genau zwei Pfade; der erste ist die Hauptquelle
	Sources  []string
	Strategy Strategy

	// Weight ist das Hauptgewicht in Prozent (0-100)
	Weight float64

	// Mix enthaelt mehrere Gewichte in Prozent. Ist Mix gesetzt, wird
	// Weight ignoriert und pro Eintrag ein Ergebnis erzeugt.
	Mix []float64

	// Output ist das Zielverzeichnis. Leer bedeutet: neben der Hauptquelle.
	Output string
}

// Validate prueft Quellen, Strategie und Gewichte
func (c Config) Validate() error {
	if len(c.Sources) != 2 {
		return &ConfigError{Field: "sources", Reason: fmt.Sprintf("need exactly two sources, got %d", len(c.Sources))}
	}

	for _, p := range c.Sources {
		if err := validateSource(p); err != nil {
			return err
		}
	}

	if !c.Strategy.valid() {
		return &ConfigError{Field: "strategy", Value: c.Strategy, Reason: "unknown strategy"}
	}

	if len(c.Mix) == 0 {
		return validatePercent(c.Weight)
	}

	for i, w := range c.Mix {
		if err := validatePercent(w); err != nil {
			return err
		}

		if slices.Contains(c.Mix[:i], w) {
			return &ConfigError{Field: "weight", Value: w, Reason: "listed more than once"}
		}
	}

	return nil
}

// Fractions gibt die Gewichte als Anteile in [0,1] zurueck, in der
// angegebenen Reihenfolge
func (c Config) Fractions() []float64 {
	if len(c.Mix) == 0 {
		return []float64{c.Weight / 100}
	}

	fractions := make([]float64, len(c.Mix))
	for i, w := range c.Mix {
		fractions[i] = w / 100
	}
	return fractions
}

func validateSource(path string) error {
	if fs.DetectFormat(path) == fs.FormatUnknown {
		return &ConfigError{Field: "source", Value: path, Reason: fs.ErrUnknownFormat.Error()}
	}

	fi, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return &ConfigError{Field: "source", Value: path, Reason: "file does not exist"}
	case err != nil:
		return &ConfigError{Field: "source", Value: path, Reason: err.Error()}
	case fi.IsDir():
		return &ConfigError{Field: "source", Value: path, Reason: "is a directory"}
	}

	return nil
}

func validatePercent(w float64) error {
	if math.IsNaN(w) || w < 0 || w > 100 {
		return &ConfigError{Field: "weight", Value: w, Reason: "must be between 0 and 100"}
	}
	return nil
}

// unknownName baut die Fehlermeldung fuer einen unbekannten Namen,
// ggf. mit dem naechstgelegenen bekannten Namen als Vorschlag
func unknownName[V any](name string, known map[string]V) string {
	name = strings.ToLower(strings.TrimSpace(name))

	best, score := "", math.MaxInt
	for k := range known {
		if d := levenshtein.ComputeDistance(name, k); d < score || (d == score && k < best) {
			best, score = k, d
		}
	}

	if best != "" && score <= max(2, len(name)/3) {
		return fmt.Sprintf("unknown name, did you mean %q?", best)
	}

	return "unknown name, expected one of " + strings.Join(slices.Sorted(maps.Keys(known)), ", ")
}
