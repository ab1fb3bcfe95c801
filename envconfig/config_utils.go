// config_utils.go - Getter-Fabriken und Export der Konfiguration
//
// Enthaelt:
// - Bool/BoolWithDefault, String, Uint, Fraction: Getter fuer LORAMERGE_*-Variablen
// - EnvVar, AsMap, Values: Auflistung fuer Hilfetexte und Debug-Ausgaben
package envconfig

import (
	"fmt"
	"log/slog"
	"strconv"
)

// lookup liest key und wandelt ihn mit parse um. Ist die Variable leer,
// gilt der Default. Ungueltige Werte werden gewarnt und ebenfalls durch
// den Default ersetzt.
func lookup[T any](key string, defaultValue T, parse func(string) (T, bool)) T {
	s := Var(key)
	if s == "" {
		return defaultValue
	}

	v, ok := parse(s)
	if !ok {
		slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
		return defaultValue
	}

	return v
}

// BoolWithDefault liest einen Bool. Gesetzte, aber unlesbare Werte
// (z.B. LORAMERGE_NOJOURNAL=yes) zaehlen als true.
func BoolWithDefault(k string) func(defaultValue bool) bool {
	return func(defaultValue bool) bool {
		return lookup(k, defaultValue, func(s string) (bool, bool) {
			b, err := strconv.ParseBool(s)
			return b || err != nil, true
		})
	}
}

func Bool(k string) func() bool {
	withDefault := BoolWithDefault(k)
	return func() bool {
		return withDefault(false)
	}
}

func String(key string) func() string {
	return func() string {
		return Var(key)
	}
}

// Uint liest eine nicht-negative Ganzzahl
func Uint(key string, defaultValue uint) func() uint {
	return func() uint {
		return lookup(key, defaultValue, func(s string) (uint, bool) {
			n, err := strconv.ParseUint(s, 10, 64)
			return uint(n), err == nil
		})
	}
}

// Fraction liest einen Anteil im Intervall (0, 1]
func Fraction(key string, defaultValue float64) func() float64 {
	return func() float64 {
		return lookup(key, defaultValue, func(s string) (float64, bool) {
			f, err := strconv.ParseFloat(s, 64)
			return f, err == nil && f > 0 && f <= 1
		})
	}
}

// EnvVar beschreibt eine Variable fuer Hilfetexte
type EnvVar struct {
	Name        string
	Value       any
	Description string
}

// AsMap listet alle LORAMERGE_*-Variablen mit aktuellem Wert
func AsMap() map[string]EnvVar {
	vars := []EnvVar{
		{"LORAMERGE_DEBUG", LogLevel(), "Show additional debug information (e.g. LORAMERGE_DEBUG=1)"},
		{"LORAMERGE_DIR", Dir(), "Folder that holds the source weight files (default \"05-lora_merging\")"},
		{"LORAMERGE_OUTPUT", Output(), "Folder for merged files (default: source folder)"},
		{"LORAMERGE_BATCH_SIZE", BatchSize(), "Maximum number of models folded per batch (default 4)"},
		{"LORAMERGE_MEMORY_HEADROOM", MemoryHeadroom(), "Fraction of available memory a fold batch may plan for (default 0.8)"},
		{"LORAMERGE_JOURNAL", Journal(), "Path of the merge history database"},
		{"LORAMERGE_NOJOURNAL", NoJournal(), "Do not record merges in the history database"},
	}

	m := make(map[string]EnvVar, len(vars))
	for _, v := range vars {
		m[v.Name] = v
	}
	return m
}

// Values gibt alle Werte als Strings zurueck
func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprintf("%v", v.Value)
	}
	return vals
}
