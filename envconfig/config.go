// config.go - Haupt-Konfigurationsfunktionen fuer loramerge
//
// Dieses Modul enthaelt:
// - Dir: Quellverzeichnis fuer Gewichts-Dateien (LORAMERGE_DIR)
// - Output: Zielverzeichnis fuer Ergebnisse (LORAMERGE_OUTPUT)
// - Journal: Pfad der Merge-Historie (LORAMERGE_JOURNAL)
// - LogLevel: Gibt Log-Level zurueck (LORAMERGE_DEBUG)
//
// Weitere Konfigurationen sind ausgelagert:
// - config_features.go: Feature-Flags, Batch-Groesse und MemoryHeadroom
// - config_utils.go: Utility-Funktionen und AsMap/Values
package envconfig

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Dir gibt das Quellverzeichnis zurueck
// Konfigurierbar via LORAMERGE_DIR
// Default: 05-lora_merging
func Dir() string {
	if s := Var("LORAMERGE_DIR"); s != "" {
		return s
	}
	return "05-lora_merging"
}

// Output ist das Zielverzeichnis (LORAMERGE_OUTPUT). Leer bedeutet:
// Ergebnis landet neben den Quellen.
var Output = String("LORAMERGE_OUTPUT")

// Journal gibt den Pfad der SQLite-Historie zurueck
// Konfigurierbar via LORAMERGE_JOURNAL
// Default: $HOME/.loramerge/journal.db
func Journal() string {
	if s := Var("LORAMERGE_JOURNAL"); s != "" {
		return s
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "loramerge", "journal.db")
	}

	return filepath.Join(home, ".loramerge", "journal.db")
}

// LogLevel gibt das Log-Level zurueck
// Konfigurierbar via LORAMERGE_DEBUG
// Werte: 0/false = INFO (Default), 1/true = DEBUG, 2 = TRACE
func LogLevel() slog.Level {
	level := slog.LevelInfo
	if s := Var("LORAMERGE_DEBUG"); s != "" {
		if b, _ := strconv.ParseBool(s); b {
			level = slog.LevelDebug
		} else if i, _ := strconv.ParseInt(s, 10, 64); i != 0 {
			level = slog.Level(i * -4)
		}
	}

	return level
}

// Var gibt eine Environment-Variable zurueck
// Entfernt fuehrende/trailing Quotes und Leerzeichen
func Var(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}
