// run.go - Ein kompletter Zwei-Quellen-Merge von der Konfiguration bis zur Datei
// Hauptfunktionen: Run, SaveAll
package merge

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/loramerge/loramerge/fs"
	"github.com/loramerge/loramerge/ml"
)

// LoadFunc laedt eine Gewichts-Datei
type LoadFunc func(path string) (ml.Dictionary, error)

// SaveFunc schreibt ein Dictionary mit Metadaten
type SaveFunc func(path string, d ml.Dictionary, metadata map[string]string) error

// Artifact ist ein Merge-Ergebnis, das noch nicht gespeichert wurde
type Artifact struct {
	Dictionary ml.Dictionary
	Fraction   float64
	Strategy   Strategy
	Sources    []string
	Name       string
	RunID      string
}

// Metadata gibt die Eintraege fuer den __metadata__-Block zurueck
func (a Artifact) Metadata() map[string]string {
	return map[string]string{
		"loramerge.run_id":   a.RunID,
		"loramerge.strategy": a.Strategy.String(),
		"loramerge.weight":   strconv.FormatFloat(a.Fraction, 'f', -1, 64),
		"loramerge.sources":  strings.Join(a.Sources, ","),
	}
}

// Run validiert cfg, laedt beide Quellen und erzeugt pro Gewicht ein
// Artifact. Gespeichert wird nichts.
func Run(cfg Config, load LoadFunc, fn ProgressFunc) ([]Artifact, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if load == nil {
		load = fs.Load
	}

	dicts := make([]ml.Dictionary, len(cfg.Sources))
	names := make([]string, len(cfg.Sources))
	for i, p := range cfg.Sources {
		names[i] = filepath.Base(p)
		fn.report(StageLoading, names[i], i, len(cfg.Sources))

		d, err := load(p)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", p, err)
		}

		slog.Info("loaded", "source", names[i], "tensors", len(d))
		dicts[i] = d
		fn.report(StageLoading, names[i], i+1, len(cfg.Sources))
	}

	fractions := cfg.Fractions()
	merged, err := mergeMix(dicts[0], dicts[1], cfg.Strategy, fractions, fn)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	artifacts := make([]Artifact, 0, len(fractions))
	for i, f := range fractions {
		artifacts = append(artifacts, Artifact{
			Dictionary: merged[i],
			Fraction:   f,
			Strategy:   cfg.Strategy,
			Sources:    names,
			Name:       ArtifactName(fs.Stem(names[0]), fs.Stem(names[1]), cfg.Strategy, f),
			RunID:      runID,
		})
	}

	return artifacts, nil
}

// SaveAll schreibt alle Artifacts nach dir. Ein Fehler bei einem Artifact
// haelt die uebrigen nicht auf; bereits geschriebene Dateien bleiben
// bestehen. Zurueckgegeben werden die Pfade der geschriebenen Dateien und
// alle Fehler zusammengefasst.
func SaveAll(dir string, artifacts []Artifact, save SaveFunc, fn ProgressFunc) ([]string, error) {
	if save == nil {
		save = fs.Save
	}

	var paths []string
	var errs []error
	for i, a := range artifacts {
		fn.report(StageSaving, a.Name, i, len(artifacts))

		path := filepath.Join(dir, a.Name)
		if err := save(path, a.Dictionary, a.Metadata()); err != nil {
			slog.Error("save failed", "name", a.Name, "error", err)
			errs = append(errs, fmt.Errorf("save %s: %w", a.Name, err))
			continue
		}

		slog.Info("saved", "name", a.Name, "weight", a.Fraction)
		paths = append(paths, path)
		fn.report(StageSaving, a.Name, i+1, len(artifacts))
	}

	return paths, errors.Join(errs...)
}
