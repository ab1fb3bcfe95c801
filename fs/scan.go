// scan.go - Verzeichnis nach Gewichts-Dateien durchsuchen
// Hauptfunktionen: Scan, Largest
package fs

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/loramerge/loramerge/fs/safetensors"
)

// FileInfo beschreibt eine gefundene Gewichts-Datei
type FileInfo struct {
	Path   string
	Name   string
	Format Format
	Size   int64

	// Tensors ist die Anzahl der Tensoren laut Header, -1 wenn
	// sie nur durch vollstaendiges Laden bestimmbar waere (PyTorch)
	// oder der Header unlesbar ist
	Tensors int

	// Err ist gesetzt, wenn die Datei nicht geoeffnet oder ihr Header
	// nicht gelesen werden konnte
	Err error
}

// Scan listet alle erkannten Gewichts-Dateien in dir, sortiert nach Name.
// safetensors-Header werden parallel gelesen; Tensordaten werden nicht geladen.
// Unlesbare Dateien bleiben in der Liste, ihr Fehler steht in FileInfo.Err.
// Nur ein unlesbares dir selbst ist ein Fehler.
func Scan(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}

		format := DetectFormat(e.Name())
		if format == FormatUnknown {
			continue
		}

		files = append(files, FileInfo{
			Path:    filepath.Join(dir, e.Name()),
			Name:    e.Name(),
			Format:  format,
			Tensors: -1,
		})
	}

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range files {
		g.Go(func() error {
			if err := stat(&files[i]); err != nil {
				slog.Warn("unreadable weight file", "file", files[i].Name, "error", err)
				files[i].Err = err
			}
			return nil
		})
	}
	g.Wait() //nolint:errcheck

	slices.SortFunc(files, func(a, b FileInfo) int {
		return strings.Compare(a.Name, b.Name)
	})

	return files, nil
}

func stat(fi *FileInfo) error {
	f, err := os.Open(fi.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	fi.Size = info.Size()

	if fi.Format == FormatSafetensors {
		h, err := safetensors.ReadHeader(f)
		if err != nil {
			return fmt.Errorf("%s: %w", fi.Name, err)
		}
		fi.Tensors = len(h.Tensors)
	}

	return nil
}

// Readable gibt die Dateien ohne Scan-Fehler zurueck
func Readable(files []FileInfo) []FileInfo {
	out := make([]FileInfo, 0, len(files))
	for _, f := range files {
		if f.Err == nil {
			out = append(out, f)
		}
	}
	return out
}

// Largest gibt die groesste Datei zurueck (bei Gleichstand die erste)
func Largest(files []FileInfo) (FileInfo, bool) {
	if len(files) == 0 {
		return FileInfo{}, false
	}

	largest := files[0]
	for _, f := range files[1:] {
		if f.Size > largest.Size {
			largest = f
		}
	}
	return largest, true
}
