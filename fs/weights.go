// weights.go - Laden und Speichern von Gewichts-Dateien
//
// Enthaelt:
// - DetectFormat: Container-Erkennung anhand der Dateiendung
// - Load: Dispatcher auf safetensors- oder PyTorch-Reader
// - Save: schreibt immer safetensors, atomar
// - Stem: Dateiname ohne bekannte Endung
package fs

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/loramerge/loramerge/fs/safetensors"
	"github.com/loramerge/loramerge/fs/torch"
	"github.com/loramerge/loramerge/ml"
)

var ErrUnknownFormat = errors.New("unknown weight file format")

// Format ist der Container-Typ einer Gewichts-Datei
type Format string

const (
	FormatUnknown     Format = ""
	FormatSafetensors Format = "safetensors"
	FormatTorch       Format = "torch"
)

var extensions = map[string]Format{
	".safetensors": FormatSafetensors,
	".pt":          FormatTorch,
	".pth":         FormatTorch,
	".ckpt":        FormatTorch,
	".bin":         FormatTorch,
}

// DetectFormat erkennt den Container anhand der Dateiendung
func DetectFormat(path string) Format {
	return extensions[strings.ToLower(filepath.Ext(path))]
}

// Stem gibt den Dateinamen ohne Verzeichnis und bekannte Endung zurueck
func Stem(path string) string {
	base := filepath.Base(path)
	if DetectFormat(base) != FormatUnknown {
		return strings.TrimSuffix(base, filepath.Ext(base))
	}
	return base
}

// Load laedt eine Gewichts-Datei in den Speicher
func Load(path string) (ml.Dictionary, error) {
	var (
		d   ml.Dictionary
		err error
	)

	switch DetectFormat(path) {
	case FormatSafetensors:
		d, _, err = safetensors.ReadFile(path)
	case FormatTorch:
		d, err = torch.ReadFile(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
	if err != nil {
		return nil, err
	}

	slog.Debug("loaded weights", "path", path, "tensors", len(d))
	return d, nil
}

// Save schreibt d als safetensors nach path. Fehlende Verzeichnisse
// werden angelegt.
func Save(path string, d ml.Dictionary, metadata map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	if err := safetensors.WriteFile(path, d, metadata); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}

	slog.Debug("saved weights", "path", path, "tensors", len(d))
	return nil
}
