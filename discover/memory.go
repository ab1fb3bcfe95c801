// memory.go - Verfuegbaren Arbeitsspeicher ermitteln
// Hauptfunktionen: GetMemoryInfo
//
// Die Werte sind eine Momentaufnahme und dienen nur als Heuristik fuer
// die Batch-Groesse beim Zusammenfuehren vieler Modelle.
package discover

import (
	"errors"
	"log/slog"
)

var ErrUnsupported = errors.New("memory discovery not supported on this platform")

// MemoryInfo beschreibt den Systemspeicher in Bytes
type MemoryInfo struct {
	TotalMemory uint64
	FreeMemory  uint64
}

func (m MemoryInfo) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("total", m.TotalMemory),
		slog.Uint64("free", m.FreeMemory),
	)
}

// AvailableMemory gibt den freien Systemspeicher zurueck
func AvailableMemory() (uint64, error) {
	info, err := GetMemoryInfo()
	if err != nil {
		return 0, err
	}
	return info.FreeMemory, nil
}
