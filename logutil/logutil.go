// logutil.go - slog-Handler fuer die CLI
// Hauptfunktionen: NewLogger, LevelTrace
package logutil

import (
	"io"
	"log/slog"
	"path/filepath"
)

// LevelTrace liegt unter Debug und wird fuer Ausgaben pro Tensor verwendet
const LevelTrace slog.Level = -8

// NewLogger erstellt einen Text-Logger mit kurzem Quellpfad und eigenem
// Namen fuer LevelTrace
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
		ReplaceAttr: func(_ []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.LevelKey:
				if l, ok := attr.Value.Any().(slog.Level); ok && l <= LevelTrace {
					attr.Value = slog.StringValue("TRACE")
				}
			case slog.SourceKey:
				if source, ok := attr.Value.Any().(*slog.Source); ok {
					source.File = filepath.Base(source.File)
				}
			}
			return attr
		},
	}))
}
