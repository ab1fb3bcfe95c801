// config_test.go - Tests fuer Environment-Konfiguration
package envconfig

import (
	"log/slog"
	"path/filepath"
	"testing"
)

func TestLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":      slog.LevelInfo,
		"false": slog.LevelInfo,
		"0":     slog.LevelInfo,
		"1":     slog.LevelDebug,
		"true":  slog.LevelDebug,
		"2":     slog.Level(-8),
	}

	for k, v := range cases {
		t.Run(k, func(t *testing.T) {
			t.Setenv("LORAMERGE_DEBUG", k)
			if got := LogLevel(); got != v {
				t.Errorf("LogLevel() = %v, want %v", got, v)
			}
		})
	}
}

func TestDir(t *testing.T) {
	t.Setenv("LORAMERGE_DIR", "")
	if got := Dir(); got != "05-lora_merging" {
		t.Errorf("Dir() = %q", got)
	}

	t.Setenv("LORAMERGE_DIR", " '/data/loras' ")
	if got := Dir(); got != "/data/loras" {
		t.Errorf("Dir() = %q, want /data/loras", got)
	}
}

func TestOutput(t *testing.T) {
	t.Setenv("LORAMERGE_OUTPUT", "")
	if got := Output(); got != "" {
		t.Errorf("Output() = %q, want empty", got)
	}

	t.Setenv("LORAMERGE_OUTPUT", `"/out"`)
	if got := Output(); got != "/out" {
		t.Errorf("Output() = %q, want /out", got)
	}
}

func TestJournal(t *testing.T) {
	t.Setenv("LORAMERGE_JOURNAL", "/tmp/j.db")
	if got := Journal(); got != "/tmp/j.db" {
		t.Errorf("Journal() = %q", got)
	}

	t.Setenv("LORAMERGE_JOURNAL", "")
	t.Setenv("HOME", "/home/merger")
	if got, want := Journal(), filepath.Join("/home/merger", ".loramerge", "journal.db"); got != want {
		t.Errorf("Journal() = %q, want %q", got, want)
	}
}

func TestMemoryHeadroom(t *testing.T) {
	cases := map[string]float64{
		"":     0.8,
		"0.5":  0.5,
		"1":    1,
		"0":    0.8,
		"1.5":  0.8,
		"half": 0.8,
	}

	for k, v := range cases {
		t.Run(k, func(t *testing.T) {
			t.Setenv("LORAMERGE_MEMORY_HEADROOM", k)
			if got := MemoryHeadroom(); got != v {
				t.Errorf("MemoryHeadroom() = %v, want %v", got, v)
			}
		})
	}
}

func TestBatchSize(t *testing.T) {
	cases := map[string]uint{
		"":   4,
		"9":  9,
		"-3": 4,
	}

	for k, v := range cases {
		t.Run(k, func(t *testing.T) {
			t.Setenv("LORAMERGE_BATCH_SIZE", k)
			if got := BatchSize(); got != v {
				t.Errorf("BatchSize() = %d, want %d", got, v)
			}
		})
	}
}

func TestBool(t *testing.T) {
	cases := map[string]bool{
		"":      false,
		"true":  true,
		"false": false,
		"1":     true,
		"0":     false,
		"bogus": true,
	}

	for k, v := range cases {
		t.Run(k, func(t *testing.T) {
			t.Setenv("LORAMERGE_NOJOURNAL", k)
			if got := NoJournal(); got != v {
				t.Errorf("NoJournal() = %v, want %v", got, v)
			}
		})
	}
}

func TestValues(t *testing.T) {
	t.Setenv("LORAMERGE_DIR", "x")
	vals := Values()
	if vals["LORAMERGE_DIR"] != "x" {
		t.Errorf("LORAMERGE_DIR = %q, want x", vals["LORAMERGE_DIR"])
	}
	if _, ok := vals["LORAMERGE_NOJOURNAL"]; !ok {
		t.Error("LORAMERGE_NOJOURNAL missing")
	}
	if len(vals) != len(AsMap()) {
		t.Errorf("got %d values for %d variables", len(vals), len(AsMap()))
	}
}
