// cmd_utils.go - Gemeinsame Hilfsfunktionen der Commands
// Hauptfunktionen: resolveSource, outputDir, parseMix, recordArtifacts
package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/loramerge/loramerge/envconfig"
	"github.com/loramerge/loramerge/journal"
	"github.com/loramerge/loramerge/merge"
)

// resolveSource nimmt name unveraendert, wenn die Datei existiert, sonst
// relativ zum Quellverzeichnis
func resolveSource(dir, name string) string {
	if _, err := os.Stat(name); err == nil || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}

// sourceDir liest --dir, Default ist LORAMERGE_DIR
func sourceDir(cmd *cobra.Command) string {
	if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
		return dir
	}
	return envconfig.Dir()
}

// outputDir: --output, dann LORAMERGE_OUTPUT, dann fallback
func outputDir(cmd *cobra.Command, fallback string) string {
	if out, _ := cmd.Flags().GetString("output"); out != "" {
		return out
	}
	if out := envconfig.Output(); out != "" {
		return out
	}
	return fallback
}

// parseMix liest eine Liste von Prozentwerten wie "25,50,75"
func parseMix(s string) ([]float64, error) {
	var mix []float64
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSuffix(strings.TrimSpace(field), "%")
		if field == "" {
			continue
		}

		w, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, &merge.ConfigError{Field: "weight", Value: field, Reason: "not a number"}
		}
		mix = append(mix, w)
	}

	if len(mix) == 0 {
		return nil, &merge.ConfigError{Field: "weight", Value: s, Reason: "empty mix"}
	}
	return mix, nil
}

// weights liest --weight und --mix
func weights(cmd *cobra.Command) (float64, []float64, error) {
	weight, err := cmd.Flags().GetFloat64("weight")
	if err != nil {
		return 0, nil, err
	}

	if s, _ := cmd.Flags().GetString("mix"); s != "" {
		if cmd.Flags().Changed("weight") {
			return 0, nil, errors.New("only one of '--weight' or '--mix' can be specified")
		}

		mix, err := parseMix(s)
		return weight, mix, err
	}

	return weight, nil, nil
}

// recordArtifacts traegt gespeicherte Ergebnisse in die Historie ein.
// Fehler werden nur geloggt; das Ergebnis liegt bereits auf der Platte.
func recordArtifacts(entries ...journal.Entry) {
	if envconfig.NoJournal() || len(entries) == 0 {
		return
	}

	j, err := journal.Open(envconfig.Journal())
	if err != nil {
		slog.Warn("journal unavailable", "error", err)
		return
	}
	defer j.Close()

	for _, e := range entries {
		if _, err := j.Record(e); err != nil {
			slog.Warn("failed to record merge", "name", e.Name, "error", err)
		}
	}
}

func fileSize(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return fi.Size()
}

func printSaved(cmd *cobra.Command, paths []string) {
	for _, p := range paths {
		fmt.Fprintf(cmd.OutOrStdout(), "Merged LoRA saved as: %s\n", filepath.Base(p))
	}
}
