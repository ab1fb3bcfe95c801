// cmd_bulk.go - Bulk Command: alle Modelle eines Verzeichnisses zusammenfuehren
// Hauptfunktionen: BulkHandler
package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/loramerge/loramerge/envconfig"
	"github.com/loramerge/loramerge/format"
	"github.com/loramerge/loramerge/fs"
	"github.com/loramerge/loramerge/journal"
	"github.com/loramerge/loramerge/merge"
)

var errNoModels = errors.New("no models found")

// BulkHandler - Fuehrt alle Modelle eines Verzeichnisses zu einem zusammen
func BulkHandler(cmd *cobra.Command, args []string) error {
	dir := envconfig.Dir()
	if len(args) > 0 {
		dir = args[0]
	}

	algName, _ := cmd.Flags().GetString("algorithm")
	alg, err := merge.ParseAlgorithm(algName)
	if err != nil {
		return err
	}

	strategyName, _ := cmd.Flags().GetString("strategy")
	strategy, err := merge.ParseStrategy(strategyName)
	if err != nil {
		return err
	}

	batch, _ := cmd.Flags().GetUint("batch-size")
	if !cmd.Flags().Changed("batch-size") {
		batch = envconfig.BatchSize()
	}

	if batch == 0 {
		return &merge.ConfigError{Field: "batch size", Value: batch, Reason: "must be at least 1"}
	}

	var budget merge.BudgetPolicy = merge.NewMemoryBudget(int(batch), envconfig.MemoryHeadroom())
	if noMemory, _ := cmd.Flags().GetBool("no-memory-check"); noMemory {
		budget = merge.FixedBudget(batch)
	}

	files, err := fs.Scan(dir)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return fmt.Errorf("%w in %s", errNoModels, dir)
	}

	slog.Info("bulk merge", "dir", dir, "models", len(files), "algorithm", alg, "strategy", strategy, "batch", batch)

	p := newProgress(cmd.ErrOrStderr())
	b := merge.Bulk{Strategy: strategy, Budget: budget, Progress: p.Update}
	d, report, err := b.Run(alg, files)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	out := outputDir(cmd, dir)
	name := merge.BulkArtifactName(report.Merged, alg, strategy)
	path := filepath.Join(out, name)

	p.Update(merge.Progress{Stage: merge.StageSaving, Name: name, Completed: 0, Total: 1})
	if err := fs.Save(path, d, report.Metadata(runID)); err != nil {
		return err
	}
	p.Update(merge.Progress{Stage: merge.StageSaving, Name: name, Completed: 1, Total: 1})

	size := fileSize(path)
	if err := report.CheckSize(size); err != nil {
		slog.Warn("output may have lost data", "output", format.HumanBytes(size), "largest", report.Largest.Name, "error", err)
	}

	// nur der Fold mischt mit festem Gewicht
	var weight float64
	if alg == merge.Fold {
		weight = 0.5
	}

	recordArtifacts(journal.Entry{
		RunID:     runID,
		Name:      name,
		Path:      path,
		Strategy:  strategy.String(),
		Algorithm: alg.String(),
		Weight:    weight,
		Sources:   report.Merged,
		Tensors:   report.Keys,
		Size:      size,
	})

	printReport(cmd, report)
	printSaved(cmd, []string{path})
	return nil
}

func printReport(cmd *cobra.Command, r *merge.Report) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Models merged:  %d\n", len(r.Merged))
	fmt.Fprintf(w, "Tensors merged: %d\n", r.Tensors)
	fmt.Fprintf(w, "Total keys:     %d\n", r.Keys)

	if len(r.Fallbacks) > 0 {
		fmt.Fprintf(w, "Fallbacks:      %d (%s)\n", len(r.Fallbacks), strings.Join(r.Fallbacks, ", "))
	}
	if len(r.Dropped) > 0 {
		fmt.Fprintf(w, "Dropped keys:   %d (%s)\n", len(r.Dropped), strings.Join(r.Dropped, ", "))
	}
	if len(r.Skipped) > 0 {
		fmt.Fprintf(w, "Skipped models: %d (%s)\n", len(r.Skipped), strings.Join(r.Skipped, ", "))
	}
	if r.Stopped != nil {
		fmt.Fprintf(w, "Stopped early:  %v\n", r.Stopped)
	}
}

// newBulkCmd - Erstellt den bulk Command
func newBulkCmd() *cobra.Command {
	bulkCmd := &cobra.Command{
		Use:   "bulk [DIR]",
		Short: "Merge every model in a folder into one",
		Long: `Merge every model in a folder into one.

Algorithms:
  fold    merge the models one after another at 50% into an accumulator,
          in batches sized by the memory budget (default)
  union   combine all tensors of each key in one step; failed keys fall
          back to the largest model`,
		Args: cobra.MaximumNArgs(1),
		RunE: BulkHandler,
	}

	bulkCmd.Flags().StringP("algorithm", "a", "fold", "Bulk algorithm: fold or union")
	bulkCmd.Flags().StringP("strategy", "s", "adaptive", "Merge strategy: adaptive, manual or additive")
	bulkCmd.Flags().Uint("batch-size", 4, "Maximum number of models per fold batch (default $LORAMERGE_BATCH_SIZE)")
	bulkCmd.Flags().Bool("no-memory-check", false, "Do not size fold batches by available memory")
	bulkCmd.Flags().StringP("output", "o", "", "Folder for the merged file (default: DIR)")

	return bulkCmd
}
