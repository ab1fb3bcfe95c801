// cmd_merge.go - Merge und Checkpoint Commands
// Hauptfunktionen: MergeHandler, CheckpointHandler
package cmd

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/loramerge/loramerge/journal"
	"github.com/loramerge/loramerge/merge"
)

// MergeHandler - Fuehrt zwei LoRA-Dateien zusammen
func MergeHandler(cmd *cobra.Command, args []string) error {
	name, err := cmd.Flags().GetString("strategy")
	if err != nil {
		return err
	}

	strategy, err := merge.ParseStrategy(name)
	if err != nil {
		return err
	}

	dir := sourceDir(cmd)
	return runMerge(cmd, strategy, resolveSource(dir, args[0]), resolveSource(dir, args[1]))
}

// CheckpointHandler - Fuehrt eine LoRA additiv in einen Checkpoint ein.
// Der Checkpoint bleibt vollstaendig erhalten, die LoRA wird mit dem
// Gewicht skaliert addiert.
func CheckpointHandler(cmd *cobra.Command, args []string) error {
	dir := sourceDir(cmd)
	return runMerge(cmd, merge.Additive, resolveSource(dir, args[1]), resolveSource(dir, args[0]))
}

func runMerge(cmd *cobra.Command, strategy merge.Strategy, main, other string) error {
	weight, mix, err := weights(cmd)
	if err != nil {
		return err
	}

	cfg := merge.Config{
		Sources:  []string{main, other},
		Strategy: strategy,
		Weight:   weight,
		Mix:      mix,
	}
	cfg.Output = outputDir(cmd, filepath.Dir(main))

	p := newProgress(cmd.ErrOrStderr())
	artifacts, err := merge.Run(cfg, nil, p.Update)
	if err != nil {
		return err
	}

	paths, saveErr := merge.SaveAll(cfg.Output, artifacts, nil, p.Update)
	printSaved(cmd, paths)

	saved := make(map[string]bool, len(paths))
	for _, path := range paths {
		saved[filepath.Base(path)] = true
	}

	var entries []journal.Entry
	for _, a := range artifacts {
		if !saved[a.Name] {
			continue
		}

		path := filepath.Join(cfg.Output, a.Name)
		entries = append(entries, journal.Entry{
			RunID:    a.RunID,
			Name:     a.Name,
			Path:     path,
			Strategy: a.Strategy.String(),
			Weight:   a.Fraction,
			Sources:  a.Sources,
			Tensors:  len(a.Dictionary),
			Size:     fileSize(path),
		})
	}
	recordArtifacts(entries...)

	if saveErr != nil {
		slog.Error("some variants could not be saved", "saved", len(paths), "total", len(artifacts))
		return saveErr
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Merging completed!")
	return nil
}

func addMergeFlags(cmd *cobra.Command) {
	cmd.Flags().Float64P("weight", "w", 50, "Weight of the first model in percent (0-100)")
	cmd.Flags().String("mix", "", "Comma separated weights in percent, one output per weight (e.g. 25,50,75)")
	cmd.Flags().String("dir", "", "Folder to resolve model names against (default $LORAMERGE_DIR)")
	cmd.Flags().StringP("output", "o", "", "Folder for merged files (default: folder of the first model)")
}

// newMergeCmd - Erstellt den merge Command
func newMergeCmd() *cobra.Command {
	mergeCmd := &cobra.Command{
		Use:   "merge MAIN OTHER",
		Short: "Merge two LoRA models",
		Long: `Merge two LoRA models key by key.

Strategies:
  adaptive   weight by L2 norm, steered by --weight (default)
  manual     weight*MAIN + (1-weight)*OTHER
  additive   MAIN + weight*OTHER`,
		Args: cobra.ExactArgs(2),
		RunE: MergeHandler,
	}

	mergeCmd.Flags().StringP("strategy", "s", "adaptive", "Merge strategy: adaptive, manual or additive")
	addMergeFlags(mergeCmd)

	return mergeCmd
}

// newCheckpointCmd - Erstellt den checkpoint Command
func newCheckpointCmd() *cobra.Command {
	checkpointCmd := &cobra.Command{
		Use:   "checkpoint LORA CHECKPOINT",
		Short: "Add a LoRA to a checkpoint",
		Args:  cobra.ExactArgs(2),
		RunE:  CheckpointHandler,
	}

	addMergeFlags(checkpointCmd)
	checkpointCmd.Flags().Lookup("weight").Usage = "Scale of the LoRA in percent (0-100)"

	return checkpointCmd
}
