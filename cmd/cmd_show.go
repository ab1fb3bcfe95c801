// cmd_show.go - Show Command: Header oder einzelnen Tensor anzeigen
// Hauptfunktionen: ShowHandler, showInfo
package cmd

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/agnivade/levenshtein"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/loramerge/loramerge/fs"
	"github.com/loramerge/loramerge/fs/safetensors"
	"github.com/loramerge/loramerge/ml"
)

type tensorRow struct {
	Name  string
	DType string
	Shape []int
}

// ShowHandler - Zeigt Metadaten und Tensoren einer Datei bzw. einen Tensor an
func ShowHandler(cmd *cobra.Command, args []string) error {
	path := resolveSource(sourceDir(cmd), args[0])

	if len(args) > 1 {
		precision, _ := cmd.Flags().GetInt("precision")
		return showTensor(cmd.OutOrStdout(), path, args[1], precision)
	}

	metadata, rows, err := readInfo(path)
	if err != nil {
		return err
	}

	return showInfo(cmd.OutOrStdout(), metadata, rows)
}

// readInfo liest bei safetensors nur den Header, PyTorch-Dateien werden
// vollstaendig geladen
func readInfo(path string) (map[string]string, []tensorRow, error) {
	if fs.DetectFormat(path) == fs.FormatSafetensors {
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, err
		}
		defer f.Close()

		h, err := safetensors.ReadHeader(f)
		if err != nil {
			return nil, nil, err
		}

		rows := make([]tensorRow, 0, len(h.Tensors))
		for _, k := range h.Keys() {
			rows = append(rows, tensorRow{k, h.Tensors[k].DType, h.Tensors[k].Shape})
		}
		return h.Metadata, rows, nil
	}

	d, err := fs.Load(path)
	if err != nil {
		return nil, nil, err
	}

	rows := make([]tensorRow, 0, len(d))
	for _, k := range d.Keys() {
		rows = append(rows, tensorRow{k, d[k].DType().String(), d[k].Shape()})
	}
	return nil, rows, nil
}

// showInfo - Gibt Metadaten und Tensor-Liste aus
func showInfo(w io.Writer, metadata map[string]string, rows []tensorRow) error {
	tableRender := func(header string, rows func() [][]string) {
		fmt.Fprintln(w, " ", header)
		table := tablewriter.NewWriter(w)
		table.SetAlignment(tablewriter.ALIGN_LEFT)
		table.SetBorder(false)
		table.SetNoWhiteSpace(true)
		table.SetTablePadding("    ")
		table.AppendBulk(rows())
		table.Render()
		fmt.Fprintln(w)
	}

	if len(metadata) > 0 {
		tableRender("Metadata", func() (out [][]string) {
			keys := make([]string, 0, len(metadata))
			for k := range metadata {
				keys = append(keys, k)
			}
			slices.Sort(keys)

			for _, k := range keys {
				out = append(out, []string{"", k, metadata[k]})
			}
			return
		})
	}

	tableRender(fmt.Sprintf("Tensors (%d)", len(rows)), func() (out [][]string) {
		for _, r := range rows {
			out = append(out, []string{"", r.Name, r.DType, fmt.Sprint(r.Shape)})
		}
		return
	})

	return nil
}

func showTensor(w io.Writer, path, key string, precision int) error {
	d, err := fs.Load(path)
	if err != nil {
		return err
	}

	t, ok := d[key]
	if !ok {
		if s := closest(key, d.Keys()); s != "" {
			return fmt.Errorf("tensor %q not found, did you mean %q?", key, s)
		}
		return fmt.Errorf("tensor %q not found", key)
	}

	fmt.Fprintf(w, "%s %s %v\n", key, t.DType(), t.Shape())
	fmt.Fprintln(w, ml.Dump(t, ml.DumpWithPrecision(precision)))
	return nil
}

// closest gibt den aehnlichsten Namen zurueck, wenn er nah genug ist
func closest(name string, candidates []string) string {
	best, score := "", len(name)/3+1
	for _, c := range candidates {
		if d := levenshtein.ComputeDistance(name, c); d < score {
			best, score = c, d
		}
	}
	return best
}

// newShowCmd - Erstellt den show Command
func newShowCmd() *cobra.Command {
	showCmd := &cobra.Command{
		Use:   "show FILE [KEY]",
		Short: "Show tensors of a weight file, or the values of one tensor",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  ShowHandler,
	}

	showCmd.Flags().String("dir", "", "Folder to resolve file names against (default $LORAMERGE_DIR)")
	showCmd.Flags().Int("precision", 4, "Decimal places when printing a tensor")

	return showCmd
}
