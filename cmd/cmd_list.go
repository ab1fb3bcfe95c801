// cmd_list.go - List Command
// Hauptfunktionen: ListHandler
package cmd

import (
	"fmt"
	"strconv"

	"github.com/mattn/go-runewidth"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/loramerge/loramerge/envconfig"
	"github.com/loramerge/loramerge/format"
	"github.com/loramerge/loramerge/fs"
)

const maxNameWidth = 48

// ListHandler - Listet alle Gewichts-Dateien eines Verzeichnisses auf
func ListHandler(cmd *cobra.Command, args []string) error {
	dir := envconfig.Dir()
	if len(args) > 0 {
		dir = args[0]
	}

	files, err := fs.Scan(dir)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return fmt.Errorf("%w in %s", errNoModels, dir)
	}

	var data [][]string
	for i, f := range files {
		layers := "-"
		switch {
		case f.Err != nil:
			layers = "unreadable"
		case f.Tensors >= 0:
			layers = strconv.Itoa(f.Tensors)
		}

		data = append(data, []string{
			strconv.Itoa(i + 1),
			runewidth.Truncate(f.Name, maxNameWidth, "..."),
			string(f.Format),
			layers,
			format.HumanBytes(f.Size),
		})
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"#", "NAME", "FORMAT", "LAYERS", "SIZE"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()

	return nil
}

// newListCmd - Erstellt den list Command
func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list [DIR]",
		Aliases: []string{"ls"},
		Short:   "List weight files in a folder",
		Args:    cobra.MaximumNArgs(1),
		RunE:    ListHandler,
	}
}
