// cmd_history.go - History Command: zuletzt gespeicherte Ergebnisse
// Hauptfunktionen: HistoryHandler
package cmd

import (
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/loramerge/loramerge/envconfig"
	"github.com/loramerge/loramerge/format"
	"github.com/loramerge/loramerge/journal"
)

// HistoryHandler - Listet die Merge-Historie auf
func HistoryHandler(cmd *cobra.Command, _ []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	j, err := journal.Open(envconfig.Journal())
	if err != nil {
		return err
	}
	defer j.Close()

	entries, err := j.List(limit)
	if err != nil {
		return err
	}

	var data [][]string
	for _, e := range entries {
		mode := e.Strategy
		if e.Algorithm != "" {
			mode = e.Algorithm + "/" + e.Strategy
		}

		data = append(data, []string{
			runewidth.Truncate(e.Name, maxNameWidth, "..."),
			mode,
			strconv.FormatFloat(e.Weight*100, 'f', -1, 64) + "%",
			runewidth.Truncate(strings.Join(e.Sources, ", "), maxNameWidth, "..."),
			format.HumanBytes(e.Size),
			format.HumanTime(e.CreatedAt, "Never"),
		})
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"NAME", "STRATEGY", "WEIGHT", "SOURCES", "SIZE", "CREATED"})
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

// newHistoryCmd - Erstellt den history Command
func newHistoryCmd() *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recently merged files",
		Args:  cobra.NoArgs,
		RunE:  HistoryHandler,
	}

	historyCmd.Flags().IntP("limit", "n", 20, "Number of entries to show (0 for all)")

	return historyCmd
}
