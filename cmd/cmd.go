// cmd.go - Haupt-CLI Setup und Root Command
// Hauptfunktionen: NewCLI, appendEnvDocs
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/containerd/console"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/loramerge/loramerge/envconfig"
	"github.com/loramerge/loramerge/logutil"
)

// appendEnvDocs - Fuegt Umgebungsvariablen-Dokumentation zum Command hinzu
func appendEnvDocs(cmd *cobra.Command, envs []envconfig.EnvVar) {
	if len(envs) == 0 {
		return
	}

	envUsage := `
Environment Variables:
`
	for _, e := range envs {
		envUsage += fmt.Sprintf("      %-26s   %s\n", e.Name, e.Description)
	}

	cmd.SetUsageTemplate(cmd.UsageTemplate() + envUsage)
}

// NewCLI - Erstellt das Haupt-CLI mit allen Commands
func NewCLI() *cobra.Command {
	cobra.EnableCommandSorting = false

	if runtime.GOOS == "windows" && term.IsTerminal(int(os.Stdout.Fd())) {
		console.ConsoleFromFile(os.Stdin) //nolint:errcheck
	}

	rootCmd := &cobra.Command{
		Use:           "loramerge",
		Short:         "Merge LoRA weight files",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			slog.SetDefault(logutil.NewLogger(cmd.ErrOrStderr(), envconfig.LogLevel()))
		},
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Print(cmd.UsageString())
		},
	}

	// Commands erstellen
	mergeCmd := newMergeCmd()
	checkpointCmd := newCheckpointCmd()
	bulkCmd := newBulkCmd()
	listCmd := newListCmd()
	showCmd := newShowCmd()
	historyCmd := newHistoryCmd()

	// Environment-Dokumentation hinzufuegen
	envVars := envconfig.AsMap()
	envs := []envconfig.EnvVar{envVars["LORAMERGE_DEBUG"], envVars["LORAMERGE_DIR"]}

	for _, cmd := range []*cobra.Command{
		mergeCmd,
		checkpointCmd,
		bulkCmd,
		listCmd,
		showCmd,
		historyCmd,
	} {
		switch cmd {
		case mergeCmd, checkpointCmd:
			appendEnvDocs(cmd, []envconfig.EnvVar{
				envVars["LORAMERGE_DEBUG"],
				envVars["LORAMERGE_DIR"],
				envVars["LORAMERGE_OUTPUT"],
				envVars["LORAMERGE_JOURNAL"],
				envVars["LORAMERGE_NOJOURNAL"],
			})
		case bulkCmd:
			appendEnvDocs(cmd, []envconfig.EnvVar{
				envVars["LORAMERGE_DEBUG"],
				envVars["LORAMERGE_DIR"],
				envVars["LORAMERGE_OUTPUT"],
				envVars["LORAMERGE_BATCH_SIZE"],
				envVars["LORAMERGE_MEMORY_HEADROOM"],
				envVars["LORAMERGE_JOURNAL"],
				envVars["LORAMERGE_NOJOURNAL"],
			})
		case historyCmd:
			appendEnvDocs(cmd, []envconfig.EnvVar{envVars["LORAMERGE_JOURNAL"]})
		default:
			appendEnvDocs(cmd, envs)
		}
	}

	rootCmd.AddCommand(
		mergeCmd,
		checkpointCmd,
		bulkCmd,
		listCmd,
		showCmd,
		historyCmd,
	)

	return rootCmd
}
