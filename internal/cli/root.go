// Package cli wires the gridcore commands: an interactive browse view over
// the synchronization engine and a plain dump for non-terminal output.
package cli

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rshade/gridcore/internal/config"
)

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// logger is the package-level logger for CLI operations.
var logger zerolog.Logger //nolint:gochecknoglobals // Required for zerolog context integration

// NewRootCmd creates the root Cobra command for the gridcore CLI.
// It wires up logging and the browse subcommand.
func NewRootCmd(ver string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "gridcore",
		Short:   "Windowed grid synchronization engine",
		Long:    "gridcore: browse large datasets through a lazily-fetched, sortable, selectable grid",
		Version: ver,
		Example: rootCmdExample,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cfgPath, _ := cmd.Flags().GetString("config"); cfgPath != "" {
				if err := config.ShallowMergeYAML(config.GetGlobalConfig(), cfgPath); err != nil {
					return err
				}
			}
			return setupLogging(cmd)
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			config.CloseLogFile()
		},
	}

	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	cmd.PersistentFlags().String("log-level", "", "log level: trace, debug, info, warn, error")
	cmd.PersistentFlags().String("config", "", "path to a config overlay file")
	cmd.PersistentFlags().String("log-file", "", "write logs to this file instead of stderr only")
	cmd.AddCommand(NewBrowseCmd())

	return cmd
}

const rootCmdExample = `  # Browse the generated demo dataset interactively
  gridcore browse

  # Browse a remote paged endpoint
  gridcore browse --url https://releases.example.com/api/releases

  # Start sorted, with single selection
  gridcore browse --sort version:desc --selection-mode single

  # Non-interactive dump of the first page (for pipes)
  gridcore browse --plain --rows 500 | head -20`
