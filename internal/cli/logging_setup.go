package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/rshade/gridcore/internal/config"
)

// envLogLevel overrides the configured log level when set.
const envLogLevel = "GRIDCORE_LOG_LEVEL"

// setupLogging configures logging based on config file, environment, and CLI flags.
func setupLogging(cmd *cobra.Command) error {
	level := config.GetLogLevel()

	debug, _ := cmd.Flags().GetBool("debug")
	if debug {
		level = "debug"
	}
	if envLevel := os.Getenv(envLogLevel); envLevel != "" && !debug {
		level = envLevel
	}
	// An explicit --log-level wins over both the env var and --debug.
	if flagLevel, _ := cmd.Flags().GetString("log-level"); flagLevel != "" {
		level = flagLevel
	}

	if logFile, _ := cmd.Flags().GetString("log-file"); logFile != "" {
		config.GetGlobalConfig().Logging.File = logFile
	}
	logToFile := config.GetLogFile() != ""

	if err := config.InitLogger(level, logToFile); err != nil {
		return err
	}

	logger = config.GetLogger().With().Str("component", "cli").Logger()
	logger.Info().Str("command", cmd.Name()).Msg("command started")
	return nil
}
