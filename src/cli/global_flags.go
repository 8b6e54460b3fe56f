package cli

import (
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"cloudsnap/src/logging"
	"cloudsnap/src/safety"
)

// addGlobalFlags adds persistent provider, logging, and safety flags to the
// root command.
func addGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().Bool("dry-run", false, "Show planned actions without making changes")
	cmd.PersistentFlags().BoolP("yes", "y", false, "Assume 'yes' to prompts and run non-interactively")
	cmd.PersistentFlags().Bool("force", false, "Force potentially dangerous operations (implies --yes)")
	cmd.PersistentFlags().String("provider", "azure", "Cloud provider: azure|aws")
	cmd.PersistentFlags().String("subscription", "", "Azure subscription id (defaults to AZURE_SUBSCRIPTION_ID)")
	cmd.PersistentFlags().String("region", "", "AWS region (defaults to the SDK config chain)")
	cmd.PersistentFlags().String("log-level", "info", "Log level: debug|info|warn|error")
	cmd.PersistentFlags().Bool("log-json", false, "Emit raw JSON events instead of console output")
}

// getSafetyOptions reads global flags into a safety.Options struct.
func getSafetyOptions(cmd *cobra.Command) safety.Options {
	dry, _ := cmd.Root().PersistentFlags().GetBool("dry-run")
	yes, _ := cmd.Root().PersistentFlags().GetBool("yes")
	force, _ := cmd.Root().PersistentFlags().GetBool("force")
	return safety.Options{DryRun: dry, Yes: yes, Force: force}
}

// getLogger builds the event logger from the global logging flags.
func getLogger(cmd *cobra.Command, w io.Writer) zerolog.Logger {
	level, _ := cmd.Root().PersistentFlags().GetString("log-level")
	json, _ := cmd.Root().PersistentFlags().GetBool("log-json")
	return logging.New(w, level, json)
}
