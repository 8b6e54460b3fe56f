package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"cloudsnap/src/batch"
)

func newBackupCmd(stdout, stderr io.Writer) *cobra.Command {
	var entry batch.Entry
	var configPath string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Snapshot configured targets (incremental with full fallback)",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := backupEntries(configPath, entry)
			if err != nil {
				return err
			}
			ctx := cmdContext(cmd)
			client, err := getClient(ctx, cmd)
			if err != nil {
				return err
			}
			opts := getSafetyOptions(cmd)
			runner := batch.Runner{Client: client, Logger: getLogger(cmd, stderr)}
			sum, err := runner.Run(ctx, entries, opts.DryRun)
			if err != nil {
				return err
			}
			if opts.DryRun {
				fmt.Fprintf(stdout, "Planned %d snapshots across %d entries (%d skipped)\n",
					sum.Planned, sum.Entries, sum.Skipped)
				return nil
			}
			fmt.Fprintf(stdout, "Created %d snapshots across %d entries (%d skipped, %d disks failed)\n",
				sum.Created, sum.Entries, sum.Skipped, sum.FailedDisks)
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "Batch file with snapshot entries (YAML)")
	cmd.Flags().StringVar(&entry.Target, "target", "", "Target instance or volume identifier")
	cmd.Flags().StringVar(&entry.Location, "location", "", "Resource scope (resource group / region)")
	cmd.Flags().StringVar(&entry.Type, "type", "incremental", "Backup type: incremental|full")
	cmd.Flags().StringVar(&entry.RetentionDays, "retention", "", "Retention window in days")
	cmd.Flags().StringVar(&entry.Scope, "scope", "all", "Disk scope: os|data|all")
	cmd.Flags().StringVar(&entry.Reason, "reason", "", "Free-text reason recorded on the snapshot")
	return cmd
}

// backupEntries returns either the batch file's entries or the single entry
// assembled from flags.
func backupEntries(configPath string, flagEntry batch.Entry) ([]batch.Entry, error) {
	if configPath != "" {
		if flagEntry.Target != "" {
			return nil, errors.New("--config and --target are mutually exclusive")
		}
		return batch.Load(configPath)
	}
	if flagEntry.Target == "" {
		return nil, errors.New("either --config or --target is required")
	}
	return []batch.Entry{flagEntry}, nil
}
