package cli

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"cloudsnap/src/retention"
	"cloudsnap/src/safety"
)

func newCleanupCmd(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete automated snapshots whose retention window has elapsed",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmdContext(cmd)
			client, err := getClient(ctx, cmd)
			if err != nil {
				return err
			}
			now := time.Now().UTC()
			candidates, err := retention.Scan(ctx, client, now)
			if err != nil {
				return err
			}

			// Preview, always
			eligible := 0
			tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTARGET\tCREATED\tAGE\tRETENTION\tELIGIBLE")
			for _, c := range candidates {
				created := ""
				if !c.Created.IsZero() {
					created = c.Created.Format("2006-01-02")
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%dd\t%dd\t%t\n",
					c.Record.ID, c.Target, created, c.AgeDays, c.RetentionDays, c.Eligible)
				if c.Eligible {
					eligible++
				}
			}
			_ = tw.Flush()

			opts := getSafetyOptions(cmd)
			if opts.DryRun || eligible == 0 {
				return nil
			}
			ok, err := safety.Confirm(opts, os.Stdin, stdout, fmt.Sprintf("Delete %d snapshots?", eligible))
			if err != nil || !ok {
				return err
			}
			res := retention.Apply(ctx, client, getLogger(cmd, stderr), candidates)
			fmt.Fprintf(stdout, "Deleted %d snapshots (%d failed)\n", res.Deleted, res.Failed)
			return nil
		},
	}
	return cmd
}
