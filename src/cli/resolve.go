package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"cloudsnap/src/resolve"
)

func newResolveCmd(stdout, stderr io.Writer) *cobra.Command {
	var location string
	cmd := &cobra.Command{
		Use:   "resolve IDENTIFIER",
		Short: "Show how a target classifies and which disks it carries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmdContext(cmd)
			client, err := getClient(ctx, cmd)
			if err != nil {
				return err
			}
			t, err := resolve.Resolve(ctx, client, args[0], location)
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "%s resolves to a %s in %s\n", t.Identifier, t.Kind, t.Location)
			tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "VOLUME\tROLE\tINDEX")
			for _, d := range t.Disks {
				fmt.Fprintf(tw, "%s\t%s\t%d\n", d.VolumeID, d.Role, d.Index)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&location, "location", "", "Resource scope (resource group / region)")
	return cmd
}
