package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"cloudsnap/src/cloudapi"
)

// connectFunc is an indirection point so tests can inject a fake provider.
var connectFunc = connectProvider

func connectProvider(ctx context.Context, cmd *cobra.Command) (cloudapi.Client, error) {
	name, _ := cmd.Root().PersistentFlags().GetString("provider")
	switch name {
	case "azure":
		sub, _ := cmd.Root().PersistentFlags().GetString("subscription")
		return cloudapi.ConnectAzure(sub)
	case "aws":
		region, _ := cmd.Root().PersistentFlags().GetString("region")
		return cloudapi.ConnectAWS(ctx, region)
	default:
		return nil, fmt.Errorf("unsupported provider %q (want azure|aws)", name)
	}
}

// getClient connects to the selected provider and verifies the snapshot
// capability once. Any failure here aborts the run; this is the only error
// class that is never skipped past.
func getClient(ctx context.Context, cmd *cobra.Command) (cloudapi.Client, error) {
	client, err := connectFunc(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("provider capability check failed: %w", err)
	}
	return client, nil
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
