package cli

import (
	"errors"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"cloudsnap/src/batch"
	"cloudsnap/src/schedule"
)

func newScheduleCmd(stdout, stderr io.Writer) *cobra.Command {
	var cronExpr string
	var configPath string
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the backup batch on a cron schedule until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return errors.New("--config is required")
			}
			entries, err := batch.Load(configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmdContext(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			client, err := getClient(ctx, cmd)
			if err != nil {
				return err
			}
			logger := getLogger(cmd, stderr)
			opts := getSafetyOptions(cmd)
			runner := batch.Runner{Client: client, Logger: logger}

			sched := schedule.New(cronExpr, func() {
				if _, err := runner.Run(ctx, entries, opts.DryRun); err != nil {
					logger.Error().Err(err).Msg("scheduled batch aborted")
				}
			}, logger)
			if err := sched.Start(); err != nil {
				return err
			}
			<-ctx.Done()
			<-sched.Stop().Done()
			return nil
		},
	}
	cmd.Flags().StringVar(&cronExpr, "cron", "0 3 * * *", "Cron expression for batch runs")
	cmd.Flags().StringVar(&configPath, "config", "", "Batch file with snapshot entries (YAML)")
	return cmd
}
