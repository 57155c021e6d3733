package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newRefreshCommand(ctx *commandContext) *cobra.Command {
	var schedule string
	var watch bool

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Refetch every saved feed into the episode cache",
		Long:  "Refetch every saved feed once, or keep refreshing on a cron schedule with --cron (or --watch to use refresh_cron from the config).",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.ensureRuntime(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if watch && schedule == "" {
				schedule = rt.cfg.RefreshCron
				if schedule == "" {
					return fmt.Errorf("--watch needs refresh_cron in the config")
				}
			}
			if schedule == "" {
				res, err := rt.service.RefreshAll(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Refreshed %d feeds, %d failed\n", res.Refreshed, res.Failed)
				return nil
			}

			sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			fmt.Fprintf(cmd.OutOrStdout(), "Refreshing on schedule %q; press Ctrl+C to stop\n", schedule)
			return rt.service.ScheduleRefresh(sigCtx, schedule)
		},
	}
	cmd.Flags().StringVar(&schedule, "cron", "", "Cron expression, e.g. \"*/30 * * * *\" or \"@every 1h\"")
	cmd.Flags().BoolVar(&watch, "watch", false, "Refresh on the refresh_cron schedule from the config")
	return cmd
}
