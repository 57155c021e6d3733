package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the episode cache",
	}

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show episode cache usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.ensureRuntime(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			stats := rt.cache.Stats(cmd.Context())
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Feeds:    %d\n", stats.Feeds)
			fmt.Fprintf(out, "Episodes: %d\n", stats.Episodes)
			fmt.Fprintf(out, "Size:     %s\n", humanize.Bytes(uint64(stats.Bytes)))
			return nil
		},
	})

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Drop every cached episode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.ensureRuntime(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			rt.cache.ClearFeedCache(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "Episode cache cleared.")
			return nil
		},
	})

	return cacheCmd
}
