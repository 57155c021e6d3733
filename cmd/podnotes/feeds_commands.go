package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/glabrego/podnotes/internal/library"
	"github.com/glabrego/podnotes/internal/opml"
)

func newFeedsCommand(ctx *commandContext) *cobra.Command {
	feedsCmd := &cobra.Command{
		Use:   "feeds",
		Short: "Manage saved podcast feeds",
	}
	feedsCmd.AddCommand(newFeedsListCommand(ctx))
	feedsCmd.AddCommand(newFeedsAddCommand(ctx))
	feedsCmd.AddCommand(newFeedsRemoveCommand(ctx))
	return feedsCmd
}

func newFeedsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved feeds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.ensureRuntime(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			feeds, err := rt.service.SavedFeeds(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(feeds) == 0 {
				fmt.Fprintln(out, "No saved feeds.")
				return nil
			}
			rows := make([][]string, 0, len(feeds))
			for _, f := range feeds {
				rows = append(rows, []string{f.Title, f.URL})
			}
			fmt.Fprintln(out, renderTable([]string{"Title", "URL"}, rows, nil))
			return nil
		},
	}
}

func newFeedsAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <url>",
		Short: "Fetch a feed and save it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.ensureRuntime(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			f, added, err := rt.service.SaveFeed(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !added {
				fmt.Fprintf(cmd.OutOrStdout(), "Already saved: %s\n", f.Title)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", f.Title)
			return nil
		},
	}
}

func newFeedsRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <title-or-url>",
		Short: "Remove a saved feed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.ensureRuntime(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			f, err := rt.service.RemoveFeed(cmd.Context(), args[0])
			if errors.Is(err, library.ErrFeedNotFound) {
				return fmt.Errorf("no saved feed matches %q", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", f.Title)
			return nil
		},
	}
}

func newOPMLCommand(ctx *commandContext) *cobra.Command {
	opmlCmd := &cobra.Command{
		Use:   "opml",
		Short: "Import or export saved feeds as OPML",
	}
	opmlCmd.AddCommand(newOPMLImportCommand(ctx))
	opmlCmd.AddCommand(newOPMLExportCommand(ctx))
	return opmlCmd
}

func newOPMLImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Subscribe to every feed of an OPML file (- for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			rt, err := ctx.ensureRuntime(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			_, err = rt.service.ImportOPML(cmd.Context(), text, printNotifier(cmd.OutOrStdout()), importProgress(cmd.ErrOrStderr()))
			return err
		},
	}
}

func newOPMLExportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "export <vault-path>",
		Short: "Write saved feeds as OPML into the vault",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.ensureRuntime(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			_, err = rt.service.ExportOPML(cmd.Context(), rt.vault, args[0], printNotifier(cmd.OutOrStdout()))
			return err
		},
	}
}

func printNotifier(out io.Writer) opml.Notifier {
	return opml.NotifierFunc(func(message string) {
		fmt.Fprintln(out, message)
	})
}

// importProgress draws a progress counter when stderr is a terminal.
func importProgress(out io.Writer) func(done, total int) {
	f, ok := out.(*os.File)
	if !ok || !isatty.IsTerminal(f.Fd()) {
		return nil
	}
	return func(done, total int) {
		fmt.Fprintf(out, "\rImporting %d/%d", done, total)
		if done == total {
			fmt.Fprintln(out)
		}
	}
}
