package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/glabrego/podnotes/internal/tui"
)

func newBrowseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "browse <feed>",
		Short: "Browse a feed's episodes interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.ensureRuntime(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			f := rt.service.ResolveFeed(cmd.Context(), args[0])
			model := tui.NewModel(rt.service, f, nil, tui.Options{
				Vault:             rt.vault,
				NotePath:          rt.cfg.NotePath,
				NoteTemplate:      rt.cfg.NoteTemplate,
				TimestampTemplate: rt.cfg.TimestampTemplate,
			})
			_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}
}
