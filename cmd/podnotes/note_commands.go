package main

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/glabrego/podnotes/internal/podcast"
	"github.com/glabrego/podnotes/internal/template"
	"github.com/glabrego/podnotes/internal/vault"
)

func newNoteCommand(ctx *commandContext) *cobra.Command {
	var tmplFlag, pathFlag string
	var printOnly bool

	cmd := &cobra.Command{
		Use:   "note <feed> <title>",
		Short: "Create an episode note in the vault",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.ensureRuntime(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			ep, err := rt.service.FindEpisode(cmd.Context(), rt.service.ResolveFeed(cmd.Context(), args[0]), args[1])
			if err != nil {
				return err
			}
			noteTmpl := firstNonEmpty(tmplFlag, rt.cfg.NoteTemplate)
			pathTmpl := firstNonEmpty(pathFlag, rt.cfg.NotePath)
			opts := []template.Option{template.WithLogger(rt.logger)}

			if printOnly {
				body, diags := template.NoteTemplate(noteTmpl, ep, opts...)
				printDiagnostics(cmd.ErrOrStderr(), diags)
				_, err := io.WriteString(cmd.OutOrStdout(), body)
				return err
			}

			note, err := vault.CreateNote(rt.vault, pathTmpl, noteTmpl, ep, opts...)
			printDiagnostics(cmd.ErrOrStderr(), note.Diagnostics)
			if err != nil {
				return err
			}
			if note.Created {
				fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", note.Path)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Already exists: %s\n", note.Path)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tmplFlag, "template", "", "Note body template (defaults to note_template)")
	cmd.Flags().StringVar(&pathFlag, "path", "", "Note path template (defaults to note_path)")
	cmd.Flags().BoolVar(&printOnly, "print", false, "Print the rendered note instead of writing it")
	return cmd
}

func newPathCommand(ctx *commandContext) *cobra.Command {
	var tmplFlag string
	var download bool

	cmd := &cobra.Command{
		Use:   "path <feed> <title>",
		Short: "Render the note or download path of an episode",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.ensureRuntime(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			ep, err := rt.service.FindEpisode(cmd.Context(), rt.service.ResolveFeed(cmd.Context(), args[0]), args[1])
			if err != nil {
				return err
			}
			var rendered string
			var diags []template.Diagnostic
			if download {
				rendered, diags = template.DownloadPathTemplate(firstNonEmpty(tmplFlag, rt.cfg.DownloadPath), ep)
			} else {
				rendered, diags = template.FilePathTemplate(firstNonEmpty(tmplFlag, rt.cfg.NotePath), ep)
			}
			printDiagnostics(cmd.ErrOrStderr(), diags)
			fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return nil
		},
	}
	cmd.Flags().StringVar(&tmplFlag, "template", "", "Path template (defaults to note_path or download_path)")
	cmd.Flags().BoolVar(&download, "download", false, "Render the download path, without a file extension")
	return cmd
}

func newTimestampCommand(ctx *commandContext) *cobra.Command {
	var tmplFlag, at string

	cmd := &cobra.Command{
		Use:   "timestamp <feed> <title>",
		Short: "Render a timestamp line linking back to a playback position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			position, err := parsePosition(at)
			if err != nil {
				return err
			}
			rt, err := ctx.ensureRuntime(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			ep, err := rt.service.FindEpisode(cmd.Context(), rt.service.ResolveFeed(cmd.Context(), args[0]), args[1])
			if err != nil {
				return err
			}
			rendered, diags := template.TimestampTemplate(firstNonEmpty(tmplFlag, rt.cfg.TimestampTemplate), fixedPosition{ep: ep, at: position})
			printDiagnostics(cmd.ErrOrStderr(), diags)
			fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return nil
		},
	}
	cmd.Flags().StringVar(&tmplFlag, "template", "", "Timestamp template (defaults to timestamp_template)")
	cmd.Flags().StringVar(&at, "at", "0", "Playback position as seconds, MM:SS or HH:MM:SS")
	return cmd
}

func newTranscriptCommand(ctx *commandContext) *cobra.Command {
	var tmplFlag, pathFlag, file string
	var force bool

	cmd := &cobra.Command{
		Use:   "transcript <feed> <title>",
		Short: "Write a transcript note for an episode into the vault",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			rt, err := ctx.ensureRuntime(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			ep, err := rt.service.FindEpisode(cmd.Context(), rt.service.ResolveFeed(cmd.Context(), args[0]), args[1])
			if err != nil {
				return err
			}

			notePath, diags := template.FilePathTemplate(firstNonEmpty(pathFlag, rt.cfg.TranscriptPath), ep)
			body, bodyDiags := template.TranscriptTemplate(firstNonEmpty(tmplFlag, rt.cfg.TranscriptTemplate), ep, strings.TrimSpace(text))
			printDiagnostics(cmd.ErrOrStderr(), append(diags, bodyDiags...))
			notePath = strings.TrimSpace(notePath)
			if notePath == "" {
				return errors.New("transcript path template rendered an empty path")
			}
			if !strings.HasSuffix(strings.ToLower(notePath), ".md") {
				notePath += ".md"
			}

			if dir := path.Dir(notePath); dir != "." && dir != "/" {
				if err := rt.vault.CreateFolder(dir); err != nil {
					return err
				}
			}
			if force {
				err = rt.vault.Write(notePath, body)
			} else {
				err = rt.vault.Create(notePath, body)
			}
			if errors.Is(err, vault.ErrExists) {
				return fmt.Errorf("%s already exists; pass --force to overwrite", notePath)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", notePath)
			return nil
		},
	}
	cmd.Flags().StringVar(&tmplFlag, "template", "", "Transcript template (defaults to transcript_template)")
	cmd.Flags().StringVar(&pathFlag, "path", "", "Transcript path template (defaults to transcript_path)")
	cmd.Flags().StringVarP(&file, "file", "f", "-", "Transcript text file, - for stdin")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing transcript note")
	return cmd
}

// fixedPosition is a paused player at a caller-chosen position.
type fixedPosition struct {
	ep podcast.Episode
	at float64
}

func (p fixedPosition) CurrentTime() float64     { return p.at }
func (p fixedPosition) Duration() float64        { return 0 }
func (p fixedPosition) Episode() podcast.Episode { return p.ep }

// parsePosition accepts plain seconds, MM:SS or HH:MM:SS.
func parsePosition(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	parts := strings.Split(raw, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid position %q", raw)
	}
	total := 0.0
	for i, part := range parts {
		v, err := strconv.ParseFloat(part, 64)
		if err != nil || v < 0 || math.IsInf(v, 0) || math.IsNaN(v) {
			return 0, fmt.Errorf("invalid position %q", raw)
		}
		if i > 0 && v >= 60 {
			return 0, fmt.Errorf("invalid position %q", raw)
		}
		total = total*60 + v
	}
	return total, nil
}

func readInput(stdin io.Reader, file string) (string, error) {
	if file == "" || file == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", file, err)
	}
	return string(data), nil
}

func printDiagnostics(out io.Writer, diags []template.Diagnostic) {
	for _, d := range diags {
		fmt.Fprintf(out, "warning: %s\n", d)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
