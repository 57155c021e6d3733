package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/glabrego/podnotes/internal/podcast"
	"github.com/glabrego/podnotes/internal/template"
)

func newFeedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "feed <url>",
		Short: "Fetch and describe a podcast feed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.ensureRuntime(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			f, err := rt.service.Feed(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Title:   %s\n", f.Title)
			fmt.Fprintf(out, "URL:     %s\n", f.URL)
			if f.ArtworkURL != "" {
				fmt.Fprintf(out, "Artwork: %s\n", f.ArtworkURL)
			}
			return nil
		},
	}
}

func newEpisodesCommand(ctx *commandContext) *cobra.Command {
	var refresh bool
	var limit int

	cmd := &cobra.Command{
		Use:   "episodes <feed>",
		Short: "List the episodes of a saved feed or feed URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.ensureRuntime(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			f := rt.service.ResolveFeed(cmd.Context(), args[0])
			episodes, err := rt.service.Episodes(cmd.Context(), f, refresh)
			if err != nil {
				return err
			}
			if limit > 0 && len(episodes) > limit {
				episodes = episodes[:limit]
			}
			printEpisodes(cmd.OutOrStdout(), episodes)
			return nil
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Bypass the episode cache")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most this many episodes")
	return cmd
}

func printEpisodes(out io.Writer, episodes []podcast.Episode) {
	if len(episodes) == 0 {
		fmt.Fprintln(out, "No episodes.")
		return
	}
	rows := make([][]string, 0, len(episodes))
	for i, ep := range episodes {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			ep.Title,
			episodeDate(ep),
			yesNo(ep.ChaptersURL != ""),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"#", "Title", "Published", "Chapters"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
	))
}

func newFindCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "find <feed> <title>",
		Short: "Look up one episode by title",
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
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Title:     %s\n", ep.Title)
			fmt.Fprintf(out, "Podcast:   %s\n", ep.PodcastName)
			fmt.Fprintf(out, "Published: %s\n", episodeDate(ep))
			fmt.Fprintf(out, "URL:       %s\n", ep.URL)
			fmt.Fprintf(out, "Stream:    %s\n", ep.StreamURL)
			if ep.ChaptersURL != "" {
				fmt.Fprintf(out, "Chapters:  %s\n", ep.ChaptersURL)
			}
			return nil
		},
	}
}

func newChaptersCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "chapters <feed> <title>",
		Short: "List the chapters an episode declares",
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
			chapters := rt.service.Chapters(cmd.Context(), ep)
			out := cmd.OutOrStdout()
			if len(chapters) == 0 {
				fmt.Fprintln(out, "No chapters.")
				return nil
			}
			rows := make([][]string, 0, len(chapters))
			for _, c := range chapters {
				rows = append(rows, []string{template.FormatSeconds(c.StartTime, template.DefaultTimeFormat), c.Title})
			}
			fmt.Fprintln(out, renderTable([]string{"Start", "Title"}, rows, []columnAlignment{alignRight, alignLeft}))
			return nil
		},
	}
}

func episodeDate(ep podcast.Episode) string {
	if ep.EpisodeDate == nil {
		return "-"
	}
	return ep.EpisodeDate.UTC().Format(time.DateOnly)
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
