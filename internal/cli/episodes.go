package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/story-cms-api/internal/models"
)

func newEpisodesCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "episodes",
		Short: "Manage the episodes of a story",
	}

	cmd.AddCommand(newEpisodesListCommand(ctx))
	cmd.AddCommand(newEpisodesAddCommand(ctx))
	cmd.AddCommand(newEpisodesUpdateCommand(ctx))
	cmd.AddCommand(newEpisodesDeleteCommand(ctx))
	return cmd
}

func newEpisodesListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list <slug>",
		Short: "List episodes by position, archived ones included",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := ctx.services(cmd.Context())
			if err != nil {
				return err
			}

			list, err := services.Episode.List(cmd.Context(), args[0], models.Page{})
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, list)
			}

			out := cmd.OutOrStdout()
			if len(list.Episodes) == 0 {
				fmt.Fprintln(out, "No episodes.")
				return nil
			}

			colorize := shouldColorize(out)
			rows := make([][]string, 0, len(list.Episodes))
			for i, e := range list.Episodes {
				state := models.PublishStatusActive
				if !e.IsActive() {
					state = models.PublishStatusArchived
				}
				rows = append(rows, []string{
					strconv.Itoa(i),
					e.Title,
					colorStatus(state, colorize),
					e.CreatedAt.String(),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Title", "State", "Created"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print JSON instead of a table")
	return cmd
}

func newEpisodesAddCommand(ctx *commandContext) *cobra.Command {
	var title, content string

	cmd := &cobra.Command{
		Use:   "add <slug>",
		Short: "Append an episode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := ctx.services(cmd.Context())
			if err != nil {
				return err
			}

			in := &models.EpisodeInput{}
			if cmd.Flags().Changed("title") {
				in.Title = &title
			}
			if cmd.Flags().Changed("content") {
				in.Content = &content
			}

			result, err := services.Episode.Append(cmd.Context(), args[0], in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Story %s now has %d episodes\n", args[0], result.EpisodeCount)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "episode title")
	cmd.Flags().StringVar(&content, "content", "", "episode content")
	return cmd
}

func newEpisodesUpdateCommand(ctx *commandContext) *cobra.Command {
	var title, content string

	cmd := &cobra.Command{
		Use:   "update <slug> <index>",
		Short: "Update the title or content of an episode",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndexArg(args[1])
			if err != nil {
				return err
			}
			services, err := ctx.services(cmd.Context())
			if err != nil {
				return err
			}

			in := &models.EpisodeInput{}
			if cmd.Flags().Changed("title") {
				in.Title = &title
			}
			if cmd.Flags().Changed("content") {
				in.Content = &content
			}

			if _, err := services.Episode.UpdateField(cmd.Context(), args[0], index, in); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated episode %d of %s\n", index, args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&content, "content", "", "new content")
	return cmd
}

func newEpisodesDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <slug> <index>",
		Short: "Mark an episode archived; positions do not shift",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndexArg(args[1])
			if err != nil {
				return err
			}
			services, err := ctx.services(cmd.Context())
			if err != nil {
				return err
			}

			if _, err := services.Episode.SoftDelete(cmd.Context(), args[0], index); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Archived episode %d of %s\n", index, args[0])
			return nil
		},
	}
}

func parseIndexArg(raw string) (int, error) {
	index, err := strconv.Atoi(raw)
	if err != nil {
		return 0, models.FieldErrors{"index": "must be an integer"}
	}
	return index, nil
}
