package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/story-cms-api/internal/models"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var offset int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List live stories, most recently modified first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := ctx.services(cmd.Context())
			if err != nil {
				return err
			}

			page := models.Page{Offset: offset}
			if cmd.Flags().Changed("limit") {
				page.Limit = &limit
			}

			list, err := services.Story.List(cmd.Context(), page)
			if err != nil {
				return fmt.Errorf("list stories: %w", err)
			}

			if jsonOutput {
				return writeJSON(cmd, list)
			}

			out := cmd.OutOrStdout()
			if len(list.Stories) == 0 {
				fmt.Fprintln(out, "No stories found.")
				return nil
			}

			colorize := shouldColorize(out)
			rows := make([][]string, 0, len(list.Stories))
			for _, s := range list.Stories {
				rows = append(rows, []string{
					s.Slug,
					s.Title,
					s.Author,
					colorStatus(s.Status, colorize),
					strconv.Itoa(s.Views),
					strconv.Itoa(len(s.Episodes)),
					s.UpdatedAt.String(),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Slug", "Title", "Author", "Status", "Views", "Episodes", "Updated"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			fmt.Fprintf(out, "Showing %d of %d stories\n", len(list.Stories), list.Total)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of stories")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of stories to skip")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print JSON instead of a table")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <slug>",
		Short: "Print a story as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := ctx.services(cmd.Context())
			if err != nil {
				return err
			}
			story, err := services.Story.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd, story)
		},
	}
}

func newCreateCommand(ctx *commandContext) *cobra.Command {
	var title, author, content, slug string
	var tags []string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a story",
		Example: `  storyctl create --title "Hello World" --author Ann --content "Once upon a time"
  storyctl create --title "Hello" --author Ann --content "..." --slug hello_again --tag fairy --tag short`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := ctx.services(cmd.Context())
			if err != nil {
				return err
			}

			req := &models.CreateStoryRequest{Tags: tags}
			if cmd.Flags().Changed("title") {
				req.Title = &title
			}
			if cmd.Flags().Changed("author") {
				req.Author = &author
			}
			if cmd.Flags().Changed("content") {
				req.Content = &content
			}
			if cmd.Flags().Changed("slug") {
				req.Slug = &slug
			}

			story, err := services.Story.Create(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", story.Slug)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "story title")
	cmd.Flags().StringVar(&author, "author", "", "story author")
	cmd.Flags().StringVar(&content, "content", "", "story content")
	cmd.Flags().StringVar(&slug, "slug", "", "explicit slug, derived from the title when omitted")
	cmd.Flags().StringArrayVar(&tags, "tag", nil, "tag (repeatable)")
	return cmd
}

func newUpdateCommand(ctx *commandContext) *cobra.Command {
	var title, slug, content, status string
	var tags []string
	var views int

	cmd := &cobra.Command{
		Use:   "update <slug>",
		Short: "Update selected fields of a story",
		Long: `Update selected fields of a story. Only flags given on the command line
are changed; --tag replaces the whole tag list.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := ctx.services(cmd.Context())
			if err != nil {
				return err
			}

			patch := &models.StoryPatch{}
			flags := cmd.Flags()
			if flags.Changed("title") {
				patch.Title = &title
			}
			if flags.Changed("slug") {
				patch.Slug = &slug
			}
			if flags.Changed("content") {
				patch.Content = &content
			}
			if flags.Changed("status") {
				patch.Status = &status
			}
			if flags.Changed("tag") {
				patch.Tags = &tags
			}
			if flags.Changed("views") {
				patch.Views = &views
			}

			story, err := services.Story.Update(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", story.Slug)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&slug, "slug", "", "new slug field (the storage key is unchanged)")
	cmd.Flags().StringVar(&content, "content", "", "new content")
	cmd.Flags().StringVar(&status, "status", "", "new status")
	cmd.Flags().StringArrayVar(&tags, "tag", nil, "replacement tag (repeatable)")
	cmd.Flags().IntVar(&views, "views", 0, "new view count")
	return cmd
}

func newArchiveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "archive <slug>",
		Aliases: []string{"delete"},
		Short:   "Move a story to the archive",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := ctx.services(cmd.Context())
			if err != nil {
				return err
			}
			archived, err := services.Story.Archive(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Archived %s as %s\n", archived.Slug, archived.ArchiveID)
			return nil
		},
	}
}
