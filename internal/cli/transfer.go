package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/story-cms-api/internal/models"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var format string
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every live story",
		Example: `  storyctl export > stories.ndjson
  storyctl export --format yaml --output stories.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := ctx.services(cmd.Context())
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create output file: %w", err)
				}
				defer f.Close()
				w = f
			}

			count, err := services.Export.Export(cmd.Context(), w, format)
			if err != nil {
				return err
			}
			if output != "" && output != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d stories to %s\n", count, output)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", models.FormatNDJSON, "output format (ndjson, json, yaml)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, stdout when omitted")
	return cmd
}

func newImportCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Import stories from an NDJSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := ctx.services(cmd.Context())
			if err != nil {
				return err
			}

			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open import file: %w", err)
				}
				defer f.Close()
				r = f
			}

			report, err := services.Import.ImportNDJSON(cmd.Context(), r)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, report)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Imported %d of %d records (%d failed) in %dms\n",
				report.Created, report.TotalRecords, report.Failed, report.DurationMs)
			if len(report.Errors) == 0 {
				return nil
			}

			rows := make([][]string, 0, len(report.Errors))
			for _, e := range report.Errors {
				value := ""
				if e.Value != nil {
					value = fmt.Sprintf("%v", e.Value)
				}
				rows = append(rows, []string{strconv.Itoa(e.Line), e.Field, e.Message, value})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Line", "Field", "Message", "Value"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the import report as JSON")
	return cmd
}
