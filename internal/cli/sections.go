package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/docgen-client/internal/documents/domain"
)

func newSectionsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sections",
		Short: "Section commands",
	}
	cmd.AddCommand(newSectionsShowCmd(app))
	cmd.AddCommand(newSectionsUpdateCmd(app))
	return cmd
}

func newSectionsShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <section-id>",
		Short: "Show one section",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("section", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			sec, err := app.env.Client.GetSection(cmd.Context(), id)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, sec)
		},
	}
}

func newSectionsUpdateCmd(app *App) *cobra.Command {
	var (
		projectID   int64
		title       string
		content     string
		contentFile string
		order       int
	)

	cmd := &cobra.Command{
		Use:   "update <section-id>",
		Short: "Update a section's title, content or order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("section", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}

			var patch domain.SectionPatch
			if cmd.Flags().Changed("title") {
				patch.Title = &title
			}
			switch {
			case cmd.Flags().Changed("content") && contentFile != "":
				return writeErr(cmd, domain.NewValidationError("content", "--content and --content-file are exclusive"))
			case cmd.Flags().Changed("content"):
				patch.Content = &content
			case contentFile != "":
				data, err := os.ReadFile(contentFile)
				if err != nil {
					return writeErr(cmd, err)
				}
				s := string(data)
				patch.Content = &s
			}
			if cmd.Flags().Changed("order") {
				patch.Order = &order
			}

			if projectID > 0 {
				if _, err := app.env.Repo.FetchProject(cmd.Context(), projectID); err != nil {
					return writeErr(cmd, err)
				}
			}

			sec, err := app.env.Editor.UpdateSection(cmd.Context(), id, patch)
			if err != nil {
				if app.env.Editor.IsDirty(id) {
					progressf(cmd, app, "section %d was not saved; your text is still in the editor buffer", id)
				}
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, sec)
		},
	}

	cmd.Flags().Int64Var(&projectID, "project", 0, "Owning project, loaded so the local copy is updated")
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&content, "content", "", "New content")
	cmd.Flags().StringVar(&contentFile, "content-file", "", "Read new content from a file")
	cmd.Flags().IntVar(&order, "order", 0, "New position")
	return cmd
}
