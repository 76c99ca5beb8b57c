package cli

import (
	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/docgen-client/internal/documents/domain"
)

func newProjectsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Project commands",
	}
	cmd.AddCommand(newProjectsListCmd(app))
	cmd.AddCommand(newProjectsShowCmd(app))
	cmd.AddCommand(newProjectsCreateCmd(app))
	cmd.AddCommand(newProjectsUpdateCmd(app))
	cmd.AddCommand(newProjectsDeleteCmd(app))
	return cmd
}

func newProjectsListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := app.env.Repo.ListProjects(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, list)
		},
	}
}

func newProjectsShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <project-id>",
		Short: "Show a project with its sections",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("project", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			p, err := app.env.Repo.FetchProject(cmd.Context(), id)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, p)
		},
	}
}

func newProjectsCreateCmd(app *App) *cobra.Command {
	var (
		title    string
		kindStr  string
		topic    string
		sections []string
		suggest  int
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project from explicit or suggested sections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := domain.ParseDocumentKind(kindStr)
			if err != nil {
				return writeErr(cmd, err)
			}

			draft := app.env.Workflow.Draft()
			draft.SetTitle(title)
			draft.SetMainTopic(topic)
			if err := draft.SetKind(kind); err != nil {
				return writeErr(cmd, err)
			}
			for _, s := range sections {
				draft.AddSection(s)
			}

			if len(sections) == 0 || cmd.Flags().Changed("suggest") {
				titles, err := app.env.Workflow.SuggestOutline(cmd.Context(), suggest)
				if err != nil {
					return writeErr(cmd, err)
				}
				progressf(cmd, app, "suggested %d %s", len(titles), kind.Info().Sections)
			}

			p, err := app.env.Workflow.SubmitDraft(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, p)
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Project title")
	cmd.Flags().StringVar(&kindStr, "kind", "docx", "Output kind (docx|pptx)")
	cmd.Flags().StringVar(&topic, "topic", "", "Main topic")
	cmd.Flags().StringArrayVar(&sections, "section", nil, "Section title, in order (repeatable)")
	cmd.Flags().IntVar(&suggest, "suggest", 0, "Suggest this many sections instead of --section (0: default)")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("topic")
	return cmd
}

func newProjectsUpdateCmd(app *App) *cobra.Command {
	var title, topic string

	cmd := &cobra.Command{
		Use:   "update <project-id>",
		Short: "Update a project's title or main topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("project", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			var patch domain.ProjectPatch
			if cmd.Flags().Changed("title") {
				patch.Title = &title
			}
			if cmd.Flags().Changed("topic") {
				patch.MainTopic = &topic
			}
			p, err := app.env.Repo.UpdateProject(cmd.Context(), id, patch)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, p)
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&topic, "topic", "", "New main topic")
	return cmd
}

func newProjectsDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <project-id>",
		Short: "Delete a project and its sections",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("project", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := app.env.Repo.DeleteProject(cmd.Context(), id); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"id": id, "deleted": true})
		},
	}
}
