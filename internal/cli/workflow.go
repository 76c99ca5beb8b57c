package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/docgen-client/internal/documents/domain"
)

func newOutlineCmd(app *App) *cobra.Command {
	var (
		topic   string
		kindStr string
		count   int
	)

	cmd := &cobra.Command{
		Use:   "outline",
		Short: "Suggest section titles for a topic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := domain.ParseDocumentKind(kindStr)
			if err != nil {
				return writeErr(cmd, err)
			}
			draft := app.env.Workflow.Draft()
			draft.SetMainTopic(topic)
			if err := draft.SetKind(kind); err != nil {
				return writeErr(cmd, err)
			}
			titles, err := app.env.Workflow.SuggestOutline(cmd.Context(), count)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, titles)
		},
	}

	cmd.Flags().StringVar(&topic, "topic", "", "Main topic")
	cmd.Flags().StringVar(&kindStr, "kind", "docx", "Output kind (docx|pptx)")
	cmd.Flags().IntVar(&count, "count", 0, "Number of sections (0: default)")
	return cmd
}

// reportProgress prints workflow events to stderr for the duration of a
// command.
func reportProgress(cmd *cobra.Command, app *App) func() {
	return app.env.Bus.SubscribeAll(func(ctx context.Context, ev domain.ProgressEvent) error {
		if ev.Error != "" {
			progressf(cmd, app, "%s %d: %s (%s)", ev.Kind, ev.TargetID, ev.Status, ev.Error)
			return nil
		}
		progressf(cmd, app, "%s %d: %s %3.0f%%", ev.Kind, ev.TargetID, ev.Status, ev.Progress)
		return nil
	})
}

func newGenerateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "generate <project-id>",
		Short: "Generate content for every section of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("project", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if _, err := app.env.Repo.FetchProject(cmd.Context(), id); err != nil {
				return writeErr(cmd, err)
			}

			defer reportProgress(cmd, app)()
			if err := app.env.Workflow.GenerateContent(cmd.Context(), id); err != nil {
				var rerr *domain.RefreshError
				if errors.As(err, &rerr) {
					progressf(cmd, app, "content was generated but could not be reloaded; run `docgen projects show %d`", id)
				}
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, app.env.Repo.Active())
		},
	}
}

func newRefineCmd(app *App) *cobra.Command {
	var (
		projectID int64
		prompt    string
	)

	cmd := &cobra.Command{
		Use:   "refine <section-id>",
		Short: "Rewrite one section following an instruction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sectionID, err := parseID("section", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if projectID > 0 {
				if _, err := app.env.Repo.FetchProject(cmd.Context(), projectID); err != nil {
					return writeErr(cmd, err)
				}
			}

			defer reportProgress(cmd, app)()
			ref, err := app.env.Workflow.RefineSection(cmd.Context(), sectionID, prompt)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, ref)
		},
	}

	cmd.Flags().Int64Var(&projectID, "project", 0, "Owning project, reloaded after the refinement")
	cmd.Flags().StringVar(&prompt, "prompt", "", "Refinement instruction")
	_ = cmd.MarkFlagRequired("prompt")
	return cmd
}

func newRefinementsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refinements",
		Short: "Refinement history and feedback",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list <section-id>",
		Short: "List a section's refinements, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sectionID, err := parseID("section", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			list, err := app.env.Client.ListRefinements(cmd.Context(), sectionID)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, list)
		},
	})
	cmd.AddCommand(newRefinementsFeedbackCmd(app))
	return cmd
}

func newRefinementsFeedbackCmd(app *App) *cobra.Command {
	var (
		like, dislike bool
		comment       string
	)

	cmd := &cobra.Command{
		Use:   "feedback <refinement-id>",
		Short: "Rate a refinement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("refinement", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			var fb domain.RefinementFeedback
			switch {
			case like && dislike:
				return writeErr(cmd, domain.NewValidationError("liked", "--like and --dislike are exclusive"))
			case like:
				fb.Liked = domain.Ptr(true)
			case dislike:
				fb.Liked = domain.Ptr(false)
			}
			if cmd.Flags().Changed("comment") {
				fb.Comment = &comment
			}
			if fb.Liked == nil && fb.Comment == nil {
				return writeErr(cmd, domain.NewValidationError("", "give --like, --dislike or --comment"))
			}
			ref, err := app.env.Client.SubmitFeedback(cmd.Context(), id, fb)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, ref)
		},
	}

	cmd.Flags().BoolVar(&like, "like", false, "Mark as helpful")
	cmd.Flags().BoolVar(&dislike, "dislike", false, "Mark as unhelpful")
	cmd.Flags().StringVar(&comment, "comment", "", "Free-text comment")
	return cmd
}
