package cli

import (
	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/docgen-client/internal/documents/domain"
)

func newExportCmd(app *App) *cobra.Command {
	var (
		outDir string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "export <project-id>",
		Short: "Export a project to its document format",
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
			if !force && !app.env.Exporter.CanExport(p) {
				return writeErr(cmd, domain.NewValidationError("sections", "nothing generated yet; run `docgen generate` first or pass --force"))
			}

			art, err := app.env.Exporter.ExportProject(cmd.Context(), p)
			if err != nil {
				return writeErr(cmd, err)
			}
			path, err := app.env.Exporter.Save(outDir, art)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"path":         path,
				"content_type": art.ContentType,
				"bytes":        len(art.Data),
			})
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Output directory")
	cmd.Flags().BoolVar(&force, "force", false, "Export even if no section has content")
	return cmd
}
