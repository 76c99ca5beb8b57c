package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/GoSim-25-26J-441/docgen-client/config"
	"github.com/GoSim-25-26J-441/docgen-client/internal/bootstrap"
	"github.com/GoSim-25-26J-441/docgen-client/internal/documents/domain"
	"github.com/GoSim-25-26J-441/docgen-client/internal/documents/service"
)

type App struct {
	APIURL     string
	Token      string
	PrettyJSON bool
	Quiet      bool
	Verbose    bool

	env *bootstrap.App
}

// Root is the docgen command tree.
type Root struct {
	*cobra.Command
	app *App
}

func NewRootCmd() *Root {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "docgen",
		Short:        "Generate, refine and export multi-section documents",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Suggest an outline and create a project from it
  docgen projects create --title "Q4 Report" --kind docx --topic "Quarterly results" --suggest 5

  # Generate every section, then refine one
  docgen generate 12
  docgen refine 42 --project 12 --prompt "make it shorter"

  # Export to the current directory
  docgen export 12 --out .
`),
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return writeErr(cmd, err)
		}
		if app.APIURL != "" {
			cfg.Service.APIURL = app.APIURL
		}
		if app.Token != "" {
			cfg.Service.Token = app.Token
		}
		verbosity := cfg.App.Verbosity()
		if app.Verbose && verbosity < 2 {
			verbosity = 2
		}
		bootstrap.SetupLogging(verbosity)

		env, err := bootstrap.NewApp(cmd.Context(), cfg, bootstrap.AppOptions{})
		if err != nil {
			return writeErr(cmd, err)
		}
		app.env = env
		return nil
	}

	cmd.PersistentFlags().StringVar(&app.APIURL, "api-url", envOr("DOCGEN_API_URL", ""), "Generation service base URL")
	cmd.PersistentFlags().StringVar(&app.Token, "token", "", "Bearer token (default: DOCGEN_TOKEN)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().BoolVarP(&app.Quiet, "quiet", "q", false, "Do not print progress to stderr")
	cmd.PersistentFlags().BoolVarP(&app.Verbose, "verbose", "v", false, "Print service call metrics to stderr when done")

	cmd.AddCommand(newProjectsCmd(app))
	cmd.AddCommand(newOutlineCmd(app))
	cmd.AddCommand(newGenerateCmd(app))
	cmd.AddCommand(newRefineCmd(app))
	cmd.AddCommand(newRefinementsCmd(app))
	cmd.AddCommand(newSectionsCmd(app))
	cmd.AddCommand(newExportCmd(app))
	cmd.AddCommand(newWatchCmd(app))

	return &Root{Command: cmd, app: app}
}

// Execute runs the command line and then releases the environment. cobra
// skips post-run hooks when a command fails, so cleanup happens here.
func (r *Root) Execute() error {
	err := r.Command.Execute()
	if cerr := r.app.shutdown(r.Command); err == nil {
		err = cerr
	}
	return err
}

func (a *App) shutdown(cmd *cobra.Command) error {
	defer klog.Flush()
	if a.env == nil {
		return nil
	}

	m := service.GetMetrics()
	klog.V(2).InfoS("service calls",
		"upstream", m.UpstreamCalls,
		"errors", m.UpstreamErrors,
		"avg_latency_ms", m.AverageUpstreamLatency(),
		"generate", m.GenerateCalls,
		"refine", m.RefineCalls,
		"export", m.ExportCalls,
		"section_saves", m.SectionSaves)
	if a.Verbose {
		_ = json.NewEncoder(cmd.ErrOrStderr()).Encode(map[string]any{
			"metrics":              m,
			"avg_upstream_latency": m.AverageUpstreamLatency(),
			"upstream_error_rate":  m.UpstreamErrorRate(),
		})
	}

	err := a.env.Close()
	a.env = nil
	return err
}

// ExitCode maps an error onto the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case domain.IsValidation(err):
		return 2
	case errors.Is(err, domain.ErrAuth):
		return 3
	case errors.Is(err, domain.ErrNotFound):
		return 4
	case errors.Is(err, domain.ErrBusy):
		return 5
	}
	return 1
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func parseID(kind, s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError(kind, fmt.Sprintf("invalid id %q", s))
	}
	return id, nil
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	if app.PrettyJSON {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(map[string]any{"data": v})
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}

// progressf writes a human progress line to stderr unless --quiet.
func progressf(cmd *cobra.Command, app *App, format string, args ...any) {
	if app.Quiet {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), format+"\n", args...)
}
