package cli

import (
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newWatchCmd(app *App) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "watch <project-id>",
		Short: "Follow progress events of a project (requires REDIS_URL)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("project", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if app.env.Progress == nil {
				return writeErr(cmd, errors.New("watch needs REDIS_URL to be set"))
			}

			latest, err := app.env.Progress.Latest(cmd.Context(), id)
			if err != nil {
				return writeErr(cmd, err)
			}
			if once {
				return writeOut(cmd, app, latest)
			}
			for _, ev := range latest {
				if err := writeOut(cmd, app, ev); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			stream, err := app.env.Progress.Subscribe(ctx, id)
			if err != nil {
				return writeErr(cmd, err)
			}
			for ev := range stream {
				if err := writeOut(cmd, app, ev); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "Print the latest state of each operation and exit")
	return cmd
}
