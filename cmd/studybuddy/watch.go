package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/NordCoder/studybuddy/internal/client/session"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the shared session until interrupted",
	Long: `Follow the shared session file. Logging out from any other studybuddy
process signs this one out immediately; other changes re-run the session check.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		snap, err := a.cache.Check(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, describe(snap))

		last := snap.State
		err = a.cache.Watch(ctx, func(s session.Snapshot) {
			if s.State != last || s.State == session.LoggedIn {
				fmt.Fprintln(out, describe(s))
			}
			last = s.State
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}
