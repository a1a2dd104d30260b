package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/bnema/short5-cli/internal/application"
	"github.com/bnema/short5-cli/internal/domain"
	"github.com/spf13/cobra"
)

func newVoteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "vote <item-id> <like|not_like>",
		Short: "Vote on a video, queueing the vote while logged out",
		Args:  cobra.ExactArgs(2),
		RunE: c.withApp(func(cmd *cobra.Command, args []string, app *app) error {
			direction, err := domain.ParseDirection(args[1])
			if err != nil {
				return err
			}

			result, err := app.votes.Vote(cmd.Context(), args[0], direction)
			if errors.Is(err, domain.ErrVoteConflict) {
				return fmt.Errorf("already voted on %s: %w", args[0], err)
			}
			if err != nil {
				return err
			}

			if c.opts.asJSON {
				return writeJSON(cmd, result)
			}

			if result.Queued {
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "queued %s on %s, it will sync after login\n", direction, result.Intent.ItemID)
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "voted %s on %s\n", direction, result.Intent.ItemID)
			return err
		}),
	}
}

func newSyncCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Send queued votes to the server",
		Args:  cobra.NoArgs,
		RunE: c.withApp(func(cmd *cobra.Command, _ []string, app *app) error {
			if !app.session.IsAuthenticated() {
				return fmt.Errorf("cannot sync while logged out: %w", domain.ErrAuthExpired)
			}

			var result application.SyncResult
			err := runWithSpinner(cmd.Context(), cmd.ErrOrStderr(), "Syncing queued votes...", c.opts.asJSON, func(ctx context.Context) error {
				var syncErr error
				result, syncErr = app.reconciler.Sync(ctx)
				return syncErr
			})
			if err != nil {
				return err
			}

			if c.opts.asJSON {
				return writeJSON(cmd, result)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "synced %d vote(s), %d still queued\n", result.Synced, result.Failed)
			return err
		}),
	}
}
