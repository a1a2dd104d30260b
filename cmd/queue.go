package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newQueueCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect votes waiting to be synced",
	}

	cmd.AddCommand(newQueueListCmd(c), newQueueClearCmd(c))

	return cmd
}

func newQueueListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List queued votes in submission order",
		Args:    cobra.NoArgs,
		RunE: c.withApp(func(cmd *cobra.Command, _ []string, app *app) error {
			pending, err := app.queue.ListPending(cmd.Context())
			if err != nil {
				return err
			}

			if c.opts.asJSON {
				return writeJSON(cmd, pending)
			}

			rendered, err := app.renderQueue(pending, app.now())
			return writeRendered(cmd, rendered, err)
		}),
	}
}

func newQueueClearCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Drop every queued vote without sending it",
		Args:  cobra.NoArgs,
		RunE: c.withApp(func(cmd *cobra.Command, _ []string, app *app) error {
			pending, err := app.queue.ListPending(cmd.Context())
			if err != nil {
				return err
			}
			if err := app.queue.Clear(cmd.Context()); err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "dropped %d queued vote(s)\n", len(pending))
			return err
		}),
	}
}
