package cmd

import (
	"context"

	itemsrender "github.com/bnema/short5-cli/internal/adapters/render/items"
	"github.com/bnema/short5-cli/internal/application"
	"github.com/spf13/cobra"
)

func newFeedCmd(c *cli) *cobra.Command {
	var cursor string

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Show one page of the video feed",
		Args:  cobra.NoArgs,
		RunE: c.withApp(func(cmd *cobra.Command, _ []string, app *app) error {
			page, err := app.feed.Feed(cmd.Context(), cursor)
			if err != nil {
				return err
			}

			if c.opts.asJSON {
				return writeJSON(cmd, page)
			}

			rendered, err := app.renderItems(page.Items, itemsrender.ListOptions{
				Title:   "Feed",
				HasMore: page.HasMore,
				Next:    page.NextCursor,
				Now:     app.now(),
			})
			return writeRendered(cmd, rendered, err)
		}),
	}

	cmd.Flags().StringVar(&cursor, "cursor", "", "Cursor returned by the previous page")

	return cmd
}

func newLikedCmd(c *cli) *cobra.Command {
	var pageToken string

	cmd := &cobra.Command{
		Use:   "liked",
		Short: "Show liked videos, from the server or from local votes when logged out",
		Args:  cobra.NoArgs,
		RunE: c.withApp(func(cmd *cobra.Command, _ []string, app *app) error {
			var page application.LikedPage
			err := runWithSpinner(cmd.Context(), cmd.ErrOrStderr(), "Loading liked videos...", c.opts.asJSON, func(ctx context.Context) error {
				var listErr error
				page, listErr = app.feed.Liked(ctx, pageToken)
				return listErr
			})
			if err != nil {
				return err
			}

			if c.opts.asJSON {
				return writeJSON(cmd, page)
			}

			title := "Liked"
			if !app.session.IsAuthenticated() {
				title = "Liked (this device)"
			}

			rendered, err := app.renderItems(page.Items, itemsrender.ListOptions{
				Title:   title,
				HasMore: page.HasMore,
				Next:    page.NextPageToken,
				Now:     app.now(),
			})
			return writeRendered(cmd, rendered, err)
		}),
	}

	cmd.Flags().StringVar(&pageToken, "page", "", "Page token returned by the previous page")

	return cmd
}
