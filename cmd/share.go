package cmd

import (
	"fmt"
	"strings"

	"github.com/bnema/short5-cli/internal/application"
	"github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"
)

func newShareCmd(c *cli) *cobra.Command {
	var showQR bool

	cmd := &cobra.Command{
		Use:   "share <item-id>",
		Short: "Print a share link for a video",
		Args:  cobra.ExactArgs(1),
		RunE: c.withApp(func(cmd *cobra.Command, args []string, app *app) error {
			result, err := app.share.Share(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if c.opts.asJSON {
				return writeJSON(cmd, result)
			}

			if _, err := fmt.Fprintln(cmd.OutOrStdout(), result.URL); err != nil {
				return err
			}
			if !showQR {
				return nil
			}

			code, err := qrcode.New(result.URL, qrcode.Medium)
			if err != nil {
				return fmt.Errorf("encode qr code: %w", err)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), halfBlockQR(code.Bitmap()))
			return err
		}),
	}

	cmd.Flags().BoolVar(&showQR, "qr", false, "Also print the link as a QR code")

	return cmd
}

// halfBlockQR packs two bitmap rows into each text line so the code stays
// roughly square in a terminal. Set modules print dark.
func halfBlockQR(bitmap [][]bool) string {
	var b strings.Builder
	for y := 0; y < len(bitmap); y += 2 {
		for x := range bitmap[y] {
			top := bitmap[y][x]
			bottom := y+1 < len(bitmap) && bitmap[y+1][x]
			switch {
			case top && bottom:
				b.WriteRune(' ')
			case top:
				b.WriteRune('▄')
			case bottom:
				b.WriteRune('▀')
			default:
				b.WriteRune('█')
			}
		}
		b.WriteByte('\n')
	}

	return b.String()
}

func newResetCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Forget queued votes and the anonymous visitor id",
		Args:  cobra.NoArgs,
		RunE: c.withApp(func(cmd *cobra.Command, _ []string, app *app) error {
			if err := application.ResetPrivacy(cmd.Context(), app.queue, app.visitor); err != nil {
				return err
			}

			_, err := fmt.Fprintln(cmd.OutOrStdout(), "cleared queued votes and visitor id")
			return err
		}),
	}
}
