package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bnema/short5-cli/internal/domain"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	profile    string
	configFile string
	ephemeral  bool
	asJSON     bool
}

// cli wires lazily, after cobra has parsed the persistent flags.
type cli struct {
	opts       rootOptions
	httpClient *http.Client
	base       *base
	app        *app
	closers    []func() error
}

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd, closeApp := newRootCmd()
	defer func() { _ = closeApp() }()

	return rootCmd.ExecuteContext(ctx)
}

func newRootCmd() (*cobra.Command, func() error) {
	return newCLI(http.DefaultClient).rootCmd()
}

func newCLI(httpClient *http.Client) *cli {
	return &cli{httpClient: httpClient}
}

func (c *cli) rootCmd() (*cobra.Command, func() error) {
	rootCmd := &cobra.Command{
		Use:           "s5",
		Short:         "short5 CLI (s5): browse, vote on and share short videos",
		Long:          "s5 talks to a short5 server from the terminal. Votes cast while logged out are queued locally and synced after login.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&c.opts.profile, "profile", "", "Profile to use (default: the active profile)")
	flags.StringVar(&c.opts.configFile, "config", "", "Config file (default: $XDG_CONFIG_HOME/s5/config.toml)")
	flags.BoolVar(&c.opts.ephemeral, "ephemeral", false, "Keep session and queued votes in memory only")
	flags.BoolVar(&c.opts.asJSON, "json", false, "Render JSON output")

	rootCmd.AddCommand(
		newVersionCmd(),
		newLoginCmd(c),
		newRegisterCmd(c),
		newLogoutCmd(c),
		newWhoamiCmd(c),
		newVoteCmd(c),
		newSyncCmd(c),
		newFeedCmd(c),
		newLikedCmd(c),
		newQueueCmd(c),
		newShareCmd(c),
		newResetCmd(c),
		newProfileCmd(c),
	)

	return rootCmd, c.close
}

type appRunFunc func(cmd *cobra.Command, args []string, app *app) error

type baseRunFunc func(cmd *cobra.Command, args []string, b *base) error

// withApp adapts a command body that needs the full session stack.
func (c *cli) withApp(run appRunFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if c.app == nil {
			b, err := c.loadBase(cmd)
			if err != nil {
				return err
			}

			wired, closeStore, err := wireApp(cmd.Context(), b, &c.opts, c.httpClient)
			if err != nil {
				return err
			}
			c.app = wired
			c.closers = append(c.closers, closeStore)
		}

		return explain(run(cmd, args, c.app))
	}
}

// withBase adapts a command body that only needs config and profiles.
func (c *cli) withBase(run baseRunFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		b, err := c.loadBase(cmd)
		if err != nil {
			return err
		}

		return explain(run(cmd, args, b))
	}
}

func (c *cli) loadBase(cmd *cobra.Command) (*base, error) {
	if c.base != nil {
		return c.base, nil
	}

	b, err := wireBase(&c.opts, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	c.base = b
	return b, nil
}

func (c *cli) close() error {
	var errs []error
	if c.base != nil {
		_ = c.base.logger.Sync()
	}
	for _, closeFn := range c.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil

	return errors.Join(errs...)
}

// explain turns the errors a user can act on into instructions.
func explain(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrAuthExpired):
		return fmt.Errorf("session expired, run `s5 login`: %w", err)
	case errors.Is(err, domain.ErrNetwork):
		return fmt.Errorf("server unreachable, try again later: %w", err)
	default:
		return err
	}
}
