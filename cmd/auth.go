package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bnema/short5-cli/internal/application"
	"github.com/bnema/short5-cli/internal/domain"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type loginOutput struct {
	Profile  string
	Identity domain.Identity
	Synced   int
	Pending  int
	SyncErr  string `json:",omitempty"`
}

func newLoginCmd(c *cli) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and sync votes queued while logged out",
		Args:  cobra.NoArgs,
		RunE: c.withApp(func(cmd *cobra.Command, _ []string, app *app) error {
			secret, err := passwordOrPrompt(cmd, password)
			if err != nil {
				return err
			}

			result, err := app.auth.Login(cmd.Context(), email, secret)
			if err != nil {
				return err
			}

			return writeLoginOutput(cmd, c, app, result)
		}),
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (read from stdin when omitted)")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newRegisterCmd(c *cli) *cobra.Command {
	var username, email, password string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: c.withApp(func(cmd *cobra.Command, _ []string, app *app) error {
			secret, err := passwordOrPrompt(cmd, password)
			if err != nil {
				return err
			}

			result, err := app.auth.Register(cmd.Context(), username, email, secret)
			if err != nil {
				return err
			}

			return writeLoginOutput(cmd, c, app, result)
		}),
	}

	cmd.Flags().StringVar(&username, "username", "", "Public username")
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (read from stdin when omitted)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func writeLoginOutput(cmd *cobra.Command, c *cli, app *app, result application.LoginResult) error {
	out := loginOutput{
		Profile:  app.profile.Name,
		Identity: result.Identity,
		Synced:   result.Sync.Synced,
		Pending:  result.Sync.Failed,
	}
	if result.SyncErr != nil {
		out.SyncErr = result.SyncErr.Error()
	}

	if c.opts.asJSON {
		return writeJSON(cmd, out)
	}

	w := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(w, "logged in as %s (profile %s)\n", displayName(result.Identity), out.Profile)
	if out.Synced > 0 {
		_, _ = fmt.Fprintf(w, "synced %d queued vote(s)\n", out.Synced)
	}
	if out.Pending > 0 {
		_, _ = fmt.Fprintf(w, "%d vote(s) still queued, run `s5 sync` to retry\n", out.Pending)
	}

	return nil
}

func newLogoutCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and forget the local session",
		Args:  cobra.NoArgs,
		RunE: c.withApp(func(cmd *cobra.Command, _ []string, app *app) error {
			if err := app.auth.Logout(cmd.Context()); err != nil {
				return err
			}

			_, err := fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return err
		}),
	}
}

type whoamiOutput struct {
	Profile       string
	Backend       string
	Authenticated bool
	Identity      *domain.Identity `json:",omitempty"`
	Pending       int
}

func newWhoamiCmd(c *cli) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: c.withApp(func(cmd *cobra.Command, _ []string, app *app) error {
			if refresh {
				if _, err := app.auth.RefreshProfile(cmd.Context()); err != nil {
					return err
				}
			}

			who, err := app.auth.Whoami(cmd.Context())
			if err != nil {
				return err
			}

			pending, err := app.queue.ListPending(cmd.Context())
			if err != nil {
				return err
			}

			out := whoamiOutput{
				Profile:       app.profile.Name,
				Backend:       app.backend,
				Authenticated: who.Authenticated,
				Pending:       len(pending),
			}
			if who.Authenticated {
				out.Identity = &who.Identity
			}

			if c.opts.asJSON {
				return writeJSON(cmd, out)
			}

			w := cmd.OutOrStdout()
			if !who.Authenticated {
				_, _ = fmt.Fprintf(w, "not logged in (profile %s)\n", out.Profile)
				_, err := fmt.Fprintf(w, "queued votes: %d\n", out.Pending)
				return err
			}

			rendered, err := app.renderIdentity(who.Identity, who.ExpiresAt, app.now())
			if err := writeRendered(cmd, rendered, err); err != nil {
				return err
			}
			_, err = fmt.Fprintf(w, "profile: %s  store: %s\n", out.Profile, out.Backend)
			return err
		}),
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "Fetch the profile from the server before printing")

	return cmd
}

func displayName(identity domain.Identity) string {
	if identity.Username != "" {
		return identity.Username
	}
	if identity.Email != "" {
		return identity.Email
	}

	return identity.ID
}

// passwordOrPrompt returns flagValue, or reads the password from stdin
// without echo when stdin is a terminal.
func passwordOrPrompt(cmd *cobra.Command, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}

	_, _ = fmt.Fprint(cmd.ErrOrStderr(), "password: ")

	var password string
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		raw, err := term.ReadPassword(int(f.Fd()))
		_, _ = fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		password = string(raw)
	} else {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	if password == "" {
		return "", errors.New("password is required")
	}

	return password, nil
}
