package cmd

import (
	"fmt"
	"strings"

	"github.com/bnema/short5-cli/internal/config"
	"github.com/bnema/short5-cli/internal/domain"
	"github.com/spf13/cobra"
)

func newProfileCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage profiles, each with its own session and queued votes",
	}

	cmd.AddCommand(
		newProfileAddCmd(c),
		newProfileListCmd(c),
		newProfileUseCmd(c),
	)

	return cmd
}

func newProfileAddCmd(c *cli) *cobra.Command {
	var apiBaseURL, storeBackend string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create or update a profile",
		Args:  cobra.ExactArgs(1),
		RunE: c.withBase(func(cmd *cobra.Command, args []string, b *base) error {
			storeBackend = strings.ToLower(strings.TrimSpace(storeBackend))
			if storeBackend != "" && !config.ValidStoreBackend(storeBackend) {
				return fmt.Errorf("unsupported store backend %q", storeBackend)
			}

			profile := domain.Profile{
				Name:         strings.TrimSpace(args[0]),
				APIBaseURL:   strings.TrimSpace(apiBaseURL),
				StoreBackend: storeBackend,
				CreatedAt:    b.now().UTC(),
			}
			if existing, err := b.profiles.GetByName(cmd.Context(), profile.Name); err == nil && !existing.CreatedAt.IsZero() {
				profile.CreatedAt = existing.CreatedAt
			}

			if err := b.profiles.Save(cmd.Context(), profile); err != nil {
				return err
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "saved profile %s\n", profile.Name)
			return err
		}),
	}

	cmd.Flags().StringVar(&apiBaseURL, "api-base-url", "", "API base URL for this profile (default: config api.base_url)")
	cmd.Flags().StringVar(&storeBackend, "store-backend", "", "Store backend for this profile (default: config store.backend)")

	return cmd
}

type profileOutput struct {
	domain.Profile
	Active bool
}

func newProfileListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List profiles",
		Args:    cobra.NoArgs,
		RunE: c.withBase(func(cmd *cobra.Command, _ []string, b *base) error {
			profiles, err := b.profiles.List(cmd.Context())
			if err != nil {
				return err
			}
			active, err := b.profiles.Active(cmd.Context())
			if err != nil {
				return err
			}

			if c.opts.asJSON {
				out := make([]profileOutput, 0, len(profiles))
				for _, profile := range profiles {
					out = append(out, profileOutput{Profile: profile, Active: profile.Name == active})
				}
				return writeJSON(cmd, out)
			}

			for _, profile := range profiles {
				marker := " "
				if profile.Name == active {
					marker = "*"
				}
				baseURL := profile.APIBaseURL
				if baseURL == "" {
					baseURL = b.config.API.BaseURL
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\t%s\n", marker, profile.Name, baseURL)
			}

			return nil
		}),
	}
}

func newProfileUseCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "use <name>",
		Short: "Make a profile the active one",
		Args:  cobra.ExactArgs(1),
		RunE: c.withBase(func(cmd *cobra.Command, args []string, b *base) error {
			if err := b.profiles.SetActive(cmd.Context(), args[0]); err != nil {
				return err
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "active profile: %s\n", args[0])
			return err
		}),
	}
}
