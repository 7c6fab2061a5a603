// Command gentoken prints a signed bearer token for local testing, using the
// same JWT_* configuration as the API.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/imrishuroy/go-idempotent-eventflow/internal/auth"
	"github.com/imrishuroy/go-idempotent-eventflow/internal/config"
)

type options struct {
	Subject string
	Role    string
	JSON    bool
}

func newRootCommand(load func() (config.Config, error)) *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "gentoken",
		Short:         "Print a signed token for a subject and role",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return run(cmd, cfg, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.Subject, "subject", "s", "", "token subject (username)")
	cmd.Flags().StringVarP(&opts.Role, "role", "r", string(auth.RoleStudent), "role: ADMIN, INSTRUCTOR or STUDENT")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "print the login response shape instead of the bare token")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func run(cmd *cobra.Command, cfg config.Config, opts *options) error {
	role, ok := auth.ParseRole(opts.Role)
	if !ok {
		return fmt.Errorf("unknown role %q", opts.Role)
	}
	issued, err := auth.NewTokenService(cfg.Auth.Secret, cfg.Auth.TTL, cfg.Auth.Issuer).Issue(opts.Subject, string(role))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !opts.JSON {
		_, err = fmt.Fprintln(out, issued.Token)
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"token":        issued.Token,
		"expiresInSec": issued.ExpiresIn,
		"username":     opts.Subject,
		"role":         string(role),
	})
}

func main() {
	if err := newRootCommand(config.Load).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "gentoken:", err)
		os.Exit(1)
	}
}
