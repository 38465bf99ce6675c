package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"WebStore/internal/auth"
)

func newTokenCmd(g *globals) *cobra.Command {
	var (
		subject string
		role    string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token signed with the configured JWT secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if g.cfg.Auth.JWTSecret == "" {
				return errors.New("no jwt secret configured")
			}
			if err := g.cfg.Validate(); err != nil {
				return err
			}

			tok, err := auth.NewTokenMaker(g.cfg.Auth.JWTSecret).New(subject, role, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "operator", "token subject")
	cmd.Flags().StringVar(&role, "role", auth.RoleEditor, "token role")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime")
	return cmd
}
