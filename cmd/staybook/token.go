package main

import (
	"fmt"
	"strings"

	"github.com/MarcoPoloResearchLab/staybook/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newTokenCommand() *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Manage document store bearer tokens",
	}

	var userID string
	issueCmd := &cobra.Command{
		Use:   "issue",
		Short: "Mint a bearer token for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(userID) == "" {
				return fmt.Errorf("--user is required")
			}
			appConfig, err := config.Load(viper.GetViper())
			if err != nil {
				return err
			}
			if err := appConfig.ValidateServer(); err != nil {
				return err
			}
			issuer, err := newTokenIssuer(appConfig)
			if err != nil {
				return err
			}
			token, expiresIn, err := issuer.IssueToken(cmd.Context(), userID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires in %ds\n", expiresIn)
			return nil
		},
	}
	issueCmd.Flags().StringVar(&userID, "user", "", "User identifier placed in the token subject")

	tokenCmd.AddCommand(issueCmd)
	return tokenCmd
}
