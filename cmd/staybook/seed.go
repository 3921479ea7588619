package main

import (
	"context"
	"fmt"

	"github.com/MarcoPoloResearchLab/staybook/internal/seed"
	"github.com/spf13/cobra"
)

func newSeedCommand() *cobra.Command {
	var fixturePath string
	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Publish fixture listings, one token per host",
		Long: "Reads a YAML fixture and publishes each place as its owner. Requires the signing " +
			"secret so that a token can be minted for every owner named in the fixture.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fixture, err := seed.LoadFile(fixturePath)
			if err != nil {
				return err
			}

			appConfig, logger, err := loadClientConfig()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			if err := appConfig.ValidateServer(); err != nil {
				return err
			}
			issuer, err := newTokenIssuer(appConfig)
			if err != nil {
				return err
			}

			seeder, err := seed.NewSeeder(func(ctx context.Context, ownerID string) (seed.PlaceAdder, error) {
				token, _, err := issuer.IssueToken(ctx, ownerID)
				if err != nil {
					return nil, err
				}
				session, err := newClientSession(ctx, appConfig, token, logger)
				if err != nil {
					return nil, err
				}
				return session.places, nil
			}, logger)
			if err != nil {
				return err
			}

			result, err := seeder.Apply(cmd.Context(), fixture)
			if err != nil {
				return err
			}
			if err := printPlaces(cmd.OutOrStdout(), result.Created); err != nil {
				return err
			}
			if len(result.Skipped) > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "skipped %d invalid place(s)\n", len(result.Skipped))
			}
			return nil
		},
	}
	seedCmd.Flags().StringVar(&fixturePath, "file", "fixtures/places.yaml", "YAML fixture path")
	return seedCmd
}
