package main

import (
	"fmt"

	"github.com/MarcoPoloResearchLab/staybook/internal/places"
	"github.com/spf13/cobra"
)

func newPlacesCommand() *cobra.Command {
	placesCmd := &cobra.Command{
		Use:   "places",
		Short: "Browse and manage listings",
	}
	placesCmd.AddCommand(
		newPlacesListCommand(),
		newPlacesShowCommand(),
		newPlacesAddCommand(),
		newPlacesUpdateCommand(),
		newPlacesRemoveCommand(),
	)
	return placesCmd
}

func newPlacesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every listing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := openClientSession(cmd.Context())
			if err != nil {
				return err
			}
			defer session.Close()

			fetched, err := session.places.FetchPlaces(cmd.Context())
			if err != nil {
				return err
			}
			return printPlaceTable(cmd.OutOrStdout(), fetched, session.places.IsBookable)
		},
	}
}

func newPlacesShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := openClientSession(cmd.Context())
			if err != nil {
				return err
			}
			defer session.Close()

			place, err := session.places.GetPlace(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printPlaceDetail(cmd.OutOrStdout(), place, session.places.IsBookable(place))
		},
	}
}

func newPlacesAddCommand() *cobra.Command {
	var (
		draft    places.OfferDraft
		fromDate string
		toDate   string
	)
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Publish a new offer as the current user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if draft.AvailableFrom, err = parseDate("from", fromDate); err != nil {
				return err
			}
			if draft.AvailableTo, err = parseDate("to", toDate); err != nil {
				return err
			}

			session, err := openClientSession(cmd.Context())
			if err != nil {
				return err
			}
			defer session.Close()

			created, err := session.places.AddPlace(cmd.Context(), draft)
			if err != nil {
				return err
			}
			return printPlaces(cmd.OutOrStdout(), []places.Place{created})
		},
	}
	addCmd.Flags().StringVar(&draft.Title, "title", "", "Listing title")
	addCmd.Flags().StringVar(&draft.Description, "description", "", "Short description (max 180 characters)")
	addCmd.Flags().StringVar(&draft.ImageURL, "image", "", "Image URL")
	addCmd.Flags().Float64Var(&draft.Price, "price", 0, "Price per night")
	addCmd.Flags().StringVar(&fromDate, "from", "", "First available date (YYYY-MM-DD)")
	addCmd.Flags().StringVar(&toDate, "to", "", "Last available date (YYYY-MM-DD)")
	return addCmd
}

func newPlacesUpdateCommand() *cobra.Command {
	var revision places.OfferRevision
	updateCmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change the title and description of an offer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := openClientSession(cmd.Context())
			if err != nil {
				return err
			}
			defer session.Close()

			updated, found, err := session.places.UpdatePlace(cmd.Context(), args[0], revision)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("place %s not found", args[0])
			}
			return printPlaces(cmd.OutOrStdout(), []places.Place{updated})
		},
	}
	updateCmd.Flags().StringVar(&revision.Title, "title", "", "New title")
	updateCmd.Flags().StringVar(&revision.Description, "description", "", "New description (max 180 characters)")
	return updateCmd
}

func newPlacesRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Withdraw an offer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := openClientSession(cmd.Context())
			if err != nil {
				return err
			}
			defer session.Close()

			if err := session.places.RemovePlace(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
			return nil
		},
	}
}

func newOffersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "offers",
		Short: "List the current user's own listings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := openClientSession(cmd.Context())
			if err != nil {
				return err
			}
			defer session.Close()

			fetched, err := session.places.FetchPlaces(cmd.Context())
			if err != nil {
				return err
			}
			return printPlaces(cmd.OutOrStdout(), session.places.Offers(fetched))
		},
	}
}
