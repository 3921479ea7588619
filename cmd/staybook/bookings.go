package main

import (
	"fmt"

	"github.com/MarcoPoloResearchLab/staybook/internal/bookings"
	"github.com/spf13/cobra"
)

func newBookingsCommand() *cobra.Command {
	bookingsCmd := &cobra.Command{
		Use:   "bookings",
		Short: "Manage the current user's bookings",
	}
	bookingsCmd.AddCommand(
		newBookingsListCommand(),
		newBookingsAddCommand(),
		newBookingsCancelCommand(),
	)
	return bookingsCmd
}

func newBookingsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your bookings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := openClientSession(cmd.Context())
			if err != nil {
				return err
			}
			defer session.Close()

			fetched, err := session.bookings.FetchBookings(cmd.Context())
			if err != nil {
				return err
			}
			return printBookings(cmd.OutOrStdout(), fetched)
		},
	}
}

func newBookingsAddCommand() *cobra.Command {
	var (
		placeID  string
		draft    bookings.BookingDraft
		fromDate string
		toDate   string
	)
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Book a place",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if draft.BookedFrom, err = parseDate("from", fromDate); err != nil {
				return err
			}
			if draft.BookedTo, err = parseDate("to", toDate); err != nil {
				return err
			}

			session, err := openClientSession(cmd.Context())
			if err != nil {
				return err
			}
			defer session.Close()

			place, err := session.places.GetPlace(cmd.Context(), placeID)
			if err != nil {
				return err
			}
			if !session.places.IsBookable(place) {
				return fmt.Errorf("place %s is your own offer and cannot be booked", place.ID)
			}
			draft.PlaceID = place.ID
			draft.PlaceTitle = place.Title
			draft.PlaceImage = place.ImageURL

			created, err := session.bookings.AddBooking(cmd.Context(), draft)
			if err != nil {
				return err
			}
			return printBookings(cmd.OutOrStdout(), []bookings.Booking{created})
		},
	}
	addCmd.Flags().StringVar(&placeID, "place", "", "Place identifier")
	addCmd.Flags().StringVar(&draft.FirstName, "first-name", "", "Guest first name")
	addCmd.Flags().StringVar(&draft.LastName, "last-name", "", "Guest last name")
	addCmd.Flags().IntVar(&draft.GuestNumber, "guests", 1, "Number of guests")
	addCmd.Flags().StringVar(&fromDate, "from", "", "Arrival date (YYYY-MM-DD)")
	addCmd.Flags().StringVar(&toDate, "to", "", "Departure date (YYYY-MM-DD)")
	return addCmd
}

func newBookingsCancelCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel a booking",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := openClientSession(cmd.Context())
			if err != nil {
				return err
			}
			defer session.Close()

			if err := session.bookings.CancelBooking(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cancelled %s\n", args[0])
			return nil
		},
	}
}
