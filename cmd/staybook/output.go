package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/MarcoPoloResearchLab/staybook/internal/bookings"
	"github.com/MarcoPoloResearchLab/staybook/internal/places"
)

const dateLayout = "2006-01-02"

func parseDate(flag, value string) (time.Time, error) {
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s must be a date formatted as %s", flag, dateLayout)
	}
	return parsed, nil
}

func newTable(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
}

func printPlaces(out io.Writer, listed []places.Place) error {
	return printPlaceTable(out, listed, nil)
}

func printPlaceTable(out io.Writer, listed []places.Place, bookable func(places.Place) bool) error {
	table := newTable(out)
	if bookable == nil {
		fmt.Fprintln(table, "ID\tTITLE\tPRICE\tFROM\tTO\tOWNER")
	} else {
		fmt.Fprintln(table, "ID\tTITLE\tPRICE\tFROM\tTO\tOWNER\tBOOKABLE")
	}
	for _, place := range listed {
		row := fmt.Sprintf("%s\t%s\t%s\t%s\t%s\t%s",
			place.ID,
			place.Title,
			strconv.FormatFloat(place.Price, 'f', 2, 64),
			place.AvailableFrom.Format(dateLayout),
			place.AvailableTo.Format(dateLayout),
			place.UserID)
		if bookable != nil {
			row += "\t" + strconv.FormatBool(bookable(place))
		}
		fmt.Fprintln(table, row)
	}
	return table.Flush()
}

func printPlaceDetail(out io.Writer, place places.Place, bookable bool) error {
	table := newTable(out)
	fmt.Fprintf(table, "ID\t%s\n", place.ID)
	fmt.Fprintf(table, "Title\t%s\n", place.Title)
	fmt.Fprintf(table, "Description\t%s\n", place.Description)
	fmt.Fprintf(table, "Image\t%s\n", place.ImageURL)
	fmt.Fprintf(table, "Price\t%s\n", strconv.FormatFloat(place.Price, 'f', 2, 64))
	fmt.Fprintf(table, "Available\t%s to %s\n", place.AvailableFrom.Format(dateLayout), place.AvailableTo.Format(dateLayout))
	fmt.Fprintf(table, "Owner\t%s\n", place.UserID)
	fmt.Fprintf(table, "Bookable\t%t\n", bookable)
	return table.Flush()
}

func printBookings(out io.Writer, listed []bookings.Booking) error {
	table := newTable(out)
	fmt.Fprintln(table, "ID\tPLACE\tTITLE\tGUEST\tGUESTS\tFROM\tTO")
	for _, booking := range listed {
		fmt.Fprintf(table, "%s\t%s\t%s\t%s %s\t%d\t%s\t%s\n",
			booking.ID,
			booking.PlaceID,
			booking.PlaceTitle,
			booking.FirstName,
			booking.LastName,
			booking.GuestNumber,
			booking.BookedFrom.Format(dateLayout),
			booking.BookedTo.Format(dateLayout))
	}
	return table.Flush()
}
