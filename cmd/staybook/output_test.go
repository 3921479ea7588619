package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/staybook/internal/bookings"
	"github.com/MarcoPoloResearchLab/staybook/internal/places"
)

func TestParseDate(t *testing.T) {
	parsed, err := parseDate("from", "2019-03-01")
	if err != nil || !parsed.Equal(time.Date(2019, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected parse result %s %v", parsed, err)
	}
	if _, err := parseDate("from", "03/01/2019"); err == nil || !strings.Contains(err.Error(), "--from") {
		t.Fatalf("expected flag-named error, got %v", err)
	}
}

func TestPrintPlaceTableIncludesBookableColumn(t *testing.T) {
	var out bytes.Buffer
	listed := []places.Place{
		{ID: "p1", Title: "Manhatten Mansion", Price: 149.99, UserID: "xyz",
			AvailableFrom: time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC), AvailableTo: time.Date(2019, 12, 31, 0, 0, 0, 0, time.UTC)},
		{ID: "p2", Title: "Spanish Villa", Price: 100, UserID: "abc"},
	}
	err := printPlaceTable(&out, listed, func(place places.Place) bool { return place.UserID != "abc" })
	if err != nil {
		t.Fatalf("unexpected print error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and two rows, got %q", out.String())
	}
	if !strings.HasSuffix(lines[0], "BOOKABLE") {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if !strings.Contains(lines[1], "149.99") || !strings.Contains(lines[1], "2019-12-31") || !strings.HasSuffix(lines[1], "true") {
		t.Fatalf("unexpected first row %q", lines[1])
	}
	if !strings.HasSuffix(lines[2], "false") {
		t.Fatalf("unexpected second row %q", lines[2])
	}
}

func TestPrintBookingsJoinsGuestName(t *testing.T) {
	var out bytes.Buffer
	err := printBookings(&out, []bookings.Booking{{ID: "b1", PlaceID: "p1", PlaceTitle: "Loft", FirstName: "Ada", LastName: "Lovelace", GuestNumber: 2}})
	if err != nil {
		t.Fatalf("unexpected print error: %v", err)
	}
	if !strings.Contains(out.String(), "Ada Lovelace") {
		t.Fatalf("expected full guest name, got %q", out.String())
	}
}
