package bookings

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidDocument indicates a wire document that cannot be decoded into a Booking.
var ErrInvalidDocument = errors.New("bookings: invalid document")

// Booking is a reservation of a place by a guest.
type Booking struct {
	ID          string
	PlaceID     string
	UserID      string
	PlaceTitle  string
	PlaceImage  string
	FirstName   string
	LastName    string
	GuestNumber int
	BookedFrom  time.Time
	BookedTo    time.Time
}

// ResourceID returns the booking identifier.
func (b Booking) ResourceID() string {
	return b.ID
}

// WithResourceID returns a copy of the booking carrying id.
func (b Booking) WithResourceID(id string) Booking {
	b.ID = id
	return b
}

type bookingDocument struct {
	PlaceID     string `json:"placeId"`
	UserID      string `json:"userId"`
	PlaceTitle  string `json:"placeTitle"`
	PlaceImage  string `json:"placeImage"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	GuestNumber int    `json:"guestNumber"`
	BookedFrom  string `json:"bookedFrom"`
	BookedTo    string `json:"bookedTo"`
}

// Codec translates bookings to and from store documents.
type Codec struct{}

// Encode renders a Booking without its identifier.
func (Codec) Encode(booking Booking) (json.RawMessage, error) {
	return json.Marshal(bookingDocument{
		PlaceID:     booking.PlaceID,
		UserID:      booking.UserID,
		PlaceTitle:  booking.PlaceTitle,
		PlaceImage:  booking.PlaceImage,
		FirstName:   booking.FirstName,
		LastName:    booking.LastName,
		GuestNumber: booking.GuestNumber,
		BookedFrom:  booking.BookedFrom.UTC().Format(time.RFC3339Nano),
		BookedTo:    booking.BookedTo.UTC().Format(time.RFC3339Nano),
	})
}

// Decode parses a store document stored under id.
func (Codec) Decode(id string, document json.RawMessage) (Booking, error) {
	var decoded bookingDocument
	if err := json.Unmarshal(document, &decoded); err != nil {
		return Booking{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if strings.TrimSpace(decoded.PlaceID) == "" || strings.TrimSpace(decoded.UserID) == "" {
		return Booking{}, fmt.Errorf("%w: place and user are required", ErrInvalidDocument)
	}
	bookedFrom, err := time.Parse(time.RFC3339Nano, decoded.BookedFrom)
	if err != nil {
		return Booking{}, fmt.Errorf("%w: bookedFrom: %v", ErrInvalidDocument, err)
	}
	bookedTo, err := time.Parse(time.RFC3339Nano, decoded.BookedTo)
	if err != nil {
		return Booking{}, fmt.Errorf("%w: bookedTo: %v", ErrInvalidDocument, err)
	}
	return Booking{
		ID:          id,
		PlaceID:     decoded.PlaceID,
		UserID:      decoded.UserID,
		PlaceTitle:  decoded.PlaceTitle,
		PlaceImage:  decoded.PlaceImage,
		FirstName:   decoded.FirstName,
		LastName:    decoded.LastName,
		GuestNumber: decoded.GuestNumber,
		BookedFrom:  bookedFrom.UTC(),
		BookedTo:    bookedTo.UTC(),
	}, nil
}

// ownerOf extracts the userId field without decoding the rest of the document.
func ownerOf(document json.RawMessage) (string, bool) {
	var owner struct {
		UserID string `json:"userId"`
	}
	if err := json.Unmarshal(document, &owner); err != nil {
		return "", false
	}
	return owner.UserID, true
}
