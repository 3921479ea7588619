package bookings

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/staybook/internal/validation"
)

// ErrInvalidBooking wraps validation failures of booking drafts.
var ErrInvalidBooking = errors.New("bookings: invalid booking")

// BookingDraft is what a guest submits when reserving a place.
type BookingDraft struct {
	PlaceID     string    `validate:"required"`
	PlaceTitle  string    `validate:"required"`
	PlaceImage  string    `validate:"omitempty,url"`
	FirstName   string    `validate:"required"`
	LastName    string    `validate:"required"`
	GuestNumber int       `validate:"gte=1"`
	BookedFrom  time.Time `validate:"required"`
	BookedTo    time.Time `validate:"required,gtfield=BookedFrom"`
}

func (d BookingDraft) normalized() BookingDraft {
	d.PlaceID = strings.TrimSpace(d.PlaceID)
	d.PlaceTitle = strings.TrimSpace(d.PlaceTitle)
	d.PlaceImage = strings.TrimSpace(d.PlaceImage)
	d.FirstName = strings.TrimSpace(d.FirstName)
	d.LastName = strings.TrimSpace(d.LastName)
	d.BookedFrom = d.BookedFrom.UTC()
	d.BookedTo = d.BookedTo.UTC()
	return d
}

// Validate checks the draft against the booking form rules.
func (d BookingDraft) Validate() error {
	if err := validation.Struct(d.normalized()); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidBooking, err)
	}
	return nil
}

func (d BookingDraft) booking(id, userID string) Booking {
	normalized := d.normalized()
	return Booking{
		ID:          id,
		PlaceID:     normalized.PlaceID,
		UserID:      userID,
		PlaceTitle:  normalized.PlaceTitle,
		PlaceImage:  normalized.PlaceImage,
		FirstName:   normalized.FirstName,
		LastName:    normalized.LastName,
		GuestNumber: normalized.GuestNumber,
		BookedFrom:  normalized.BookedFrom,
		BookedTo:    normalized.BookedTo,
	}
}
