package places

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/staybook/internal/validation"
)

// ErrInvalidOffer wraps validation failures of offer drafts and revisions.
var ErrInvalidOffer = errors.New("places: invalid offer")

// OfferDraft carries the fields a host fills in when publishing a new offer.
type OfferDraft struct {
	Title         string    `validate:"required"`
	Description   string    `validate:"required,max=180"`
	ImageURL      string    `validate:"omitempty,url"`
	Price         float64   `validate:"gte=1"`
	AvailableFrom time.Time `validate:"required"`
	AvailableTo   time.Time `validate:"required,gtefield=AvailableFrom"`
}

// OfferRevision carries the fields a host may change on an existing offer.
type OfferRevision struct {
	Title       string `validate:"required"`
	Description string `validate:"required,max=180"`
}

func (d OfferDraft) normalized() OfferDraft {
	d.Title = strings.TrimSpace(d.Title)
	d.Description = strings.TrimSpace(d.Description)
	d.ImageURL = strings.TrimSpace(d.ImageURL)
	d.AvailableFrom = d.AvailableFrom.UTC()
	d.AvailableTo = d.AvailableTo.UTC()
	return d
}

// Validate checks the draft against the offer form rules.
func (d OfferDraft) Validate() error {
	if err := validation.Struct(d.normalized()); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOffer, err)
	}
	return nil
}

func (d OfferDraft) place(id, ownerID string) Place {
	normalized := d.normalized()
	imageURL := normalized.ImageURL
	if imageURL == "" {
		imageURL = DefaultImageURL
	}
	return Place{
		ID:            id,
		Title:         normalized.Title,
		Description:   normalized.Description,
		ImageURL:      imageURL,
		Price:         normalized.Price,
		AvailableFrom: normalized.AvailableFrom,
		AvailableTo:   normalized.AvailableTo,
		UserID:        ownerID,
	}
}

func (r OfferRevision) normalized() OfferRevision {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	return r
}

// Validate checks the revision against the edit form rules.
func (r OfferRevision) Validate() error {
	if err := validation.Struct(r.normalized()); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOffer, err)
	}
	return nil
}

func (r OfferRevision) apply(current Place) Place {
	normalized := r.normalized()
	current.Title = normalized.Title
	current.Description = normalized.Description
	return current
}
