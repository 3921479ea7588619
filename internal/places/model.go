package places

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultImageURL is used when an offer is created without an image.
const DefaultImageURL = "https://imgs.6sqft.com/wp-content/uploads/2014/06/21042534/Felix_Warburg_Mansion_007.jpg"

// ErrInvalidDocument indicates a wire document that cannot be decoded into a Place.
var ErrInvalidDocument = errors.New("places: invalid document")

// Place is a rental listing. Values are never modified once published; edits produce a new Place.
type Place struct {
	ID            string
	Title         string
	Description   string
	ImageURL      string
	Price         float64
	AvailableFrom time.Time
	AvailableTo   time.Time
	UserID        string
}

// ResourceID returns the listing identifier.
func (p Place) ResourceID() string {
	return p.ID
}

// WithResourceID returns a copy of the listing carrying id.
func (p Place) WithResourceID(id string) Place {
	p.ID = id
	return p
}

type placeDocument struct {
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	ImageURL      string  `json:"imageUrl"`
	Price         float64 `json:"price"`
	AvailableFrom string  `json:"availableFrom"`
	AvailableTo   string  `json:"availableTo"`
	UserID        string  `json:"userId"`
}

// Codec translates places to and from store documents.
type Codec struct{}

// Encode renders a Place as a store document. The identifier is the document key and is not included.
func (Codec) Encode(place Place) (json.RawMessage, error) {
	return json.Marshal(placeDocument{
		Title:         place.Title,
		Description:   place.Description,
		ImageURL:      place.ImageURL,
		Price:         place.Price,
		AvailableFrom: place.AvailableFrom.UTC().Format(time.RFC3339Nano),
		AvailableTo:   place.AvailableTo.UTC().Format(time.RFC3339Nano),
		UserID:        place.UserID,
	})
}

// Decode parses a store document stored under id.
func (Codec) Decode(id string, document json.RawMessage) (Place, error) {
	var decoded placeDocument
	if err := json.Unmarshal(document, &decoded); err != nil {
		return Place{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if strings.TrimSpace(decoded.Title) == "" {
		return Place{}, fmt.Errorf("%w: empty title", ErrInvalidDocument)
	}
	if strings.TrimSpace(decoded.UserID) == "" {
		return Place{}, fmt.Errorf("%w: empty owner", ErrInvalidDocument)
	}
	availableFrom, err := time.Parse(time.RFC3339Nano, decoded.AvailableFrom)
	if err != nil {
		return Place{}, fmt.Errorf("%w: availableFrom: %v", ErrInvalidDocument, err)
	}
	availableTo, err := time.Parse(time.RFC3339Nano, decoded.AvailableTo)
	if err != nil {
		return Place{}, fmt.Errorf("%w: availableTo: %v", ErrInvalidDocument, err)
	}
	return Place{
		ID:            id,
		Title:         decoded.Title,
		Description:   decoded.Description,
		ImageURL:      decoded.ImageURL,
		Price:         decoded.Price,
		AvailableFrom: availableFrom.UTC(),
		AvailableTo:   availableTo.UTC(),
		UserID:        decoded.UserID,
	}, nil
}
