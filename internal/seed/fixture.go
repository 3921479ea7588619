// Package seed loads listing fixtures from YAML and publishes them through the places store.
package seed

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/staybook/internal/places"
	"gopkg.in/yaml.v3"
)

// ErrEmptyFixture indicates a fixture file without places.
var ErrEmptyFixture = errors.New("seed: fixture contains no places")

// Fixture is the top-level document of a seed file.
type Fixture struct {
	Places []PlaceFixture `yaml:"places"`
}

// PlaceFixture describes one listing and the host that offers it.
type PlaceFixture struct {
	Owner         string    `yaml:"owner"`
	Title         string    `yaml:"title"`
	Description   string    `yaml:"description"`
	ImageURL      string    `yaml:"imageUrl"`
	Price         float64   `yaml:"price"`
	AvailableFrom time.Time `yaml:"availableFrom"`
	AvailableTo   time.Time `yaml:"availableTo"`
}

// Draft converts the fixture into an offer draft.
func (p PlaceFixture) Draft() places.OfferDraft {
	return places.OfferDraft{
		Title:         p.Title,
		Description:   p.Description,
		ImageURL:      p.ImageURL,
		Price:         p.Price,
		AvailableFrom: p.AvailableFrom,
		AvailableTo:   p.AvailableTo,
	}
}

// Decode parses a YAML fixture. Every place must name its owner.
func Decode(reader io.Reader) (Fixture, error) {
	var fixture Fixture
	decoder := yaml.NewDecoder(reader)
	decoder.KnownFields(true)
	if err := decoder.Decode(&fixture); err != nil {
		if errors.Is(err, io.EOF) {
			return Fixture{}, ErrEmptyFixture
		}
		return Fixture{}, fmt.Errorf("seed: decode fixture: %w", err)
	}
	if len(fixture.Places) == 0 {
		return Fixture{}, ErrEmptyFixture
	}
	for index := range fixture.Places {
		fixture.Places[index].Owner = strings.TrimSpace(fixture.Places[index].Owner)
		if fixture.Places[index].Owner == "" {
			return Fixture{}, fmt.Errorf("seed: place %d (%q) has no owner", index, fixture.Places[index].Title)
		}
	}
	return fixture, nil
}

// LoadFile reads and decodes the fixture stored at path.
func LoadFile(path string) (Fixture, error) {
	file, err := os.Open(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("seed: open fixture: %w", err)
	}
	defer file.Close()
	return Decode(file)
}

// Owners lists the distinct owners in first-appearance order.
func (f Fixture) Owners() []string {
	seen := make(map[string]struct{}, len(f.Places))
	owners := make([]string, 0, len(f.Places))
	for _, place := range f.Places {
		if _, ok := seen[place.Owner]; ok {
			continue
		}
		seen[place.Owner] = struct{}{}
		owners = append(owners, place.Owner)
	}
	return owners
}
