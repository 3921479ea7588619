package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/MarcoPoloResearchLab/staybook/internal/places"
	"github.com/MarcoPoloResearchLab/staybook/internal/validation"
	"go.uber.org/zap"
)

var errMissingFactory = errors.New("seed: place store factory is required")

// PlaceAdder publishes offers on behalf of one host.
type PlaceAdder interface {
	AddPlace(ctx context.Context, draft places.OfferDraft) (places.Place, error)
}

// StoreFactory returns a PlaceAdder acting as ownerID.
type StoreFactory func(ctx context.Context, ownerID string) (PlaceAdder, error)

// Result reports what a seeding run published.
type Result struct {
	Created []places.Place
	Skipped []PlaceFixture
}

// Seeder publishes fixtures host by host.
type Seeder struct {
	factory StoreFactory
	logger  *zap.Logger
}

// NewSeeder returns a Seeder that obtains per-owner stores from factory.
func NewSeeder(factory StoreFactory, logger *zap.Logger) (*Seeder, error) {
	if factory == nil {
		return nil, errMissingFactory
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{factory: factory, logger: logger}, nil
}

// Apply publishes every fixture place. Places that fail offer validation are skipped and reported;
// any other failure stops the run.
func (s *Seeder) Apply(ctx context.Context, fixture Fixture) (Result, error) {
	result := Result{}
	stores := make(map[string]PlaceAdder)
	for _, owner := range fixture.Owners() {
		store, err := s.factory(ctx, owner)
		if err != nil {
			return result, fmt.Errorf("seed: store for %s: %w", owner, err)
		}
		stores[owner] = store
	}

	for _, entry := range fixture.Places {
		created, err := stores[entry.Owner].AddPlace(ctx, entry.Draft())
		if errors.Is(err, places.ErrInvalidOffer) {
			s.logger.Warn("skipping invalid fixture place",
				zap.String("owner", entry.Owner),
				zap.String("title", entry.Title),
				zap.Strings("fields", failedFields(err)),
				zap.Error(err))
			result.Skipped = append(result.Skipped, entry)
			continue
		}
		if err != nil {
			return result, fmt.Errorf("seed: add %q: %w", entry.Title, err)
		}
		s.logger.Info("fixture place published",
			zap.String("owner", entry.Owner),
			zap.String("id", created.ID),
			zap.String("title", created.Title))
		result.Created = append(result.Created, created)
	}
	return result, nil
}

func failedFields(err error) []string {
	var validationErr *validation.Error
	if !errors.As(err, &validationErr) {
		return nil
	}
	names := make([]string, 0, len(validationErr.Fields))
	for _, field := range validationErr.Fields {
		names = append(names, field.Field)
	}
	return names
}
