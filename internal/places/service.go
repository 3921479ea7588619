// Package places keeps the listing snapshot in sync with the remote "offered-places" collection.
package places

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MarcoPoloResearchLab/staybook/internal/auth"
	"github.com/MarcoPoloResearchLab/staybook/internal/resource"
	"github.com/MarcoPoloResearchLab/staybook/internal/stream"
	"go.uber.org/zap"
)

// CollectionName is the remote collection holding listings.
const CollectionName = "offered-places"

var (
	errMissingIdentity = errors.New("identity provider is required")
	// ErrMissingUser indicates that the identity provider has no current user.
	ErrMissingUser = errors.New("places: current user required")
)

// ServiceConfig describes the collaborators of the places Service.
type ServiceConfig struct {
	Gateway      resource.Gateway
	Identity     auth.Identity
	Cache        *stream.Cache[Place]
	Placeholders resource.PlaceholderSource
	Logger       *zap.Logger
}

// Service exposes listing operations backed by a resource pipeline.
type Service struct {
	pipeline *resource.Pipeline[Place]
	identity auth.Identity
	logger   *zap.Logger
}

// NewService wires a pipeline over the listings collection.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Identity == nil {
		return nil, fmt.Errorf("places: %w", errMissingIdentity)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cache := cfg.Cache
	if cache == nil {
		cache = stream.NewCache[Place]()
	}

	pipeline, err := resource.NewPipeline(resource.PipelineConfig[Place]{
		Collection:   "places",
		Cache:        cache,
		Gateway:      cfg.Gateway,
		Codec:        Codec{},
		Placeholders: cfg.Placeholders,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}

	return &Service{
		pipeline: pipeline,
		identity: cfg.Identity,
		logger:   logger,
	}, nil
}

// Places returns the snapshot cache. Subscribers receive the latest snapshot immediately.
func (s *Service) Places() *stream.Cache[Place] {
	return s.pipeline.Cache()
}

// Snapshot returns a copy of the current listings.
func (s *Service) Snapshot() []Place {
	return s.pipeline.Cache().Snapshot()
}

// FetchPlaces replaces the snapshot with every remote listing.
func (s *Service) FetchPlaces(ctx context.Context) ([]Place, error) {
	return s.pipeline.FetchAll(ctx)
}

// GetPlace reads one listing without touching the snapshot.
func (s *Service) GetPlace(ctx context.Context, id string) (Place, error) {
	return s.pipeline.FetchOne(ctx, id)
}

// AddPlace publishes a new offer owned by the current user.
func (s *Service) AddPlace(ctx context.Context, draft OfferDraft) (Place, error) {
	if err := draft.Validate(); err != nil {
		return Place{}, err
	}
	ownerID, err := s.currentUser()
	if err != nil {
		return Place{}, err
	}
	return s.pipeline.Add(ctx, func(placeholderID string) (Place, error) {
		return draft.place(placeholderID, ownerID), nil
	})
}

// UpdatePlace applies revision to the listing identified by id. The boolean is false when id is unknown.
func (s *Service) UpdatePlace(ctx context.Context, id string, revision OfferRevision) (Place, bool, error) {
	if err := revision.Validate(); err != nil {
		return Place{}, false, err
	}
	return s.pipeline.Update(ctx, id, func(current Place) (Place, error) {
		return revision.apply(current), nil
	})
}

// RemovePlace deletes a listing. Unknown ids succeed.
func (s *Service) RemovePlace(ctx context.Context, id string) error {
	return s.pipeline.Remove(ctx, id)
}

// Offers filters snapshot down to listings owned by the current user.
func (s *Service) Offers(snapshot []Place) []Place {
	ownerID := strings.TrimSpace(s.identity.CurrentUserID())
	offers := make([]Place, 0, len(snapshot))
	if ownerID == "" {
		return offers
	}
	for _, place := range snapshot {
		if place.UserID == ownerID {
			offers = append(offers, place)
		}
	}
	return offers
}

// IsBookable reports whether the current user may book place; hosts cannot book their own listings.
func (s *Service) IsBookable(place Place) bool {
	return place.UserID != s.identity.CurrentUserID()
}

func (s *Service) currentUser() (string, error) {
	userID := strings.TrimSpace(s.identity.CurrentUserID())
	if userID == "" {
		s.logger.Warn("places operation without current user")
		return "", ErrMissingUser
	}
	return userID, nil
}
