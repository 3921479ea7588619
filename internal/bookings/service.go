// Package bookings keeps the current user's reservations in sync with the remote "bookings" collection.
package bookings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/MarcoPoloResearchLab/staybook/internal/auth"
	"github.com/MarcoPoloResearchLab/staybook/internal/resource"
	"github.com/MarcoPoloResearchLab/staybook/internal/stream"
	"go.uber.org/zap"
)

// CollectionName is the remote collection holding bookings.
const CollectionName = "bookings"

// OwnerField is the document field bookings are scoped by.
const OwnerField = "userId"

var (
	errMissingIdentity = errors.New("identity provider is required")
	errMissingGateway  = errors.New("gateway is required")
	// ErrMissingUser indicates that the identity provider has no current user.
	ErrMissingUser = errors.New("bookings: current user required")
)

// ServiceConfig describes the collaborators of the bookings Service.
type ServiceConfig struct {
	Gateway      resource.Gateway
	Identity     auth.Identity
	Cache        *stream.Cache[Booking]
	Placeholders resource.PlaceholderSource
	Logger       *zap.Logger
}

// Service exposes booking operations for the current user.
type Service struct {
	pipeline *resource.Pipeline[Booking]
	identity auth.Identity
	logger   *zap.Logger
}

// NewService wires a pipeline over the bookings collection. Fetches only ever publish
// bookings owned by the current user, whatever the gateway returns.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Identity == nil {
		return nil, fmt.Errorf("bookings: %w", errMissingIdentity)
	}
	if cfg.Gateway == nil {
		return nil, fmt.Errorf("bookings: %w", errMissingGateway)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cache := cfg.Cache
	if cache == nil {
		cache = stream.NewCache[Booking]()
	}

	pipeline, err := resource.NewPipeline(resource.PipelineConfig[Booking]{
		Collection:   CollectionName,
		Cache:        cache,
		Gateway:      &ownerScopedGateway{Gateway: cfg.Gateway, identity: cfg.Identity},
		Codec:        Codec{},
		Placeholders: cfg.Placeholders,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}

	return &Service{pipeline: pipeline, identity: cfg.Identity, logger: logger}, nil
}

// Bookings returns the snapshot cache.
func (s *Service) Bookings() *stream.Cache[Booking] {
	return s.pipeline.Cache()
}

// Snapshot returns a copy of the current bookings.
func (s *Service) Snapshot() []Booking {
	return s.pipeline.Cache().Snapshot()
}

// FetchBookings replaces the snapshot with the current user's remote bookings.
func (s *Service) FetchBookings(ctx context.Context) ([]Booking, error) {
	if _, err := s.currentUser(); err != nil {
		return nil, err
	}
	return s.pipeline.FetchAll(ctx)
}

// GetBooking reads one booking without touching the snapshot.
func (s *Service) GetBooking(ctx context.Context, id string) (Booking, error) {
	return s.pipeline.FetchOne(ctx, id)
}

// AddBooking reserves a place for the current user.
func (s *Service) AddBooking(ctx context.Context, draft BookingDraft) (Booking, error) {
	if err := draft.Validate(); err != nil {
		return Booking{}, err
	}
	userID, err := s.currentUser()
	if err != nil {
		return Booking{}, err
	}
	return s.pipeline.Add(ctx, func(placeholderID string) (Booking, error) {
		return draft.booking(placeholderID, userID), nil
	})
}

// CancelBooking deletes a booking. Unknown ids succeed.
func (s *Service) CancelBooking(ctx context.Context, id string) error {
	return s.pipeline.Remove(ctx, id)
}

func (s *Service) currentUser() (string, error) {
	userID := strings.TrimSpace(s.identity.CurrentUserID())
	if userID == "" {
		s.logger.Warn("bookings operation without current user")
		return "", ErrMissingUser
	}
	return userID, nil
}

// ownerScopedGateway drops fetched documents that belong to other users.
type ownerScopedGateway struct {
	resource.Gateway
	identity auth.Identity
}

func (g *ownerScopedGateway) FetchCollection(ctx context.Context) (map[string]json.RawMessage, error) {
	documents, err := g.Gateway.FetchCollection(ctx)
	if err != nil {
		return nil, err
	}
	userID := g.identity.CurrentUserID()
	scoped := make(map[string]json.RawMessage, len(documents))
	for id, document := range documents {
		owner, ok := ownerOf(document)
		if ok && owner == userID {
			scoped[id] = document
		}
	}
	return scoped, nil
}
