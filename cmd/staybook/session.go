package main

import (
	"context"
	"fmt"

	"github.com/MarcoPoloResearchLab/staybook/internal/auth"
	"github.com/MarcoPoloResearchLab/staybook/internal/bookings"
	"github.com/MarcoPoloResearchLab/staybook/internal/config"
	"github.com/MarcoPoloResearchLab/staybook/internal/logging"
	"github.com/MarcoPoloResearchLab/staybook/internal/places"
	"github.com/MarcoPoloResearchLab/staybook/internal/remote"
	"github.com/MarcoPoloResearchLab/staybook/internal/stream"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// clientSession bundles the stores a client command acts through.
type clientSession struct {
	identity *auth.TokenIdentity
	places   *places.Service
	bookings *bookings.Service
	logger   *zap.Logger

	subscriptions []*stream.Subscription
}

func (s *clientSession) Close() {
	for _, subscription := range s.subscriptions {
		subscription.Release()
	}
	_ = s.logger.Sync()
}

func loadClientConfig() (config.AppConfig, *zap.Logger, error) {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return config.AppConfig{}, nil, err
	}
	logger, err := logging.NewConsoleLogger(appConfig.LogLevel)
	if err != nil {
		return config.AppConfig{}, nil, err
	}
	return appConfig, logger, nil
}

func openClientSession(ctx context.Context) (*clientSession, error) {
	appConfig, logger, err := loadClientConfig()
	if err != nil {
		return nil, err
	}
	if err := appConfig.ValidateClient(); err != nil {
		return nil, err
	}
	return newClientSession(ctx, appConfig, appConfig.RemoteToken, logger)
}

func newClientSession(ctx context.Context, appConfig config.AppConfig, token string, logger *zap.Logger) (*clientSession, error) {
	identity, err := auth.NewTokenIdentity(token)
	if err != nil {
		return nil, err
	}

	client, err := remote.NewClient(remote.ClientConfig{
		BaseURL: appConfig.RemoteBaseURL,
		Token:   identity.Token(),
		Timeout: appConfig.RemoteTimeout,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	placeStore, err := places.NewService(places.ServiceConfig{
		Gateway:  client.Collection(places.CollectionName),
		Identity: identity,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("places store: %w", err)
	}

	bookingStore, err := bookings.NewService(bookings.ServiceConfig{
		Gateway:  client.Collection(bookings.CollectionName).Where(bookings.OwnerField, identity.CurrentUserID()),
		Identity: identity,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("bookings store: %w", err)
	}

	// Snapshot traces stop with ctx or Close, whichever comes first.
	subscriptions := []*stream.Subscription{
		placeStore.Places().SubscribeContext(ctx, func(snapshot []places.Place) {
			logger.Debug("places snapshot published", zap.Int("places", len(snapshot)))
		}),
		bookingStore.Bookings().SubscribeContext(ctx, func(snapshot []bookings.Booking) {
			logger.Debug("bookings snapshot published", zap.Int("bookings", len(snapshot)))
		}),
	}

	return &clientSession{
		identity:      identity,
		places:        placeStore,
		bookings:      bookingStore,
		logger:        logger,
		subscriptions: subscriptions,
	}, nil
}
