package geocode

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"googlemaps.github.io/maps"

	"github.com/satriahrh/assistbridge/server/domain/entities"
)

// GoogleMapsGeocoder resolves addresses with the Google Maps Geocoding API
type GoogleMapsGeocoder struct {
	client *maps.Client
	logger *zap.Logger
}

// NewGoogleMapsGeocoder creates a geocoder. Extra options such as
// maps.WithBaseURL are passed to the maps client.
func NewGoogleMapsGeocoder(apiKey string, logger *zap.Logger, opts ...maps.ClientOption) (*GoogleMapsGeocoder, error) {
	opts = append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)
	client, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &GoogleMapsGeocoder{
		client: client,
		logger: logger,
	}, nil
}

// Geocode returns the coordinates of the first match for address
func (g *GoogleMapsGeocoder) Geocode(ctx context.Context, address string) (entities.DeviceLocation, error) {
	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{Address: address})
	if err != nil {
		g.logger.Warn("Got google maps geocode error", zap.String("address", address), zap.Error(err))
		return entities.DeviceLocation{}, fmt.Errorf("%w: %w", entities.ErrGeocode, err)
	}
	if len(results) == 0 {
		return entities.DeviceLocation{}, fmt.Errorf("%w: %w", entities.ErrGeocode, errors.New("no results"))
	}

	loc := results[0].Geometry.Location
	g.logger.Debug("Device location resolved",
		zap.String("address", address),
		zap.Float64("latitude", loc.Lat),
		zap.Float64("longitude", loc.Lng))

	return entities.DeviceLocation{Latitude: loc.Lat, Longitude: loc.Lng}, nil
}
