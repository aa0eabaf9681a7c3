package repositories

import (
	"context"

	"github.com/satriahrh/assistbridge/server/domain/entities"
)

// DeviceAddressProvider looks up the address configured for a voice device
type DeviceAddressProvider interface {
	DeviceAddress(ctx context.Context, device DeviceRef) (entities.DeviceAddress, error)
}

// DeviceRef identifies a device on the voice platform and the credentials to query it
type DeviceRef struct {
	DeviceID       string
	APIEndpoint    string
	APIAccessToken string
}

// Geocoder resolves a free-form address to coordinates
type Geocoder interface {
	Geocode(ctx context.Context, address string) (entities.DeviceLocation, error)
}
