package alexa

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/satriahrh/assistbridge/server/domain/entities"
	"github.com/satriahrh/assistbridge/server/domain/repositories"
)

// DeviceAddressClient reads the country and postal code a user configured
// for their voice device
type DeviceAddressClient struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// NewDeviceAddressClient creates a new device address client
func NewDeviceAddressClient(httpClient *http.Client, logger *zap.Logger) *DeviceAddressClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &DeviceAddressClient{
		httpClient: httpClient,
		logger:     logger,
	}
}

type countryAndPostalCode struct {
	CountryCode string `json:"countryCode"`
	PostalCode  string `json:"postalCode"`
}

// DeviceAddress implements repositories.DeviceAddressProvider
func (c *DeviceAddressClient) DeviceAddress(ctx context.Context, device repositories.DeviceRef) (entities.DeviceAddress, error) {
	endpoint := fmt.Sprintf("%s/v1/devices/%s/settings/address/countryAndPostalCode",
		strings.TrimSuffix(device.APIEndpoint, "/"), url.PathEscape(device.DeviceID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return entities.DeviceAddress{}, fmt.Errorf("%w: %w", entities.ErrDeviceAddress, err)
	}
	req.Header.Set("Authorization", "Bearer "+device.APIAccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return entities.DeviceAddress{}, fmt.Errorf("%w: %w", entities.ErrDeviceAddress, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Unable to get device address", zap.Int("status", resp.StatusCode))
		return entities.DeviceAddress{}, fmt.Errorf("%w: status %d", entities.ErrDeviceAddress, resp.StatusCode)
	}

	var body countryAndPostalCode
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return entities.DeviceAddress{}, fmt.Errorf("%w: %w", entities.ErrDeviceAddress, err)
	}

	address := entities.DeviceAddress{CountryCode: body.CountryCode, PostalCode: body.PostalCode}
	c.logger.Debug("Device address", zap.String("address", address.Query()))
	return address, nil
}
