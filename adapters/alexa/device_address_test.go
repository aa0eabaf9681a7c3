package alexa

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/assistbridge/server/domain/entities"
	"github.com/satriahrh/assistbridge/server/domain/repositories"
)

var _ repositories.DeviceAddressProvider = &DeviceAddressClient{}

func TestDeviceAddress(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/devices/dev-1/settings/address/countryAndPostalCode" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer api-token" {
			t.Errorf("Authorization = %s", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"countryCode":"US","postalCode":"98109"}`))
	}))
	defer server.Close()

	client := NewDeviceAddressClient(server.Client(), zaptest.NewLogger(t))
	address, err := client.DeviceAddress(context.Background(), repositories.DeviceRef{
		DeviceID:       "dev-1",
		APIEndpoint:    server.URL + "/",
		APIAccessToken: "api-token",
	})
	if err != nil {
		t.Fatalf("DeviceAddress() error = %v", err)
	}
	if address.Query() != "US,98109" {
		t.Errorf("Query() = %s, want US,98109", address.Query())
	}
}

func TestDeviceAddressPermissionDenied(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewDeviceAddressClient(server.Client(), zaptest.NewLogger(t))
	_, err := client.DeviceAddress(context.Background(), repositories.DeviceRef{
		DeviceID:    "dev-1",
		APIEndpoint: server.URL,
	})
	if !errors.Is(err, entities.ErrDeviceAddress) {
		t.Errorf("DeviceAddress() error = %v, want ErrDeviceAddress", err)
	}
	if entities.ErrorKind(err) != "error.device_address" {
		t.Errorf("ErrorKind() = %s", entities.ErrorKind(err))
	}
}
