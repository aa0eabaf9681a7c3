package entities

import "fmt"

// DeviceLocation is the coordinate pair sent with a query
type DeviceLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DeviceAddress is the coarse address reported by the voice platform for a device
type DeviceAddress struct {
	CountryCode string `json:"countryCode"`
	PostalCode  string `json:"postalCode"`
}

// Query renders the address in the form used for geocoding
func (a DeviceAddress) Query() string {
	return fmt.Sprintf("%s,%s", a.CountryCode, a.PostalCode)
}
