package api

import "github.com/satriahrh/assistbridge/server/domain/entities"

// QueryRequest is the payload of POST /api/v1/query
type QueryRequest struct {
	Text        string                   `json:"text"`
	Locale      string                   `json:"locale"`
	AccessToken string                   `json:"access_token"`
	Location    *entities.DeviceLocation `json:"location,omitempty"`
	Device      *DeviceInfo              `json:"device,omitempty"`
}

// DeviceInfo lets the server look up the device's configured address
type DeviceInfo struct {
	DeviceID       string `json:"device_id"`
	APIEndpoint    string `json:"api_endpoint"`
	APIAccessToken string `json:"api_access_token"`
}

// QueryResponse is returned for a successful query
type QueryResponse struct {
	RequestID       string `json:"request_id"`
	AudioURL        string `json:"audio_url"`
	DisplayText     string `json:"display_text,omitempty"`
	CardTitle       string `json:"card_title,omitempty"`
	KeepSessionOpen bool   `json:"keep_session_open"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
