package api

import (
	"errors"
	"net/http"

	"github.com/satriahrh/assistbridge/server/domain/entities"
)

var messages = map[string]string{
	"error.default":            "Something went wrong.",
	"error.access_token":       "The Google API access token wasn't provided. Please disable and re-enable the skill.",
	"error.assistant":          "Error returned from the Google Assistant API.",
	"error.assistant_audio":    "No audio response received from the Google Assistant API.",
	"error.assistant_stream":   "Failed to record the Google Assistant API response.",
	"error.assistant_timeout":  "Response timeout from the Google Assistant API.",
	"error.device_address":     "The device country and postal code permission isn't granted. Please check the skill settings in the Alexa App.",
	"error.maps_geocode":       "Failed to get Google Maps geocode coordinates.",
	"error.project_device":     "There was an error registering the device model with the Google API.",
	"error.project_instance":   "There was an error registering the instance model with the Google API.",
	"error.storage_signed_url": "There was an error creating the signed URL.",
	"error.storage_upload":     "There was an error uploading to S3.",
	"error.transcoder_encode":  "There was an error encoding the response audio.",
}

// Message returns the user-facing text for an error kind
func Message(kind string) string {
	if m, ok := messages[kind]; ok {
		return m
	}
	return messages["error.default"]
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, entities.ErrMissingAccessToken):
		return http.StatusBadRequest
	case errors.Is(err, entities.ErrDeviceAddress):
		return http.StatusForbidden
	case errors.Is(err, entities.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, entities.ErrTransport),
		errors.Is(err, entities.ErrNoAudio),
		errors.Is(err, entities.ErrRegistration),
		errors.Is(err, entities.ErrGeocode):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
