package entities

import (
	"errors"
	"fmt"
)

// Failure kinds of a turn. Callers match them with errors.Is and pick a
// user-facing message from ErrorKind.
var (
	ErrTransport          = errors.New("error returned from the assistant stream")
	ErrTimeout            = errors.New("response timeout from the assistant")
	ErrNoAudio            = errors.New("no audio response received from the assistant")
	ErrAudioCapture       = errors.New("failed to write the response audio")
	ErrEncodePipeline     = errors.New("failed to encode the response audio")
	ErrMissingAccessToken = errors.New("access token was not provided")

	ErrRegistration    = errors.New("failed to register with the assistant project")
	ErrProjectDevice   = fmt.Errorf("%w: device model", ErrRegistration)
	ErrProjectInstance = fmt.Errorf("%w: device instance", ErrRegistration)

	ErrDeviceAddress = errors.New("device address permission not granted")
	ErrGeocode       = errors.New("failed to get geocode coordinates")

	ErrStorage          = errors.New("failed to store the response audio")
	ErrStorageUpload    = fmt.Errorf("%w: upload", ErrStorage)
	ErrStorageSignedURL = fmt.Errorf("%w: signed url", ErrStorage)
)

var errorKinds = []struct {
	err  error
	kind string
}{
	{ErrMissingAccessToken, "error.access_token"},
	{ErrTimeout, "error.assistant_timeout"},
	{ErrNoAudio, "error.assistant_audio"},
	{ErrAudioCapture, "error.assistant_stream"},
	{ErrTransport, "error.assistant"},
	{ErrEncodePipeline, "error.transcoder_encode"},
	{ErrProjectDevice, "error.project_device"},
	{ErrProjectInstance, "error.project_instance"},
	{ErrRegistration, "error.project_device"},
	{ErrDeviceAddress, "error.device_address"},
	{ErrGeocode, "error.maps_geocode"},
	{ErrStorageUpload, "error.storage_upload"},
	{ErrStorageSignedURL, "error.storage_signed_url"},
	{ErrStorage, "error.storage_upload"},
}

// ErrorKind returns the stable message key for a turn failure
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "error.default"
}
