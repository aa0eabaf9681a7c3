package entities

// AudioEncoding names the audio encoding requested from the assistant
type AudioEncoding string

const (
	AudioEncodingLinear16 AudioEncoding = "LINEAR16"
)

// AudioOutConfig describes the synthesized speech format requested per turn
type AudioOutConfig struct {
	Encoding         AudioEncoding `json:"encoding"`
	SampleRateHertz  int           `json:"sample_rate_hertz"`
	VolumePercentage int           `json:"volume_percentage"`
}

// DefaultAudioOut is 16-bit linear PCM, 16 kHz mono, at maximum volume
var DefaultAudioOut = AudioOutConfig{
	Encoding:         AudioEncodingLinear16,
	SampleRateHertz:  16000,
	VolumePercentage: 100,
}

// AssistRequest is the single request sent on the duplex stream for a turn
type AssistRequest struct {
	QueryText         string          `json:"query_text"`
	LanguageCode      string          `json:"language_code"`
	IsNewConversation bool            `json:"is_new_conversation"`
	ConversationState []byte          `json:"conversation_state,omitempty"`
	DeviceLocation    *DeviceLocation `json:"device_location,omitempty"`
	AudioOut          AudioOutConfig  `json:"audio_out"`
}

// MicrophoneMode is the assistant's hint about keeping the dialog open
type MicrophoneMode int

const (
	MicrophoneUnspecified MicrophoneMode = iota
	MicrophoneClose
	MicrophoneDialogFollowOn
)

func (m MicrophoneMode) String() string {
	switch m {
	case MicrophoneClose:
		return "CLOSE_MICROPHONE"
	case MicrophoneDialogFollowOn:
		return "DIALOG_FOLLOW_ON"
	default:
		return "MICROPHONE_MODE_UNSPECIFIED"
	}
}

// ResponseEvent is one event received from the assistant stream. It is one of
// DialogState, AudioChunk, StreamEnd or StreamError.
type ResponseEvent interface {
	responseEvent()
}

// DialogState carries the side-channel metadata of a response turn
type DialogState struct {
	DisplayText       string
	MicrophoneMode    MicrophoneMode
	ConversationState []byte
}

// AudioChunk carries a piece of synthesized linear PCM audio
type AudioChunk struct {
	Data []byte
}

// StreamEnd signals that the assistant closed the stream cleanly
type StreamEnd struct{}

// StreamError signals that the stream failed
type StreamError struct {
	Err error
}

func (DialogState) responseEvent() {}
func (AudioChunk) responseEvent()  {}
func (StreamEnd) responseEvent()   {}
func (StreamError) responseEvent() {}

// EncodedAudio is a finished, playable response file
type EncodedAudio struct {
	Path        string
	Bytes       int64
	ContentType string
}
