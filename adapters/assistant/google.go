package assistant

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	embedded "google.golang.org/genproto/googleapis/assistant/embedded/v1alpha2"
	"google.golang.org/genproto/googleapis/type/latlng"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/oauth"

	"github.com/satriahrh/assistbridge/server/domain/entities"
	"github.com/satriahrh/assistbridge/server/domain/repositories"
)

// DefaultEndpoint is the public Embedded Assistant API address
const DefaultEndpoint = "embeddedassistant.googleapis.com:443"

const eventBuffer = 16

// Config identifies the device the assistant talks to
type Config struct {
	DeviceModelID string
	DeviceID      string
}

// Dial connects to the assistant API over TLS
func Dial(endpoint string) (*grpc.ClientConn, error) {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	conn, err := grpc.NewClient(endpoint,
		grpc.WithTransportCredentials(credentials.NewClientTLSFromCert(nil, "")))
	if err != nil {
		return nil, fmt.Errorf("failed to create assistant client: %w", err)
	}
	return conn, nil
}

// GoogleAssistant implements AssistantTransport over the Embedded Assistant
// gRPC API
type GoogleAssistant struct {
	client embedded.EmbeddedAssistantClient
	config Config
	logger *zap.Logger
}

// NewGoogleAssistant creates a transport on an existing connection
func NewGoogleAssistant(conn grpc.ClientConnInterface, config Config, logger *zap.Logger) *GoogleAssistant {
	return &GoogleAssistant{
		client: embedded.NewEmbeddedAssistantClient(conn),
		config: config,
		logger: logger,
	}
}

// Open starts an Assist call, sends the config request as the only outbound
// message and starts forwarding responses as events.
func (g *GoogleAssistant) Open(ctx context.Context, accessToken string, req entities.AssistRequest) (repositories.AssistStream, error) {
	ctx, cancel := context.WithCancel(ctx)

	var opts []grpc.CallOption
	if accessToken != "" {
		opts = append(opts, grpc.PerRPCCredentials(oauth.TokenSource{
			TokenSource: oauth2.StaticTokenSource(&oauth2.Token{
				AccessToken: accessToken,
				TokenType:   "Bearer",
			}),
		}))
	}

	stream, err := g.client.Assist(ctx, opts...)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open assist stream: %w", err)
	}

	// io.EOF from Send means the server already ended the call; the real
	// status is reported by Recv.
	if err := stream.Send(g.buildRequest(req)); err != nil && !errors.Is(err, io.EOF) {
		cancel()
		return nil, fmt.Errorf("failed to send assist config: %w", err)
	}
	if err := stream.CloseSend(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to close send direction: %w", err)
	}

	s := &assistStream{
		stream: stream,
		cancel: cancel,
		events: make(chan entities.ResponseEvent, eventBuffer),
		logger: g.logger,
	}
	go s.receive(ctx)

	return s, nil
}

func (g *GoogleAssistant) buildRequest(req entities.AssistRequest) *embedded.AssistRequest {
	dialogState := &embedded.DialogStateIn{
		LanguageCode:      req.LanguageCode,
		ConversationState: req.ConversationState,
		IsNewConversation: req.IsNewConversation,
	}
	if req.DeviceLocation != nil {
		dialogState.DeviceLocation = &embedded.DeviceLocation{
			Type: &embedded.DeviceLocation_Coordinates{
				Coordinates: &latlng.LatLng{
					Latitude:  req.DeviceLocation.Latitude,
					Longitude: req.DeviceLocation.Longitude,
				},
			},
		}
	}

	return &embedded.AssistRequest{
		Type: &embedded.AssistRequest_Config{
			Config: &embedded.AssistConfig{
				Type: &embedded.AssistConfig_TextQuery{
					TextQuery: req.QueryText,
				},
				AudioOutConfig: &embedded.AudioOutConfig{
					Encoding:         audioEncoding(req.AudioOut.Encoding),
					SampleRateHertz:  int32(req.AudioOut.SampleRateHertz),
					VolumePercentage: int32(req.AudioOut.VolumePercentage),
				},
				DialogStateIn: dialogState,
				DeviceConfig: &embedded.DeviceConfig{
					DeviceId:      g.config.DeviceID,
					DeviceModelId: g.config.DeviceModelID,
				},
			},
		},
	}
}

func audioEncoding(e entities.AudioEncoding) embedded.AudioOutConfig_Encoding {
	switch e {
	case entities.AudioEncodingLinear16:
		return embedded.AudioOutConfig_LINEAR16
	default:
		return embedded.AudioOutConfig_ENCODING_UNSPECIFIED
	}
}

func microphoneMode(m embedded.DialogStateOut_MicrophoneMode) entities.MicrophoneMode {
	switch m {
	case embedded.DialogStateOut_CLOSE_MICROPHONE:
		return entities.MicrophoneClose
	case embedded.DialogStateOut_DIALOG_FOLLOW_ON:
		return entities.MicrophoneDialogFollowOn
	default:
		return entities.MicrophoneUnspecified
	}
}

type assistStream struct {
	stream embedded.EmbeddedAssistant_AssistClient
	cancel context.CancelFunc
	events chan entities.ResponseEvent
	logger *zap.Logger
}

func (s *assistStream) Events() <-chan entities.ResponseEvent {
	return s.events
}

func (s *assistStream) Close() error {
	s.cancel()
	return nil
}

func (s *assistStream) receive(ctx context.Context) {
	defer close(s.events)

	for {
		resp, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			s.deliver(ctx, entities.StreamEnd{})
			return
		}
		if err != nil {
			s.deliver(ctx, entities.StreamError{Err: err})
			return
		}

		if resp.GetEventType() == embedded.AssistResponse_END_OF_UTTERANCE {
			s.logger.Debug("End of utterance")
		}
		if audio := resp.GetAudioOut(); audio != nil {
			if !s.deliver(ctx, entities.AudioChunk{Data: audio.GetAudioData()}) {
				return
			}
		}
		if dialog := resp.GetDialogStateOut(); dialog != nil {
			ev := entities.DialogState{
				DisplayText:       dialog.GetSupplementalDisplayText(),
				MicrophoneMode:    microphoneMode(dialog.GetMicrophoneMode()),
				ConversationState: dialog.GetConversationState(),
			}
			if !s.deliver(ctx, ev) {
				return
			}
		}
	}
}

func (s *assistStream) deliver(ctx context.Context, ev entities.ResponseEvent) bool {
	select {
	case s.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
