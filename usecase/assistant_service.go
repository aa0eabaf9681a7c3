package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/satriahrh/assistbridge/server/domain/entities"
	"github.com/satriahrh/assistbridge/server/domain/repositories"
	"github.com/satriahrh/assistbridge/server/internal/assist"
	"github.com/satriahrh/assistbridge/server/internal/metrics"
)

// TurnRequest is one spoken query relayed by the voice platform
type TurnRequest struct {
	UserID      string
	Text        string
	Locale      string
	AccessToken string
	// Location is used as-is when set; otherwise Device, when set, is used
	// to look the location up.
	Location *entities.DeviceLocation
	Device   *repositories.DeviceRef
}

// TurnResult is what the voice platform needs to answer the user
type TurnResult struct {
	AudioURL        string
	DisplayText     string
	CardTitle       string
	KeepSessionOpen bool
}

// AssistantService runs a full turn: context, registration, location,
// assistant stream, transcoding, upload and context persistence.
type AssistantService struct {
	session    *assist.Session
	transcoder repositories.Transcoder
	storage    repositories.AudioStorage
	contexts   repositories.ContextRepository
	registrar  repositories.Registrar
	addresses  repositories.DeviceAddressProvider
	geocoder   repositories.Geocoder
	metrics    *metrics.Metrics
	logger     *zap.Logger
	locks      *userLocks
}

// NewAssistantService creates a new assistant service. registrar, addresses
// and geocoder may be nil to skip those steps.
func NewAssistantService(
	session *assist.Session,
	transcoder repositories.Transcoder,
	storage repositories.AudioStorage,
	contexts repositories.ContextRepository,
	registrar repositories.Registrar,
	addresses repositories.DeviceAddressProvider,
	geocoder repositories.Geocoder,
	m *metrics.Metrics,
	logger *zap.Logger,
) *AssistantService {
	return &AssistantService{
		session:    session,
		transcoder: transcoder,
		storage:    storage,
		contexts:   contexts,
		registrar:  registrar,
		addresses:  addresses,
		geocoder:   geocoder,
		metrics:    m,
		logger:     logger,
		locks:      newUserLocks(),
	}
}

// Handle runs one turn. Turns of the same user run one at a time. The
// conversation context is saved whether or not the turn succeeds, so a
// completed registration is never repeated.
func (s *AssistantService) Handle(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	logger := s.logger.With(zap.String("userID", req.UserID))
	logger.Info("Processing query", zap.String("text", req.Text), zap.String("locale", req.Locale))

	if req.AccessToken == "" {
		s.metrics.ObserveTurn(entities.ErrorKind(entities.ErrMissingAccessToken))
		return nil, entities.ErrMissingAccessToken
	}

	unlock, err := s.locks.acquire(ctx, req.UserID)
	if err != nil {
		s.metrics.ObserveTurn(entities.ErrorKind(err))
		return nil, fmt.Errorf("failed to wait for the previous turn: %w", err)
	}
	defer unlock()

	s.metrics.TurnsInFlight.Inc()
	defer s.metrics.TurnsInFlight.Dec()

	conversation, err := s.contexts.Load(ctx, req.UserID)
	if err != nil {
		s.metrics.ObserveTurn(entities.ErrorKind(err))
		return nil, fmt.Errorf("failed to load conversation context: %w", err)
	}

	result, turnErr := s.turn(ctx, logger, req, conversation)

	// the caller may already be gone; the context must still be stored
	if err := s.contexts.Save(context.WithoutCancel(ctx), conversation); err != nil {
		logger.Error("Failed to save conversation context", zap.Error(err))
		if turnErr == nil {
			turnErr = fmt.Errorf("failed to save conversation context: %w", err)
		}
	}

	if turnErr != nil {
		s.metrics.ObserveTurn(entities.ErrorKind(turnErr))
		logger.Warn("Query failed", zap.String("kind", entities.ErrorKind(turnErr)), zap.Error(turnErr))
		return nil, turnErr
	}

	s.metrics.ObserveTurn("ok")
	return result, nil
}

func (s *AssistantService) turn(ctx context.Context, logger *zap.Logger, req TurnRequest, conversation *entities.ConversationContext) (*TurnResult, error) {
	if !conversation.Registered && s.registrar != nil {
		if err := s.registrar.Register(ctx, req.AccessToken); err != nil {
			return nil, err
		}
		conversation.Registered = true
	}

	location, err := s.locate(ctx, req)
	if err != nil {
		return nil, err
	}

	outcome, err := s.session.Query(ctx, assist.Query{
		Text:        req.Text,
		Locale:      req.Locale,
		Location:    location,
		AccessToken: req.AccessToken,
	}, conversation)
	if err != nil {
		return nil, err
	}
	defer s.remove(logger, outcome.Audio.Path)

	s.metrics.ObserveFirstAudioLatency(outcome.FirstAudio)
	s.metrics.ObserveCapturedBytes(outcome.Audio.Bytes)

	start := time.Now()
	encoded, err := s.transcoder.Transcode(ctx, outcome.Audio.Path)
	if err != nil {
		return nil, err
	}
	defer s.remove(logger, encoded.Path)
	s.metrics.ObserveTranscode(time.Since(start))

	key := fmt.Sprintf("%s/%s.mp3", req.UserID, uuid.NewString())
	audioURL, err := s.storage.Store(ctx, encoded.Path, key)
	if err != nil {
		return nil, err
	}

	conversation.ApplyMicrophoneMode(outcome.MicrophoneMode)

	result := &TurnResult{
		AudioURL:    audioURL,
		DisplayText: outcome.DisplayText,
		// the assistant closes the microphone on "hello" although it expects a reply
		KeepSessionOpen: conversation.MicrophoneOpen || strings.EqualFold(strings.TrimSpace(req.Text), "hello"),
	}
	if outcome.DisplayText != "" {
		result.CardTitle = FormatUtterance(req.Text)
	}

	logger.Info("Query completed",
		zap.Bool("keepSessionOpen", result.KeepSessionOpen),
		zap.Int64("audioBytes", encoded.Bytes))

	return result, nil
}

func (s *AssistantService) locate(ctx context.Context, req TurnRequest) (*entities.DeviceLocation, error) {
	if req.Location != nil {
		return req.Location, nil
	}
	if req.Device == nil || req.Device.APIEndpoint == "" || s.addresses == nil || s.geocoder == nil {
		return nil, nil
	}

	address, err := s.addresses.DeviceAddress(ctx, *req.Device)
	if err != nil {
		return nil, err
	}
	location, err := s.geocoder.Geocode(ctx, address.Query())
	if err != nil {
		return nil, err
	}
	return &location, nil
}

func (s *AssistantService) remove(logger *zap.Logger, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("Failed to remove temporary audio", zap.String("path", path), zap.Error(err))
	}
}
