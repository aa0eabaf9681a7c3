package assist

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/assistbridge/server/domain/entities"
	"github.com/satriahrh/assistbridge/server/domain/repositories"
)

const (
	defaultTimeout          = 9 * time.Second
	defaultMaxAudioDuration = 90 * time.Second
	bitsPerSample           = 16
)

// Config holds the fixed parameters of an assist turn
type Config struct {
	// Timeout is how long to wait for the first audio byte after the request is sent
	Timeout time.Duration
	// MaxAudioDuration bounds the captured response audio
	MaxAudioDuration time.Duration
	// TempDir receives the captured PCM files
	TempDir  string
	AudioOut entities.AudioOutConfig
}

// DefaultConfig returns the reference turn parameters
func DefaultConfig() Config {
	return Config{
		Timeout:          defaultTimeout,
		MaxAudioDuration: defaultMaxAudioDuration,
		TempDir:          os.TempDir(),
		AudioOut:         entities.DefaultAudioOut,
	}
}

// Timer is the part of time.Timer a turn depends on
type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

// TimerFunc starts a timer that fires once after d
type TimerFunc func(d time.Duration) Timer

type stdTimer struct {
	t *time.Timer
}

func (s stdTimer) C() <-chan time.Time { return s.t.C }
func (s stdTimer) Stop() bool          { return s.t.Stop() }

func newStdTimer(d time.Duration) Timer {
	return stdTimer{t: time.NewTimer(d)}
}

// Option customizes a Session
type Option func(*Session)

// WithClock overrides the wall clock used for conversation continuity
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithTimerFunc overrides how the response timeout timer is created
func WithTimerFunc(f TimerFunc) Option {
	return func(s *Session) { s.newTimer = f }
}

// Query is the caller's input for one turn
type Query struct {
	Text        string
	Locale      string
	Location    *entities.DeviceLocation
	AccessToken string
}

// Audio is the captured raw PCM response of a turn
type Audio struct {
	Path  string
	Bytes int64
}

// Remove deletes the captured file
func (a Audio) Remove() error {
	if a.Path == "" {
		return nil
	}
	if err := os.Remove(a.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Outcome is the result of a successful turn. The caller owns Audio.
type Outcome struct {
	Audio          Audio
	DisplayText    string
	MicrophoneMode entities.MicrophoneMode
	FirstAudio     time.Duration
	Dropped        int64
}

// Session runs request/response turns against the assistant, one duplex
// stream per Query call.
type Session struct {
	transport repositories.AssistantTransport
	config    Config
	logger    *zap.Logger
	now       func() time.Time
	newTimer  TimerFunc
}

// NewSession creates a session runner on top of transport
func NewSession(transport repositories.AssistantTransport, config Config, logger *zap.Logger, opts ...Option) *Session {
	defaults := DefaultConfig()
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxAudioDuration <= 0 {
		config.MaxAudioDuration = defaults.MaxAudioDuration
	}
	if config.TempDir == "" {
		config.TempDir = defaults.TempDir
	}
	if config.AudioOut.SampleRateHertz == 0 {
		config.AudioOut = defaults.AudioOut
	}

	s := &Session{
		transport: transport,
		config:    config,
		logger:    logger,
		now:       time.Now,
		newTimer:  newStdTimer,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Capacity returns the capture budget in bytes
func (s *Session) Capacity() int64 {
	return CaptureLimit(s.config.MaxAudioDuration, bitsPerSample, s.config.AudioOut.SampleRateHertz)
}

// BuildRequest assembles the outbound request for a turn
func (s *Session) BuildRequest(q Query, prior *entities.ConversationContext, now time.Time) entities.AssistRequest {
	isNew, state := entities.Continuity(prior, now)

	req := entities.AssistRequest{
		QueryText:         q.Text,
		LanguageCode:      SupportedLocale(q.Locale),
		IsNewConversation: isNew,
		ConversationState: state,
		AudioOut:          s.config.AudioOut,
	}
	if q.Location != nil {
		loc := *q.Location
		req.DeviceLocation = &loc
	}
	return req
}

// Query runs one turn. On success the conversation's continuation token is
// advanced and the captured audio is handed to the caller; on failure the
// conversation is left untouched and the capture is removed.
func (s *Session) Query(ctx context.Context, q Query, conversation *entities.ConversationContext) (*Outcome, error) {
	now := s.now()
	req := s.BuildRequest(q, conversation, now)

	if conversation.HasState() {
		s.logger.Info("Prior conversation detected",
			zap.Bool("expired", req.IsNewConversation))
	} else {
		s.logger.Info("No prior conversation")
	}

	s.logger.Debug("Assist request",
		zap.String("query", req.QueryText),
		zap.String("locale", req.LanguageCode),
		zap.Bool("isNewConversation", req.IsNewConversation),
		zap.Bool("hasLocation", req.DeviceLocation != nil))

	file, err := os.CreateTemp(s.config.TempDir, "response-*.pcm")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", entities.ErrAudioCapture, err)
	}

	t := &turn{
		session: s,
		capture: NewCapture(file, s.Capacity(), s.logger),
		path:    file.Name(),
		started: now,
	}

	outcome, err := t.run(ctx, q.AccessToken, req, conversation)
	if err != nil {
		t.discard()
		s.logger.Warn("Assist turn failed", zap.Error(err))
		return nil, err
	}
	return outcome, nil
}

// turn is the state of a single in-flight exchange
type turn struct {
	session *Session
	capture *Capture
	path    string
	started time.Time

	timer   Timer
	timeout <-chan time.Time
	sentAt  time.Time

	audioStarted   bool
	firstAudio     time.Duration
	displayText    string
	microphoneMode entities.MicrophoneMode
	state          []byte
}

type openResult struct {
	stream repositories.AssistStream
	err    error
}

func (t *turn) run(ctx context.Context, accessToken string, req entities.AssistRequest, conversation *entities.ConversationContext) (*Outcome, error) {
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	t.timer = t.session.newTimer(t.session.config.Timeout)
	defer t.timer.Stop()
	t.timeout = t.timer.C()
	t.sentAt = time.Now()

	stream, expired, err := t.open(ctx, streamCtx, cancel, accessToken, req)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	events := stream.Events()
	if expired {
		if outcome, done, err := t.expire(events, conversation); done {
			return outcome, err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil, t.aborted(ctx)

		case <-t.timeout:
			if outcome, done, err := t.expire(events, conversation); done {
				return outcome, err
			}

		case ev, ok := <-events:
			if outcome, done, err := t.handle(ev, ok, conversation); done {
				return outcome, err
			}
		}
	}
}

// open races the transport's Open against the response timer, so a slow
// connection counts against the same deadline as a slow answer. Open must
// return once streamCtx is canceled. A stream that still opens after the
// deadline is returned with expired set, since it may already hold events.
func (t *turn) open(ctx, streamCtx context.Context, cancel context.CancelFunc, accessToken string, req entities.AssistRequest) (repositories.AssistStream, bool, error) {
	result := make(chan openResult, 1)
	go func() {
		stream, err := t.session.transport.Open(streamCtx, accessToken, req)
		result <- openResult{stream: stream, err: err}
	}()

	expired := false
	select {
	case r := <-result:
		if r.err != nil {
			return nil, false, fmt.Errorf("%w: %w", entities.ErrTransport, r.err)
		}
		return r.stream, false, nil
	case <-t.timeout:
		expired = true
	case <-ctx.Done():
	}

	cancel()
	r := <-result
	if !expired {
		if r.stream != nil {
			r.stream.Close()
		}
		return nil, false, t.aborted(ctx)
	}
	if r.err != nil {
		t.session.logger.Debug("Assist stream did not open before the deadline", zap.Error(r.err))
		return nil, false, t.timeoutError()
	}
	return r.stream, true, nil
}

// expire handles the timer firing. Events delivered before it fired are
// processed first; the turn times out only if none of them is audio.
func (t *turn) expire(events <-chan entities.ResponseEvent, conversation *entities.ConversationContext) (*Outcome, bool, error) {
	t.timeout = nil
	for !t.audioStarted {
		select {
		case ev, ok := <-events:
			if outcome, done, err := t.handle(ev, ok, conversation); done {
				return outcome, true, err
			}
		default:
			return nil, true, t.timeoutError()
		}
	}
	return nil, false, nil
}

// handle applies one event. done reports that the turn is over.
func (t *turn) handle(ev entities.ResponseEvent, ok bool, conversation *entities.ConversationContext) (*Outcome, bool, error) {
	if !ok {
		ev = entities.StreamEnd{}
	}

	switch e := ev.(type) {
	case entities.DialogState:
		t.applyDialogState(e)

	case entities.AudioChunk:
		if !t.audioStarted {
			// a tick that is already pending can no longer be observed
			t.audioStarted = true
			t.firstAudio = time.Since(t.sentAt)
			t.timer.Stop()
			t.timeout = nil
		}
		if err := t.capture.Append(e.Data); err != nil {
			return nil, true, fmt.Errorf("%w: %w", entities.ErrAudioCapture, err)
		}

	case entities.StreamEnd:
		t.session.logger.Info("Assist conversation ended")
		outcome, err := t.finish(conversation)
		return outcome, true, err

	case entities.StreamError:
		cause := e.Err
		if cause == nil {
			cause = errors.New("stream failed")
		}
		return nil, true, fmt.Errorf("%w: %w", entities.ErrTransport, cause)
	}
	return nil, false, nil
}

func (t *turn) timeoutError() error {
	return fmt.Errorf("%w after %s", entities.ErrTimeout, t.session.config.Timeout)
}

func (t *turn) aborted(ctx context.Context) error {
	return fmt.Errorf("assist turn aborted: %w", ctx.Err())
}

func (t *turn) applyDialogState(e entities.DialogState) {
	logger := t.session.logger
	logger.Debug("Dialog state out received")

	if e.DisplayText != "" {
		t.displayText = e.DisplayText
		logger.Info("Supplemental text received", zap.String("text", e.DisplayText))
	}
	if e.MicrophoneMode != entities.MicrophoneUnspecified {
		t.microphoneMode = e.MicrophoneMode
		logger.Info("Microphone mode received", zap.Stringer("mode", e.MicrophoneMode))
	}
	if len(e.ConversationState) > 0 {
		t.state = e.ConversationState
	}
}

func (t *turn) finish(conversation *entities.ConversationContext) (*Outcome, error) {
	n, err := t.capture.Finalize()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", entities.ErrAudioCapture, err)
	}

	t.session.logger.Info("Response audio captured", zap.Int64("bytes", n))
	if n == 0 {
		return nil, entities.ErrNoAudio
	}

	if conversation != nil && conversation.Advance(t.state, t.started) {
		t.session.logger.Debug("Conversation state changed")
	}

	return &Outcome{
		Audio:          Audio{Path: t.path, Bytes: n},
		DisplayText:    t.displayText,
		MicrophoneMode: t.microphoneMode,
		FirstAudio:     t.firstAudio,
		Dropped:        t.capture.Dropped(),
	}, nil
}

func (t *turn) discard() {
	t.capture.Close()
	if err := os.Remove(t.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		t.session.logger.Warn("Failed to remove response audio", zap.String("path", t.path), zap.Error(err))
	}
}
