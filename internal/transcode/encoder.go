package transcode

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// ChannelMode is the MP3 channel mode
type ChannelMode int

const (
	JointStereo ChannelMode = iota
	Stereo
	Mono
)

func (m ChannelMode) String() string {
	switch m {
	case Stereo:
		return "stereo"
	case Mono:
		return "mono"
	default:
		return "joint_stereo"
	}
}

// ParseChannelMode parses the names produced by ChannelMode.String
func ParseChannelMode(s string) (ChannelMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "joint_stereo", "jointstereo":
		return JointStereo, nil
	case "stereo":
		return Stereo, nil
	case "mono":
		return Mono, nil
	}
	return JointStereo, fmt.Errorf("unknown channel mode %q", s)
}

var errEncoderClosed = errors.New("encoder already closed")

// Format describes the PCM input and the MP3 output of an encoder
type Format struct {
	InSampleRate int
	InChannels   int
	BitRate      int // kbps
	Mode         ChannelMode
}

// DefaultFormat is 16 kHz mono PCM in, 48 kbps joint stereo MP3 out
var DefaultFormat = Format{
	InSampleRate: 16000,
	InChannels:   1,
	BitRate:      48,
	Mode:         JointStereo,
}

// Encoder consumes raw PCM through Write. Close flushes the trailing frames
// to the destination the encoder was created with and releases the encoder;
// it is called exactly once, also when the flow is aborted.
type Encoder interface {
	io.Writer
	Close() error
}

// EncoderFactory creates an encoder writing compressed frames to dst
type EncoderFactory func(dst io.Writer, format Format) (Encoder, error)

// emitWriter forwards encoder output to the next stage. Once muted it
// swallows everything, so an aborted encoder can be closed safely.
type emitWriter struct {
	emit  Emit
	muted bool
}

func (w *emitWriter) Write(p []byte) (int, error) {
	if len(p) == 0 || w.muted {
		return len(p), nil
	}
	chunk := make([]byte, len(p))
	copy(chunk, p)
	if err := w.emit(chunk); err != nil {
		return 0, err
	}
	return len(p), nil
}

type encoderStage struct {
	factory EncoderFactory
	format  Format
	writer  *emitWriter
	encoder Encoder
	closed  bool
}

// NewEncoderStage adapts an encoder to the stage contract. The encoder is
// created on first use.
func NewEncoderStage(factory EncoderFactory, format Format) Stage {
	return &encoderStage{
		factory: factory,
		format:  format,
		writer:  &emitWriter{},
	}
}

func (s *encoderStage) Name() string { return "encoder" }

func (s *encoderStage) open(emit Emit) error {
	s.writer.emit = emit
	if s.closed {
		return errEncoderClosed
	}
	if s.encoder != nil {
		return nil
	}

	enc, err := s.factory(s.writer, s.format)
	if err != nil {
		return fmt.Errorf("failed to create encoder: %w", err)
	}
	s.encoder = enc
	return nil
}

func (s *encoderStage) Process(chunk []byte, emit Emit) error {
	if err := s.open(emit); err != nil {
		return err
	}
	if _, err := s.encoder.Write(chunk); err != nil {
		return fmt.Errorf("failed to encode: %w", err)
	}
	return nil
}

func (s *encoderStage) Finish(emit Emit) error {
	if err := s.open(emit); err != nil {
		return err
	}
	s.closed = true
	if err := s.encoder.Close(); err != nil {
		return fmt.Errorf("failed to close encoder: %w", err)
	}
	return nil
}

// Abort closes the encoder with its output discarded
func (s *encoderStage) Abort(error) {
	if s.closed {
		return
	}
	s.closed = true
	if s.encoder == nil {
		return
	}
	s.writer.muted = true
	_ = s.encoder.Close()
}
