package lame

import (
	"fmt"
	"io"

	golame "github.com/viert/go-lame"

	"github.com/satriahrh/assistbridge/server/internal/transcode"
)

// Quality is the LAME algorithm quality (0 best, 9 fastest)
const Quality = 5

// Encoder wraps a LAME encoder in the transcode encoder contract
type Encoder struct {
	enc *golame.Encoder
	out *recordingWriter
}

// recordingWriter keeps the first write error. go-lame buffers its output and
// drops the error of the final buffer flush, so Close reads it from here.
type recordingWriter struct {
	w   io.Writer
	err error
}

func (r *recordingWriter) Write(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	n, err := r.w.Write(p)
	if err != nil {
		r.err = err
	}
	return n, err
}

// NewEncoder creates an MP3 encoder writing frames to dst. It satisfies
// transcode.EncoderFactory.
func NewEncoder(dst io.Writer, format transcode.Format) (transcode.Encoder, error) {
	out := &recordingWriter{w: dst}
	enc := golame.NewEncoder(out)

	if err := enc.SetInSamplerate(format.InSampleRate); err != nil {
		enc.Close()
		return nil, fmt.Errorf("failed to set input sample rate: %w", err)
	}
	if err := enc.SetNumChannels(format.InChannels); err != nil {
		enc.Close()
		return nil, fmt.Errorf("failed to set channel count: %w", err)
	}
	if err := enc.SetBrate(format.BitRate); err != nil {
		enc.Close()
		return nil, fmt.Errorf("failed to set bit rate: %w", err)
	}
	if err := enc.SetMode(mpegMode(format.Mode)); err != nil {
		enc.Close()
		return nil, fmt.Errorf("failed to set channel mode: %w", err)
	}
	if err := enc.SetQuality(Quality); err != nil {
		enc.Close()
		return nil, fmt.Errorf("failed to set quality: %w", err)
	}

	return &Encoder{enc: enc, out: out}, nil
}

func mpegMode(m transcode.ChannelMode) golame.MpegMode {
	switch m {
	case transcode.Stereo:
		return golame.MpegStereo
	case transcode.Mono:
		return golame.MpegMono
	default:
		return golame.MpegJointStereo
	}
}

// Write encodes interleaved signed 16-bit little-endian PCM
func (e *Encoder) Write(p []byte) (int, error) {
	return e.enc.Write(p)
}

// Close flushes the remaining frames to the destination and releases the
// encoder. A failure to write the trailing frames is returned here; inside a
// transcode pipeline it usually surfaces first as the pipeline's cancellation.
func (e *Encoder) Close() error {
	e.enc.Close()
	if e.out.err != nil {
		return fmt.Errorf("failed to write trailing frames: %w", e.out.err)
	}
	return nil
}
