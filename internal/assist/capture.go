package assist

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
)

// CaptureLimit converts a maximum playable duration into a byte budget
// (seconds x bits per sample x samples per second / 8).
func CaptureLimit(duration time.Duration, bitsPerSample, sampleRate int) int64 {
	seconds := int64(duration / time.Second)
	return seconds * int64(bitsPerSample) * int64(sampleRate) / 8
}

// Capture accumulates streamed audio into a sink without exceeding a byte budget.
// Once a chunk does not fit, it and every later chunk are discarded, so the
// captured bytes are always a prefix of the stream.
type Capture struct {
	sink     io.WriteCloser
	buf      *bufio.Writer
	capacity int64
	written  int64
	dropped  int64
	full     bool
	closed   bool
	logger   *zap.Logger
}

// NewCapture creates a capture writing into sink
func NewCapture(sink io.WriteCloser, capacity int64, logger *zap.Logger) *Capture {
	return &Capture{
		sink:     sink,
		buf:      bufio.NewWriterSize(sink, 32*1024),
		capacity: capacity,
		logger:   logger,
	}
}

// Append stores chunk if it fits within the remaining budget
func (c *Capture) Append(chunk []byte) error {
	if c.closed {
		return fmt.Errorf("capture already finalized")
	}

	if c.full || c.written+int64(len(chunk)) > c.capacity {
		if !c.full {
			c.full = true
			c.logger.Info("Ignoring audio data beyond capture limit",
				zap.Int64("capacity", c.capacity),
				zap.Int64("written", c.written))
		}
		c.dropped += int64(len(chunk))
		return nil
	}

	n, err := c.buf.Write(chunk)
	c.written += int64(n)
	if err != nil {
		return fmt.Errorf("failed to write audio chunk: %w", err)
	}
	return nil
}

// Written returns the number of bytes kept so far
func (c *Capture) Written() int64 {
	return c.written
}

// Dropped returns the number of bytes discarded by the limit
func (c *Capture) Dropped() int64 {
	return c.dropped
}

// Finalize flushes and closes the sink and returns the captured byte count
func (c *Capture) Finalize() (int64, error) {
	if c.closed {
		return c.written, nil
	}
	c.closed = true

	flushErr := c.buf.Flush()
	closeErr := c.sink.Close()
	if flushErr != nil {
		return c.written, fmt.Errorf("failed to flush audio: %w", flushErr)
	}
	if closeErr != nil {
		return c.written, fmt.Errorf("failed to close audio sink: %w", closeErr)
	}

	if c.dropped > 0 {
		c.logger.Info("Audio capture truncated",
			zap.Int64("written", c.written),
			zap.Int64("dropped", c.dropped))
	}
	return c.written, nil
}

// Close releases the sink without reporting errors. It is a no-op after Finalize.
func (c *Capture) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.sink.Close()
}
