package transcode

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/assistbridge/server/domain/entities"
)

// ContentType of the files produced by Transcoder
const ContentType = "audio/mpeg"

// Config holds the transcoding parameters
type Config struct {
	Gain   float64
	Format Format
}

// DefaultConfig returns the reference transcoding parameters
func DefaultConfig() Config {
	return Config{
		Gain:   DefaultGain,
		Format: DefaultFormat,
	}
}

// Transcoder turns a captured PCM file into an MP3 file next to it
type Transcoder struct {
	factory EncoderFactory
	config  Config
	logger  *zap.Logger
}

// NewTranscoder creates a new transcoder
func NewTranscoder(factory EncoderFactory, config Config, logger *zap.Logger) *Transcoder {
	if config.Gain == 0 {
		config.Gain = DefaultGain
	}
	if config.Format.InSampleRate == 0 {
		config.Format = DefaultFormat
	}
	return &Transcoder{
		factory: factory,
		config:  config,
		logger:  logger,
	}
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// Transcode encodes pcmPath. The result is only visible under its final name
// once the encoder has flushed and the file is synced and closed; on failure
// no partial output is left behind.
func (t *Transcoder) Transcode(ctx context.Context, pcmPath string) (entities.EncodedAudio, error) {
	start := time.Now()
	finalPath := strings.TrimSuffix(pcmPath, filepath.Ext(pcmPath)) + ".mp3"
	partPath := finalPath + ".part"

	size, err := t.encode(ctx, pcmPath, partPath)
	if err == nil {
		err = os.Rename(partPath, finalPath)
	}
	if err != nil {
		if rmErr := os.Remove(partPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			t.logger.Warn("Failed to remove partial output", zap.String("path", partPath), zap.Error(rmErr))
		}
		t.logger.Error("Transcoding failed", zap.String("source", pcmPath), zap.Error(err))
		return entities.EncodedAudio{}, fmt.Errorf("%w: %w", entities.ErrEncodePipeline, err)
	}

	t.logger.Info("Transcoding complete",
		zap.String("path", finalPath),
		zap.Int64("bytes", size),
		zap.Duration("duration", time.Since(start)))

	return entities.EncodedAudio{
		Path:        finalPath,
		Bytes:       size,
		ContentType: ContentType,
	}, nil
}

func (t *Transcoder) encode(ctx context.Context, srcPath, dstPath string) (int64, error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open source: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(dstPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create destination: %w", err)
	}

	bw := bufio.NewWriter(dst)
	counter := &countingWriter{w: bw}

	err = Run(ctx, src, counter,
		NewGain(t.config.Gain),
		NewEncoderStage(t.factory, t.config.Format),
	)
	if err == nil {
		err = bw.Flush()
	}
	if err == nil {
		err = dst.Sync()
	}
	if closeErr := dst.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close destination: %w", closeErr)
	}
	return counter.n, err
}
