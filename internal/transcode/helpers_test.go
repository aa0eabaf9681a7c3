package transcode

import (
	"bytes"
	"errors"
	"io"
)

var (
	fakeHeader  = []byte("HDR")
	fakeTrailer = []byte("END")
)

// fakeEncoder frames PCM between a header and a trailer. The trailer is only
// written by Close, the way a real encoder flushes its last frames.
type fakeEncoder struct {
	dst      io.Writer
	wrote    bool
	writeErr error
	closeErr error
	closed   bool
}

func (e *fakeEncoder) Write(p []byte) (int, error) {
	if e.writeErr != nil {
		return 0, e.writeErr
	}
	if !e.wrote {
		e.wrote = true
		if _, err := e.dst.Write(fakeHeader); err != nil {
			return 0, err
		}
	}
	return e.dst.Write(p)
}

func (e *fakeEncoder) Close() error {
	e.closed = true
	if e.closeErr != nil {
		return e.closeErr
	}
	_, err := e.dst.Write(fakeTrailer)
	return err
}

type fakeFactory struct {
	writeErr   error
	closeErr   error
	factoryErr error
	format     Format
	encoders   []*fakeEncoder
}

func (f *fakeFactory) New(dst io.Writer, format Format) (Encoder, error) {
	if f.factoryErr != nil {
		return nil, f.factoryErr
	}
	f.format = format
	enc := &fakeEncoder{dst: dst, writeErr: f.writeErr, closeErr: f.closeErr}
	f.encoders = append(f.encoders, enc)
	return enc, nil
}

// identity passes chunks through unchanged
type identity struct{}

func (identity) Name() string                          { return "identity" }
func (identity) Process(chunk []byte, emit Emit) error { return emit(chunk) }
func (identity) Finish(Emit) error                     { return nil }
func (identity) Abort(error)                           {}

type failingStage struct {
	err error
}

func (f failingStage) Name() string               { return "failing" }
func (f failingStage) Process([]byte, Emit) error { return f.err }
func (f failingStage) Finish(Emit) error          { return nil }
func (f failingStage) Abort(error)                {}

// recordingStage passes chunks through and remembers how it was terminated
type recordingStage struct {
	finished bool
	aborts   int
	cause    error
}

func (r *recordingStage) Name() string                          { return "recording" }
func (r *recordingStage) Process(chunk []byte, emit Emit) error { return emit(chunk) }
func (r *recordingStage) Finish(Emit) error {
	r.finished = true
	return nil
}
func (r *recordingStage) Abort(err error) {
	r.aborts++
	r.cause = err
}

var errBoom = errors.New("boom")

func framed(body []byte) []byte {
	return bytes.Join([][]byte{fakeHeader, body, fakeTrailer}, nil)
}
