package transcode

import (
	"context"
	"errors"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"
)

const (
	readChunkSize = 16 * 1024
	queueDepth    = 4
)

// Run streams src through stages into dst. Every step runs in its own
// goroutine connected by bounded channels, so a slow step holds back the
// ones before it. The first failure cancels the rest and is returned.
func Run(ctx context.Context, src io.Reader, dst io.Writer, stages ...Stage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	in := make(chan []byte, queueDepth)
	source := in
	g.Go(func() error {
		return readSource(ctx, src, source)
	})

	for _, stage := range stages {
		out := make(chan []byte, queueDepth)
		stageIn := in
		g.Go(func() error {
			return runStage(ctx, stage, stageIn, out)
		})
		in = out
	}

	last := in
	g.Go(func() error {
		return writeSink(ctx, last, dst)
	})

	return g.Wait()
}

// readSource closes out only after a clean end of input, so a read failure
// never lets the stages finish normally.
func readSource(ctx context.Context, src io.Reader, out chan<- []byte) error {
	for {
		buf := make([]byte, readChunkSize)
		n, err := src.Read(buf)
		if n > 0 {
			select {
			case out <- buf[:n]:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if errors.Is(err, io.EOF) {
			close(out)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read source: %w", err)
		}
	}
}

// runStage aborts the stage on every exit that does not reach Finish.
func runStage(ctx context.Context, stage Stage, in <-chan []byte, out chan<- []byte) (err error) {
	finishing := false
	defer func() {
		if !finishing {
			cause := err
			if cause == nil {
				cause = ctx.Err()
			}
			stage.Abort(cause)
		}
	}()

	emit := func(chunk []byte) error {
		if len(chunk) == 0 {
			return nil
		}
		select {
		case out <- chunk:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case chunk, ok := <-in:
			if !ok {
				finishing = true
				if err := stage.Finish(emit); err != nil {
					return fmt.Errorf("%s stage: %w", stage.Name(), err)
				}
				close(out)
				return nil
			}
			if err := stage.Process(chunk, emit); err != nil {
				return fmt.Errorf("%s stage: %w", stage.Name(), err)
			}
		}
	}
}

func writeSink(ctx context.Context, in <-chan []byte, dst io.Writer) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case chunk, ok := <-in:
			if !ok {
				return nil
			}
			if _, err := dst.Write(chunk); err != nil {
				return fmt.Errorf("failed to write destination: %w", err)
			}
		}
	}
}
