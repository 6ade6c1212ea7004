package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/smazurov/camrelay/internal/camera"
	"github.com/smazurov/camrelay/internal/events"
	"github.com/smazurov/camrelay/internal/ffmpeg"
	"github.com/smazurov/camrelay/internal/metrics"
	"github.com/smazurov/camrelay/internal/mjpeg"
	"github.com/smazurov/camrelay/internal/transcoder"
)

// Reasons a stream ended.
const (
	EndCompleted   = "completed"
	EndClientAbort = "client_abort"
	EndError       = "error"
)

// ErrStreamUsed is returned by Run on a stream that already ran or was closed.
var ErrStreamUsed = errors.New("stream already consumed")

// Stream is one live transcoder session owned by a single client.
type Stream struct {
	id      string
	svc     *Service
	proc    *transcoder.Process
	src     camera.Source
	logger  *slog.Logger
	started time.Time

	used   atomic.Bool
	frames atomic.Int64
	bytes  atomic.Int64
}

// OpenStream spawns a continuous-mode transcoder. Spawn failures are
// returned here, before the caller has committed to a response.
func (s *Service) OpenStream(ctx context.Context) (*Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	src := s.Source()
	logger := s.logger.With("stream_id", id, "source", src)

	proc, err := s.start(ffmpeg.ModeContinuous, src)
	if err != nil {
		logger.Error("Failed to start stream transcoder", "error", err)
		metrics.StreamFailedToStart()
		s.opts.EventBus.Publish(events.StreamEndedEvent{
			StreamID:  id,
			Reason:    EndError,
			Error:     err.Error(),
			Timestamp: time.Now().Format(time.RFC3339),
		})
		return nil, &StreamError{ID: id, ExitCode: -1, Source: src.Details(), Err: err}
	}

	st := &Stream{
		id:      id,
		svc:     s,
		proc:    proc,
		src:     src,
		logger:  logger,
		started: time.Now(),
	}

	metrics.StreamOpened()
	s.opts.EventBus.Publish(events.StreamStartedEvent{
		StreamID:  id,
		Timestamp: st.started.Format(time.RFC3339),
	})
	logger.Info("Stream started", "pid", proc.PID())
	return st, nil
}

// ID returns the stream session identifier.
func (st *Stream) ID() string {
	return st.id
}

// Source returns the redacted descriptor of the camera being relayed.
func (st *Stream) Source() camera.Details {
	return st.src.Details()
}

// Frames returns the number of frames handed to the sink so far.
func (st *Stream) Frames() int64 {
	return st.frames.Load()
}

// Run forwards frames to sink in the order the transcoder produced them.
// It returns nil when the client went away (ctx cancelled or sink failed)
// or the transcoder finished cleanly, and *StreamError otherwise. The
// transcoder has been terminated when Run returns. Run may be called once.
func (st *Stream) Run(ctx context.Context, sink func(mjpeg.Frame) error) error {
	if !st.used.CompareAndSwap(false, true) {
		return ErrStreamUsed
	}

	stop := context.AfterFunc(ctx, st.proc.Terminate)
	defer stop()

	scanner := mjpeg.NewScanner(st.proc.Stdout(), mjpeg.WithMaxFrameSize(st.svc.opts.MaxFrameSize))
	reported := 0
	for scanner.Next() {
		frame := scanner.Frame()
		if n := scanner.Overflows(); n > reported {
			metrics.RecordOverflow(n - reported)
			st.logger.Warn("Discarded oversized partial frame", "max_frame_size", st.svc.opts.MaxFrameSize)
			reported = n
		}
		if err := sink(frame); err != nil {
			st.logger.Debug("Stream sink failed", "error", err)
			st.proc.Terminate()
			st.end(EndClientAbort, scanner.Buffered(), nil)
			return nil
		}
		st.frames.Add(1)
		st.bytes.Add(int64(len(frame)))
		metrics.RecordFrame(len(frame))
	}

	if ctx.Err() != nil {
		st.proc.Terminate()
		st.end(EndClientAbort, scanner.Buffered(), nil)
		return nil
	}

	// stdout hit EOF; give the process a moment to report its exit status.
	select {
	case <-st.proc.Done():
	case <-time.After(st.svc.opts.GracefulTimeout):
	}
	st.proc.Terminate()

	code, waitErr := st.proc.Wait()
	var err error
	switch {
	case scanner.Err() != nil:
		err = fmt.Errorf("read transcoder output: %w", scanner.Err())
	case waitErr != nil:
		err = waitErr
	}
	if err == nil {
		st.end(EndCompleted, scanner.Buffered(), nil)
		return nil
	}

	streamErr := &StreamError{
		ID:       st.id,
		ExitCode: code,
		Stderr:   tail(st.proc.Stderr(), maxErrorStderr),
		Source:   st.src.Details(),
		Frames:   st.frames.Load(),
		Err:      err,
	}
	st.end(EndError, scanner.Buffered(), streamErr)
	return streamErr
}

// Close terminates a stream that will not be run. It is a no-op after Run.
func (st *Stream) Close() {
	if !st.used.CompareAndSwap(false, true) {
		return
	}
	st.proc.Terminate()
	st.end(EndClientAbort, 0, nil)
}

// end records the session outcome. partial is the size of a trailing
// frame the transcoder never finished.
func (st *Stream) end(reason string, partial int, err error) {
	elapsed := time.Since(st.started)
	frames, bytes := st.frames.Load(), st.bytes.Load()

	metrics.StreamClosed(reason)
	ev := events.StreamEndedEvent{
		StreamID:   st.id,
		Reason:     reason,
		Frames:     frames,
		Bytes:      bytes,
		DurationMs: elapsed.Milliseconds(),
		Timestamp:  time.Now().Format(time.RFC3339),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	st.svc.opts.EventBus.Publish(ev)

	attrs := []any{
		"reason", reason,
		"frames", frames,
		"bytes", bytes,
		"duration", elapsed.Round(time.Millisecond),
	}
	if partial > 0 {
		attrs = append(attrs, "partial_bytes", partial)
	}
	if err != nil {
		st.logger.Error("Stream ended", append(attrs, "error", err)...)
		return
	}
	st.logger.Info("Stream ended", attrs...)
}
