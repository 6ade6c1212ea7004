package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/smazurov/camrelay/internal/events"
	"github.com/smazurov/camrelay/internal/ffmpeg"
	"github.com/smazurov/camrelay/internal/metrics"
	"github.com/smazurov/camrelay/internal/transcoder"
)

// Snapshot is one captured JPEG frame.
type Snapshot struct {
	ID        string
	Image     []byte
	Size      int
	Timestamp time.Time
	Duration  time.Duration
}

// Capture spawns a single-frame transcoder and returns its complete stdout.
// The transcoder is always terminated before Capture returns. Failures are
// returned as *CaptureError.
func (s *Service) Capture(ctx context.Context) (*Snapshot, error) {
	id := uuid.NewString()
	src := s.Source()
	started := time.Now()
	logger := s.logger.With("capture_id", id, "source", src)

	fail := func(err error, code int, stderr string) error {
		capErr := &CaptureError{
			ID:       id,
			Reason:   failureReason(err),
			ExitCode: code,
			Stderr:   tail(stderr, maxErrorStderr),
			Source:   src.Details(),
			Err:      err,
		}
		metrics.RecordCapture(capErr.Reason, time.Since(started))
		s.opts.EventBus.Publish(events.CaptureErrorEvent{
			CaptureID: id,
			Reason:    capErr.Reason,
			Error:     err.Error(),
			ExitCode:  code,
			Timestamp: time.Now().Format(time.RFC3339),
		})
		logger.Warn("Frame capture failed", "reason", capErr.Reason, "exit_code", code, "error", err)
		return capErr
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	proc, err := s.start(ffmpeg.ModeSingleFrame, src)
	if err != nil {
		return nil, fail(err, -1, "")
	}
	defer proc.Terminate()

	captureCtx, cancel := context.WithTimeout(ctx, s.opts.CaptureTimeout)
	defer cancel()
	stop := context.AfterFunc(captureCtx, proc.Terminate)
	defer stop()

	image, readErr := io.ReadAll(proc.Stdout())
	code, waitErr := proc.Wait()
	elapsed := time.Since(started)

	// A process that exited on its own with output wins over a deadline
	// that fired concurrently.
	if waitErr == nil && readErr == nil && len(image) > 0 && proc.State() == transcoder.StateExited {
		snap := &Snapshot{
			ID:        id,
			Image:     image,
			Size:      len(image),
			Timestamp: time.Now(),
			Duration:  elapsed,
		}
		metrics.RecordCapture(metrics.ResultSuccess, elapsed)
		s.opts.EventBus.Publish(events.CaptureSuccessEvent{
			CaptureID:  id,
			Size:       snap.Size,
			DurationMs: elapsed.Milliseconds(),
			Timestamp:  snap.Timestamp.Format(time.RFC3339),
		})
		logger.Info("Frame captured", "size", snap.Size, "duration", elapsed.Round(time.Millisecond))
		return snap, nil
	}

	if ctx.Err() != nil {
		// Caller went away; nobody is waiting for a failure body.
		logger.Debug("Frame capture cancelled", "error", ctx.Err())
		return nil, ctx.Err()
	}
	if captureCtx.Err() != nil {
		return nil, fail(fmt.Errorf("%w after %s", ErrTimeout, s.opts.CaptureTimeout), code, proc.Stderr())
	}
	if waitErr != nil {
		return nil, fail(waitErr, code, proc.Stderr())
	}
	if readErr != nil && !errors.Is(readErr, io.EOF) {
		return nil, fail(fmt.Errorf("read transcoder output: %w", readErr), code, proc.Stderr())
	}
	return nil, fail(ErrNoOutput, code, proc.Stderr())
}
