package relay

import (
	"errors"
	"fmt"

	"github.com/smazurov/camrelay/internal/camera"
)

var (
	// ErrTimeout is returned when a capture does not finish within the
	// capture timeout. The transcoder has been terminated.
	ErrTimeout = errors.New("frame capture timed out")

	// ErrNoOutput is returned when the transcoder exited cleanly without
	// writing any bytes.
	ErrNoOutput = errors.New("transcoder exited without producing a frame")
)

// maxErrorStderr bounds the diagnostic tail attached to errors.
const maxErrorStderr = 4096

// CaptureError describes a failed capture. It wraps ErrTimeout,
// ErrNoOutput, *transcoder.SpawnError or *transcoder.ExitError.
type CaptureError struct {
	ID       string
	Reason   string // one of the metrics.Result* values
	ExitCode int    // -1 if the process never exited on its own
	Stderr   string // redacted
	Source   camera.Details
	Err      error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture %s: %v", e.ID, e.Err)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

// StreamError describes a live stream that failed to start or ended
// abnormally. It wraps *transcoder.SpawnError, *transcoder.ExitError or
// the stdout read error.
type StreamError struct {
	ID       string
	ExitCode int
	Stderr   string // redacted
	Source   camera.Details
	Frames   int64 // frames delivered before the failure
	Err      error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream %s: %v", e.ID, e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
