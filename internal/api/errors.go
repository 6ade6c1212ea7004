package api

import (
	"errors"
	"net/http"

	"github.com/smazurov/camrelay/internal/camera"
	"github.com/smazurov/camrelay/internal/relay"
	"github.com/smazurov/camrelay/internal/transcoder"
)

// Error messages returned to clients.
const (
	msgCaptureFailed  = "Failed to capture frame"
	msgCaptureTimeout = "Frame capture timeout"
	msgStreamFailed   = "Failed to start MJPEG stream"
)

// ErrorDetails is the diagnostic part of a relay failure body.
type ErrorDetails struct {
	Reason   string         `json:"reason" example:"exit" doc:"Failure class: spawn, exit, timeout, no_output"`
	Message  string         `json:"message,omitempty" doc:"Underlying error with credentials masked"`
	ExitCode *int           `json:"exit_code,omitempty" example:"1" doc:"Transcoder exit code, when it exited"`
	Stderr   string         `json:"stderr,omitempty" doc:"Tail of transcoder diagnostics with credentials masked"`
	Source   camera.Details `json:"source" doc:"Camera the request was served from"`
}

// RelayError is the {success:false, error, details} body of a failed
// capture or stream setup. It implements huma.StatusError.
type RelayError struct {
	status  int
	Success bool         `json:"success" example:"false"`
	Message string       `json:"error" example:"Failed to capture frame"`
	Details ErrorDetails `json:"details"`
}

func (e *RelayError) Error() string {
	return e.Message
}

// GetStatus implements huma.StatusError.
func (e *RelayError) GetStatus() int {
	return e.status
}

// captureError maps a relay capture failure to its response.
func captureError(err error) *RelayError {
	var capErr *relay.CaptureError
	if !errors.As(err, &capErr) {
		return &RelayError{
			status:  http.StatusInternalServerError,
			Message: msgCaptureFailed,
			Details: ErrorDetails{Reason: "internal", Message: camera.Redact(err.Error())},
		}
	}

	re := &RelayError{
		status:  http.StatusInternalServerError,
		Message: msgCaptureFailed,
		Details: ErrorDetails{
			Reason:  capErr.Reason,
			Message: camera.Redact(capErr.Err.Error()),
			Stderr:  capErr.Stderr,
			Source:  capErr.Source,
		},
	}
	if capErr.ExitCode >= 0 {
		code := capErr.ExitCode
		re.Details.ExitCode = &code
	}
	if errors.Is(err, relay.ErrTimeout) {
		re.status = http.StatusRequestTimeout
		re.Message = msgCaptureTimeout
	}
	return re
}

// streamError maps a stream setup failure to its response.
func streamError(err error) *RelayError {
	re := &RelayError{
		status:  http.StatusInternalServerError,
		Message: msgStreamFailed,
		Details: ErrorDetails{Reason: "exit", Message: camera.Redact(err.Error())},
	}

	var spawnErr *transcoder.SpawnError
	if errors.As(err, &spawnErr) {
		re.Details.Reason = "spawn"
	}

	var streamErr *relay.StreamError
	if errors.As(err, &streamErr) {
		re.Details.Message = camera.Redact(streamErr.Err.Error())
		re.Details.Stderr = streamErr.Stderr
		re.Details.Source = streamErr.Source
		if streamErr.ExitCode >= 0 {
			code := streamErr.ExitCode
			re.Details.ExitCode = &code
		}
	}
	return re
}
