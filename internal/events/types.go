package events

import "github.com/smazurov/camrelay/internal/camera"

// Event type constants for kelindar/event.
const (
	TypeCaptureSuccess uint32 = iota + 1
	TypeCaptureError
	TypeStreamStarted
	TypeStreamEnded
	TypeTranscoderExited
	TypeSourceChanged
	TypeLogEntry
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// CaptureSuccessEvent is published after a frame was captured.
type CaptureSuccessEvent struct {
	CaptureID  string `json:"capture_id" doc:"Capture identifier"`
	Size       int    `json:"size" example:"48213" doc:"JPEG size in bytes"`
	DurationMs int64  `json:"duration_ms" example:"812" doc:"Time from spawn to frame"`
	Timestamp  string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Capture timestamp"`
}

// Type returns the event type identifier for CaptureSuccessEvent.
func (e CaptureSuccessEvent) Type() uint32 { return TypeCaptureSuccess }

// CaptureErrorEvent is published when a capture fails.
type CaptureErrorEvent struct {
	CaptureID string `json:"capture_id" doc:"Capture identifier"`
	Reason    string `json:"reason" example:"timeout" doc:"Failure class: spawn, exit, timeout, no_output"`
	Error     string `json:"error" example:"Capture timed out" doc:"Error description with credentials masked"`
	ExitCode  int    `json:"exit_code,omitempty" example:"1" doc:"Transcoder exit code, when it exited"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Error timestamp"`
}

// Type returns the event type identifier for CaptureErrorEvent.
func (e CaptureErrorEvent) Type() uint32 { return TypeCaptureError }

// StreamStartedEvent is published when a live stream's transcoder is up.
type StreamStartedEvent struct {
	StreamID  string `json:"stream_id" doc:"Stream session identifier"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Start timestamp"`
}

// Type returns the event type identifier for StreamStartedEvent.
func (e StreamStartedEvent) Type() uint32 { return TypeStreamStarted }

// StreamEndedEvent is published once per stream session.
type StreamEndedEvent struct {
	StreamID   string `json:"stream_id" doc:"Stream session identifier"`
	Reason     string `json:"reason" example:"client_abort" doc:"client_abort, completed or error"`
	Error      string `json:"error,omitempty" doc:"Error description for reason=error"`
	Frames     int64  `json:"frames" example:"450" doc:"Frames delivered to the client"`
	Bytes      int64  `json:"bytes" example:"9437184" doc:"JPEG bytes delivered to the client"`
	DurationMs int64  `json:"duration_ms" example:"30000" doc:"Session duration"`
	Timestamp  string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"End timestamp"`
}

// Type returns the event type identifier for StreamEndedEvent.
func (e StreamEndedEvent) Type() uint32 { return TypeStreamEnded }

// TranscoderExitedEvent is published whenever a transcoder process ends.
type TranscoderExitedEvent struct {
	ProcessID string `json:"process_id" doc:"Transcoder process identifier"`
	Mode      string `json:"mode" example:"continuous" doc:"single or continuous"`
	State     string `json:"state" example:"killed" doc:"exited or killed"`
	ExitCode  int    `json:"exit_code" example:"0" doc:"Exit code, 128+signal when signalled"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Exit timestamp"`
}

// Type returns the event type identifier for TranscoderExitedEvent.
func (e TranscoderExitedEvent) Type() uint32 { return TypeTranscoderExited }

// SourceChangedEvent is published when the camera configuration is reloaded.
type SourceChangedEvent struct {
	Source    camera.Details `json:"source" doc:"New camera source with credentials masked"`
	Timestamp string         `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Reload timestamp"`
}

// Type returns the event type identifier for SourceChangedEvent.
func (e SourceChangedEvent) Type() uint32 { return TypeSourceChanged }

// LogEntryEvent represents a log entry for SSE streaming.
type LogEntryEvent struct {
	Seq        uint64         `json:"seq" example:"42" doc:"Monotonic sequence number for deduplication"`
	Timestamp  string         `json:"timestamp" example:"2025-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"relay" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }
