package events

import (
	"sync/atomic"
	"time"

	"github.com/smazurov/camrelay/internal/logging"
)

// LogForwarder returns a logging callback that republishes every log entry
// as a LogEntryEvent with a monotonic sequence number.
func LogForwarder(bus *Bus) logging.LogCallback {
	var seq atomic.Uint64
	return func(entry logging.LogEntry) {
		bus.Publish(LogEntryEvent{
			Seq:        seq.Add(1),
			Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
			Level:      entry.Level,
			Module:     entry.Module,
			Message:    entry.Message,
			Attributes: entry.Attributes,
		})
	}
}
