package logging

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"
)

// LogCallback receives every entry written to the buffer.
type LogCallback func(entry LogEntry)

// defaultModule labels records logged without a module attribute.
const defaultModule = "app"

// BufferHandler turns records into LogEntry values for the ring buffer and
// the registered callback. Records are dropped until Initialize has run.
type BufferHandler struct {
	level slog.Leveler
	scope scope
}

// NewBufferHandler creates a buffer handler.
func NewBufferHandler(level slog.Leveler) *BufferHandler {
	return &BufferHandler{level: level}
}

// Enabled implements slog.Handler.
func (h *BufferHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *BufferHandler) Handle(_ context.Context, r slog.Record) error {
	buffer, callback := std.sink()
	if buffer == nil && callback == nil {
		return nil
	}
	redact := currentRedactor()

	entry := LogEntry{
		Timestamp:  r.Time,
		Level:      levelName(r.Level),
		Module:     defaultModule,
		Message:    redact(r.Message),
		Attributes: make(map[string]any),
	}
	h.scope.walk(r, func(path []string, a slog.Attr) {
		if len(path) == 0 && a.Key == "module" {
			entry.Module = a.Value.String()
			return
		}
		entry.Attributes[dotted(path, a.Key)] = entryValue(a.Value, redact)
	})

	if buffer != nil {
		buffer.Push(entry)
	}
	if callback != nil {
		callback(entry)
	}
	return nil
}

// WithAttrs implements slog.Handler.
func (h *BufferHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &BufferHandler{level: h.level, scope: h.scope.with(attrs)}
}

// WithGroup implements slog.Handler.
func (h *BufferHandler) WithGroup(name string) slog.Handler {
	return &BufferHandler{level: h.level, scope: h.scope.group(name)}
}

func dotted(path []string, key string) string {
	if len(path) == 0 {
		return key
	}
	return strings.Join(path, ".") + "." + key
}

// entryValue converts a resolved value into something encoding/json renders
// the way it reads in a text log.
func entryValue(v slog.Value, redact func(string) string) any {
	switch v.Kind() {
	case slog.KindString:
		return redact(v.String())
	case slog.KindTime:
		return v.Time().Format(time.RFC3339Nano)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return redact(err.Error())
		}
		return v.Any()
	default:
		return v.Any()
	}
}

func levelName(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "error"
	case level >= slog.LevelWarn:
		return "warn"
	case level >= slog.LevelInfo:
		return "info"
	default:
		return "debug"
	}
}

// FormatLogLine renders an entry as "<time> [LEVEL] [module] message k=v ...".
func FormatLogLine(entry LogEntry) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s [%s] [%s] %s",
		entry.Timestamp.Format(time.RFC3339Nano),
		strings.ToUpper(entry.Level),
		entry.Module,
		entry.Message)

	for _, k := range slices.Sorted(maps.Keys(entry.Attributes)) {
		fmt.Fprintf(&sb, " %s=%v", k, entry.Attributes[k])
	}
	return sb.String()
}
