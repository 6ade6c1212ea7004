package ffmpeg

import (
	"log/slog"
	"strings"
)

// ffmpeg -loglevel names mapped to slog levels. "quiet" disables output
// entirely, so it never appears as a line prefix.
var logLevels = map[string]slog.Level{
	"quiet":   slog.LevelError,
	"panic":   slog.LevelError,
	"fatal":   slog.LevelError,
	"error":   slog.LevelError,
	"warning": slog.LevelWarn,
	"info":    slog.LevelInfo,
	"verbose": slog.LevelDebug,
	"debug":   slog.LevelDebug,
	"trace":   slog.LevelDebug,
}

// Diagnostic is one parsed stderr line.
type Diagnostic struct {
	Level     slog.Level
	Component string // "rtsp @ 0x55d1c0", empty for global messages
	Message   string
}

// ParseDiagnostic splits a line printed with -loglevel level+<name>:
//
//	[error] message
//	[rtsp @ 0x55d1c0] [error] message
//	frame=  120 fps= 15 q=5.0 ...
//
// Progress lines are demoted to debug. Anything unrecognised is info.
func ParseDiagnostic(line string) Diagnostic {
	d := Diagnostic{Level: slog.LevelInfo, Message: line}

	if strings.HasPrefix(line, "frame=") {
		d.Level = slog.LevelDebug
		return d
	}

	tag, rest, ok := bracketed(line)
	if !ok {
		return d
	}
	if level, known := logLevels[tag]; known {
		d.Level = level
		d.Message = rest
		return d
	}

	// Component prefix, optionally followed by the level.
	d.Component = tag
	if next, msg, ok := bracketed(rest); ok {
		if level, known := logLevels[next]; known {
			d.Level = level
			d.Message = msg
			return d
		}
	}
	d.Message = rest
	return d
}

// String renders the diagnostic without its level tag.
func (d Diagnostic) String() string {
	if d.Component == "" {
		return d.Message
	}
	return "[" + d.Component + "] " + d.Message
}

// ParseLogLevel returns the slog level and the message with the level tag
// stripped. The component prefix is kept so the source stays visible.
func ParseLogLevel(line string) (slog.Level, string) {
	d := ParseDiagnostic(line)
	return d.Level, d.String()
}

// bracketed splits "[tag] rest".
func bracketed(s string) (tag, rest string, ok bool) {
	if len(s) < 3 || s[0] != '[' {
		return "", s, false
	}
	end := strings.Index(s, "] ")
	if end <= 1 {
		return "", s, false
	}
	return s[1:end], s[end+2:], true
}

func isLogLevel(s string) bool {
	_, ok := logLevels[s]
	return ok
}
