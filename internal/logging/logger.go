package logging

import (
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// DefaultBufferSize is the number of recent entries kept for /api/logs.
const DefaultBufferSize = 1000

// Config represents logging configuration.
type Config struct {
	Level      string            `toml:"level"`
	Format     string            `toml:"format"`
	Modules    map[string]string `toml:"modules"`
	BufferSize int               `toml:"buffer_size"`

	// Redact is applied to every message and string attribute before it
	// reaches any output. Used to mask camera credentials.
	Redact func(string) string `toml:"-"`
}

// registry owns the per-module loggers and the shared sinks.
type registry struct {
	mu          sync.RWMutex
	config      Config
	initialized bool
	global      slog.LevelVar
	levels      map[string]*slog.LevelVar
	loggers     map[string]*slog.Logger
	buffer      *Ring[LogEntry]
	callback    LogCallback

	// redact is read from inside handlers, which may run while mu is held
	// (slog applies ReplaceAttr during With), so it must not take mu.
	redact atomic.Pointer[func(string) string]
}

func newRegistry() *registry {
	return &registry{
		levels:  make(map[string]*slog.LevelVar),
		loggers: make(map[string]*slog.Logger),
	}
}

var std = newRegistry()

// Initialize sets up the logging system. Loggers handed out earlier keep
// working; their levels follow the new configuration.
func Initialize(config Config) {
	std.mu.Lock()
	defer std.mu.Unlock()

	std.config = config
	std.initialized = true
	if config.Redact != nil {
		std.redact.Store(&config.Redact)
	} else {
		std.redact.Store(nil)
	}

	size := config.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}
	std.buffer = NewRing[LogEntry](size)

	global := levelOrDefault(config.Level, slog.LevelInfo)
	std.global.Set(global)

	for module, level := range std.levels {
		level.Set(moduleLevel(config, module, global))
		std.loggers[module] = newModuleLogger(config.Format, level, module)
	}

	slog.SetDefault(slog.New(createHandler(config.Format, &std.global)))
}

// GetBuffer returns the log ring buffer, or nil before Initialize.
func GetBuffer() *Ring[LogEntry] {
	buffer, _ := std.sink()
	return buffer
}

// SetLogCallback sets a callback invoked for each new log entry.
func SetLogCallback(callback LogCallback) {
	std.mu.Lock()
	defer std.mu.Unlock()
	std.callback = callback
}

func (r *registry) sink() (*Ring[LogEntry], LogCallback) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.buffer, r.callback
}

func identity(s string) string { return s }

// currentRedactor never returns nil and never blocks.
func currentRedactor() func(string) string {
	if fn := std.redact.Load(); fn != nil {
		return *fn
	}
	return identity
}

// GetLogger returns the logger for module, creating it on first use.
func GetLogger(module string) *slog.Logger {
	std.mu.RLock()
	logger, ok := std.loggers[module]
	std.mu.RUnlock()
	if ok {
		return logger
	}

	std.mu.RLock()
	level := &slog.LevelVar{}
	format := "text"
	if std.initialized {
		level.Set(moduleLevel(std.config, module, levelOrDefault(std.config.Level, slog.LevelInfo)))
		format = std.config.Format
	}
	std.mu.RUnlock()

	// Handlers are built without holding mu.
	logger = newModuleLogger(format, level, module)

	std.mu.Lock()
	defer std.mu.Unlock()
	if existing, ok := std.loggers[module]; ok {
		return existing
	}
	std.loggers[module] = logger
	std.levels[module] = level
	return logger
}

// SetModuleLevel changes a module's level at runtime.
func SetModuleLevel(module, level string) bool {
	parsed := parseLevel(level)
	if parsed == nil {
		return false
	}
	GetLogger(module)

	std.mu.Lock()
	defer std.mu.Unlock()
	std.levels[module].Set(*parsed)
	return true
}

func newModuleLogger(format string, level slog.Leveler, module string) *slog.Logger {
	return slog.New(createHandler(format, level)).With("module", module)
}

// createHandler builds the output chain: stdout when connected, the journal
// when reachable, and always the ring buffer.
func createHandler(format string, level slog.Leveler) slog.Handler {
	var handlers MultiHandler
	if isStdoutAvailable() {
		opts := &slog.HandlerOptions{Level: level, ReplaceAttr: redactAttr}
		if format == "json" {
			handlers = append(handlers, slog.NewJSONHandler(os.Stdout, opts))
		} else {
			handlers = append(handlers, slog.NewTextHandler(os.Stdout, opts))
		}
	}
	if IsJournalAvailable() {
		handlers = append(handlers, NewJournalHandler(level))
	}
	handlers = append(handlers, NewBufferHandler(level))

	if len(handlers) == 1 {
		return handlers[0]
	}
	return handlers
}

// redactAttr masks string values, including the message, in stdout output.
func redactAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindString {
		a.Value = slog.StringValue(currentRedactor()(a.Value.String()))
	}
	return a
}

// isStdoutAvailable reports whether stdout is a terminal, pipe, socket, or
// regular file. /dev/null is a device and is skipped.
func isStdoutAvailable() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	mode := fi.Mode()
	return mode&(os.ModeCharDevice|os.ModeNamedPipe|os.ModeSocket) != 0 || mode.IsRegular()
}

func moduleLevel(config Config, module string, fallback slog.Level) slog.Level {
	if name, ok := config.Modules[module]; ok {
		return levelOrDefault(name, fallback)
	}
	return fallback
}

func levelOrDefault(level string, fallback slog.Level) slog.Level {
	if parsed := parseLevel(level); parsed != nil {
		return *parsed
	}
	return fallback
}

// parseLevel converts a level name to slog.Level, nil when unknown.
func parseLevel(level string) *slog.Level {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "info":
		l = slog.LevelInfo
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		return nil
	}
	return &l
}
