// Package relay turns a camera source into captured snapshots and live
// MJPEG frame streams, one transcoder process per request.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/smazurov/camrelay/internal/camera"
	"github.com/smazurov/camrelay/internal/events"
	"github.com/smazurov/camrelay/internal/ffmpeg"
	"github.com/smazurov/camrelay/internal/logging"
	"github.com/smazurov/camrelay/internal/metrics"
	"github.com/smazurov/camrelay/internal/transcoder"
)

// Defaults applied by New for zero-valued Options fields.
const (
	DefaultBinary          = "ffmpeg"
	DefaultCaptureTimeout  = 30 * time.Second
	DefaultGracefulTimeout = transcoder.DefaultGracefulTimeout
	DefaultMaxFrameSize    = 16 << 20
)

// SourceProvider returns the camera source to use for a new request.
type SourceProvider interface {
	Source() camera.Source
}

// Options configures a Service.
type Options struct {
	Binary          string
	Sources         SourceProvider
	CaptureTimeout  time.Duration
	GracefulTimeout time.Duration

	// MaxFrameSize bounds a pending partial frame; negative disables the limit.
	MaxFrameSize int

	// Encoding knobs; zero values use the ffmpeg package defaults.
	CaptureQuality int
	StreamQuality  int
	StreamFPS      int
	StreamWidth    int
	StreamHeight   int

	// InputOptions replaces the per-mode input flags when non-nil.
	InputOptions []ffmpeg.OptionType
	LogLevel     string

	EventBus *events.Bus
	Logger   *slog.Logger
}

// Service spawns transcoders for captures and streams. It holds no
// per-request state and is safe for concurrent use.
type Service struct {
	opts   Options
	logger *slog.Logger

	running sync.WaitGroup // live transcoders
}

// New validates opts and returns a Service.
func New(opts Options) (*Service, error) {
	if opts.Binary == "" {
		opts.Binary = DefaultBinary
	}
	if opts.Sources == nil {
		opts.Sources = camera.NewProvider(camera.DefaultSource())
	}
	if opts.CaptureTimeout <= 0 {
		opts.CaptureTimeout = DefaultCaptureTimeout
	}
	if opts.GracefulTimeout <= 0 {
		opts.GracefulTimeout = DefaultGracefulTimeout
	}
	if opts.MaxFrameSize == 0 {
		opts.MaxFrameSize = DefaultMaxFrameSize
	}
	if opts.MaxFrameSize < 0 {
		opts.MaxFrameSize = 0
	}
	if opts.Logger == nil {
		opts.Logger = logging.GetLogger("relay")
	}
	if opts.InputOptions != nil {
		if err := ffmpeg.ValidateOptions(opts.InputOptions); err != nil {
			return nil, fmt.Errorf("invalid input options: %w", err)
		}
	}

	s := &Service{opts: opts, logger: opts.Logger}

	// Fail fast on knobs BuildArgs would reject on every request.
	for _, mode := range []ffmpeg.Mode{ffmpeg.ModeSingleFrame, ffmpeg.ModeContinuous} {
		if _, err := s.argv(mode, camera.DefaultSource()); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Source returns the camera source new requests will use.
func (s *Service) Source() camera.Source {
	return s.opts.Sources.Source()
}

// CaptureTimeout returns the effective capture timeout.
func (s *Service) CaptureTimeout() time.Duration {
	return s.opts.CaptureTimeout
}

func (s *Service) argv(mode ffmpeg.Mode, src camera.Source) ([]string, error) {
	p := &ffmpeg.Params{
		Input:     src.ConnectionURL(),
		Transport: src.Transport,
		Mode:      mode,
		LogLevel:  s.opts.LogLevel,
		Options:   s.opts.InputOptions,
	}
	if mode == ffmpeg.ModeSingleFrame {
		p.Quality = s.opts.CaptureQuality
	} else {
		p.Quality = s.opts.StreamQuality
		p.FPS = s.opts.StreamFPS
		p.Width = s.opts.StreamWidth
		p.Height = s.opts.StreamHeight
	}

	args, err := ffmpeg.BuildArgs(p)
	if err != nil {
		// BuildArgs errors never include the input URL
		return nil, fmt.Errorf("build %s transcoder args: %w", mode, err)
	}
	return append([]string{s.opts.Binary}, args...), nil
}

// start spawns one transcoder and tracks it in metrics and events until exit.
func (s *Service) start(mode ffmpeg.Mode, src camera.Source) (*transcoder.Process, error) {
	argv, err := s.argv(mode, src)
	if err != nil {
		return nil, &transcoder.SpawnError{Binary: s.opts.Binary, Err: err}
	}

	proc, err := transcoder.Start(argv, transcoder.Options{
		ID:              uuid.NewString(),
		GracefulTimeout: s.opts.GracefulTimeout,
		ProcessLogger:   logging.GetLogger("ffmpeg"),
		LogParser:       ffmpeg.ParseLogLevel,
		Redact:          camera.Redact,
	})
	if err != nil {
		return nil, err
	}

	metrics.TranscoderStarted()
	s.running.Add(1)
	go func() {
		defer s.running.Done()
		<-proc.Done()
		metrics.TranscoderExited(string(mode), string(proc.State()))
		s.opts.EventBus.Publish(events.TranscoderExitedEvent{
			ProcessID: proc.ID(),
			Mode:      string(mode),
			State:     string(proc.State()),
			ExitCode:  proc.ExitCode(),
			Timestamp: time.Now().Format(time.RFC3339),
		})
	}()

	return proc, nil
}

// Wait blocks until every transcoder spawned so far has exited or ctx is done.
// Callers stop accepting requests first; in-flight requests terminate their
// transcoders when their contexts are cancelled.
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.running.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for transcoders: %w", ctx.Err())
	}
}

// failureReason maps a transcoder error to a metrics result label.
func failureReason(err error) string {
	var spawnErr *transcoder.SpawnError
	var exitErr *transcoder.ExitError
	switch {
	case errors.Is(err, ErrTimeout):
		return metrics.ResultTimeout
	case errors.Is(err, ErrNoOutput):
		return metrics.ResultNoOutput
	case errors.As(err, &spawnErr):
		return metrics.ResultSpawn
	case errors.As(err, &exitErr):
		return metrics.ResultExit
	default:
		return metrics.ResultExit
	}
}
