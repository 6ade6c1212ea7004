package main

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/smazurov/camrelay/cmd"
	"github.com/smazurov/camrelay/internal/api"
	"github.com/smazurov/camrelay/internal/camera"
	"github.com/smazurov/camrelay/internal/config"
	"github.com/smazurov/camrelay/internal/events"
	"github.com/smazurov/camrelay/internal/ffmpeg"
	"github.com/smazurov/camrelay/internal/logging"
	"github.com/smazurov/camrelay/internal/metrics"
	"github.com/smazurov/camrelay/internal/relay"
	"github.com/smazurov/camrelay/internal/systemd"
	"github.com/smazurov/camrelay/internal/version"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port        string `help:"Address to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`
	WatchConfig bool   `help:"Reload the [camera] section when the config file changes" default:"true" toml:"server.watch_config" env:"WATCH_CONFIG"`

	// Auth settings; empty disables basic auth
	AuthUsername string `help:"Basic auth username" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Camera settings; empty values fall back to the camera package defaults
	CameraURL       string `help:"Full camera URL, overrides the individual fields" toml:"camera.url" env:"CAMERA_URL" legacyenv:"CAMERA_URL,RTSP_CAMERA_URL"`
	CameraScheme    string `help:"Camera URL scheme (default rtsp)" toml:"camera.scheme" env:"CAMERA_SCHEME" legacyenv:"CAMERA_SCHEME"`
	CameraUsername  string `help:"Camera username (default admin)" toml:"camera.username" env:"CAMERA_USERNAME" legacyenv:"CAMERA_USERNAME,RTSP_CAMERA_USERNAME"`
	CameraPassword  string `help:"Camera password (default admin)" toml:"camera.password" env:"CAMERA_PASSWORD" legacyenv:"CAMERA_PASSWORD,RTSP_CAMERA_PASSWORD"`
	CameraHost      string `help:"Camera host (default 192.168.0.64)" toml:"camera.host" env:"CAMERA_HOST" legacyenv:"CAMERA_HOST,RTSP_CAMERA_IP"`
	CameraPort      int    `help:"Camera RTSP port (default 554)" toml:"camera.port" env:"CAMERA_PORT" legacyenv:"CAMERA_PORT,RTSP_CAMERA_PORT"`
	CameraPath      string `help:"Camera stream path (default /Streaming/Channels/<channel>)" toml:"camera.path" env:"CAMERA_PATH" legacyenv:"CAMERA_PATH"`
	CameraChannel   string `help:"Camera channel used when no path is set (default 101)" toml:"camera.channel" env:"CAMERA_CHANNEL" legacyenv:"CAMERA_CHANNEL,RTSP_CAMERA_CHANNEL"`
	CameraTransport string `help:"RTSP transport: tcp, udp, udp_multicast, http (default tcp)" toml:"camera.transport" env:"CAMERA_TRANSPORT" legacyenv:"CAMERA_TRANSPORT"`

	// Transcoder settings
	TranscoderBinary   string `help:"Transcoder executable" default:"ffmpeg" toml:"transcoder.binary" env:"TRANSCODER_BINARY"`
	TranscoderLogLevel string `help:"Transcoder diagnostic verbosity" default:"warning" toml:"transcoder.log_level" env:"TRANSCODER_LOG_LEVEL"`
	TranscoderOptions  string `help:"Comma-separated input option keys; empty uses per-mode defaults, 'none' disables them" toml:"transcoder.options" env:"TRANSCODER_OPTIONS"`
	CaptureTimeout     string `help:"Single-frame capture deadline" default:"30s" toml:"capture.timeout" env:"CAPTURE_TIMEOUT"`
	CaptureQuality     int    `help:"Capture JPEG quality, 1 (best) to 31" default:"2" toml:"capture.quality" env:"CAPTURE_QUALITY"`
	StreamFPS          int    `help:"Live stream frame rate" default:"15" toml:"stream.fps" env:"STREAM_FPS"`
	StreamWidth        int    `help:"Live stream frame width" default:"640" toml:"stream.width" env:"STREAM_WIDTH"`
	StreamHeight       int    `help:"Live stream frame height" default:"480" toml:"stream.height" env:"STREAM_HEIGHT"`
	StreamQuality      int    `help:"Live stream JPEG quality, 1 (best) to 31" default:"5" toml:"stream.quality" env:"STREAM_QUALITY"`
	StreamMaxFrameSize int    `help:"Largest partial frame buffered before it is discarded, in bytes" default:"16777216" toml:"stream.max_frame_size" env:"STREAM_MAX_FRAME_SIZE"`
	GracefulTimeout    string `help:"Wait after SIGINT before killing a transcoder" default:"2s" toml:"transcoder.graceful_timeout" env:"TRANSCODER_GRACEFUL_TIMEOUT"`

	// Observability settings
	MetricsEnabled bool `help:"Expose Prometheus metrics at /metrics" default:"true" toml:"metrics.enabled" env:"METRICS_ENABLED"`

	// Logging settings
	LoggingLevel      string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat     string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingRelay      string `help:"Relay logging level" default:"info" toml:"logging.relay" env:"LOGGING_RELAY"`
	LoggingTranscoder string `help:"Transcoder lifecycle logging level" default:"info" toml:"logging.transcoder" env:"LOGGING_TRANSCODER"`
	LoggingFFmpeg     string `help:"Transcoder diagnostics logging level" default:"info" toml:"logging.ffmpeg" env:"LOGGING_FFMPEG"`
	LoggingAPI        string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingHTTP       string `help:"HTTP request logging level" default:"info" toml:"logging.http" env:"LOGGING_HTTP"`
	LoggingBufferSize int    `help:"Log entries kept for /api/logs" default:"1000" toml:"logging.buffer_size" env:"LOGGING_BUFFER_SIZE"`
}

// cameraSource builds the startup source from the resolved options.
func (o *Options) cameraSource() camera.Source {
	return camera.Source{
		URL:       o.CameraURL,
		Scheme:    o.CameraScheme,
		Username:  o.CameraUsername,
		Password:  o.CameraPassword,
		Host:      o.CameraHost,
		Port:      o.CameraPort,
		Path:      o.CameraPath,
		Channel:   o.CameraChannel,
		Transport: o.CameraTransport,
	}.WithDefaults()
}

// pinCameraFlags returns a function that re-applies camera values given on
// the command line, so a config reload cannot override them.
func pinCameraFlags(root *cobra.Command, o *Options) func(camera.Source) camera.Source {
	changed := config.ChangedFlags(root)
	set := func(field string) bool { return changed[config.FlagName(field)] }

	return func(src camera.Source) camera.Source {
		if set("CameraURL") {
			src.URL = o.CameraURL
		}
		if set("CameraScheme") {
			src.Scheme = o.CameraScheme
		}
		if set("CameraUsername") {
			src.Username = o.CameraUsername
		}
		if set("CameraPassword") {
			src.Password = o.CameraPassword
		}
		if set("CameraHost") {
			src.Host = o.CameraHost
		}
		if set("CameraPort") {
			src.Port = o.CameraPort
		}
		if set("CameraPath") {
			src.Path = o.CameraPath
		}
		if set("CameraChannel") {
			src.Channel = o.CameraChannel
			if !set("CameraPath") {
				src.Path = ""
			}
		}
		if set("CameraTransport") {
			src.Transport = o.CameraTransport
		}
		return src.WithDefaults()
	}
}

func parseDuration(name, value string, fallback time.Duration, logger *slog.Logger) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		logger.Warn("Invalid duration, using default", "option", name, "value", value, "default", fallback)
		return fallback
	}
	return d
}

// transcoderOptions parses the option list; nil selects per-mode defaults.
func transcoderOptions(value string) ([]ffmpeg.OptionType, error) {
	value = strings.TrimSpace(value)
	switch value {
	case "":
		return nil, nil
	case "none":
		return []ffmpeg.OptionType{}, nil
	}
	var keys []string
	for key := range strings.SplitSeq(value, ",") {
		if key = strings.TrimSpace(key); key != "" {
			keys = append(keys, key)
		}
	}
	return ffmpeg.ParseOptions(keys)
}

func main() {
	var cli humacli.CLI

	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		root := cli.Root()

		loadErr := config.LoadConfig(opts, root)

		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"relay":      opts.LoggingRelay,
				"transcoder": opts.LoggingTranscoder,
				"ffmpeg":     opts.LoggingFFmpeg,
				"api":        opts.LoggingAPI,
				"http":       opts.LoggingHTTP,
			},
			BufferSize: opts.LoggingBufferSize,
			Redact:     camera.Redact,
		})
		logger := logging.GetLogger("main")

		if loadErr != nil {
			logger.Warn("Failed to load config", "error", loadErr)
		}

		eventBus := events.New()
		logging.SetLogCallback(events.LogForwarder(eventBus))

		source := opts.cameraSource()
		if err := source.Validate(); err != nil {
			logger.Error("Invalid camera configuration", "error", err)
			os.Exit(1)
		}
		sources := camera.NewProvider(source)

		inputOptions, err := transcoderOptions(opts.TranscoderOptions)
		if err != nil {
			logger.Error("Invalid transcoder options", "error", err)
			os.Exit(1)
		}

		relayService, err := relay.New(relay.Options{
			Binary:          opts.TranscoderBinary,
			Sources:         sources,
			CaptureTimeout:  parseDuration("capture.timeout", opts.CaptureTimeout, relay.DefaultCaptureTimeout, logger),
			GracefulTimeout: parseDuration("transcoder.graceful_timeout", opts.GracefulTimeout, relay.DefaultGracefulTimeout, logger),
			MaxFrameSize:    opts.StreamMaxFrameSize,
			CaptureQuality:  opts.CaptureQuality,
			StreamQuality:   opts.StreamQuality,
			StreamFPS:       opts.StreamFPS,
			StreamWidth:     opts.StreamWidth,
			StreamHeight:    opts.StreamHeight,
			InputOptions:    inputOptions,
			LogLevel:        opts.TranscoderLogLevel,
			EventBus:        eventBus,
		})
		if err != nil {
			logger.Error("Invalid relay configuration", "error", err)
			os.Exit(1)
		}

		apiOpts := &api.Options{
			AuthUsername: opts.AuthUsername,
			AuthPassword: opts.AuthPassword,
			Relay:        relayService,
			EventBus:     eventBus,
		}
		if opts.MetricsEnabled {
			apiOpts.PrometheusHandler = metrics.HTTPHandler()
		}
		server := api.NewServer(apiOpts)

		ctx, cancel := context.WithCancel(context.Background())
		stopped := make(chan struct{})

		hooks.OnStart(func() {
			defer close(stopped)
			logger.Info("Starting camrelay", "version", version.String(), "camera", source)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return server.Run(gctx, opts.Port)
			})

			notifier := systemd.NewNotifier(logging.GetLogger("systemd"))
			notifier.Status("relaying " + source.Redacted())
			g.Go(func() error {
				return notifier.Run(gctx)
			})

			if opts.WatchConfig && opts.Config != "" {
				pin := pinCameraFlags(root, opts)
				watcher := config.NewConfigWatcher(opts.Config, config.LoadCameraSource, logging.GetLogger("config"),
					config.WithErrorHandler[camera.Source](func(err error) {
						logger.Warn("Camera config reload failed, keeping previous source", "error", err)
					}),
					config.WithEqual(func(a, b camera.Source) bool { return pin(a) == pin(b) }))
				watcher.OnReload(func(src camera.Source) {
					src = pin(src)
					if err := src.Validate(); err != nil {
						logger.Warn("Reloaded camera config is invalid, keeping previous source", "error", err)
						return
					}
					sources.Set(src)
					logger.Info("Camera source reloaded", "camera", src)
					eventBus.Publish(events.SourceChangedEvent{
						Source:    src.Details(),
						Timestamp: time.Now().Format(time.RFC3339),
					})
				})
				g.Go(func() error {
					// Serving continues without hot reload.
					if err := watcher.Run(gctx); err != nil {
						logger.Warn("Config watcher unavailable", "path", opts.Config, "error", err)
					}
					return nil
				})
			}

			if err := g.Wait(); err != nil {
				logger.Error("Server stopped with error", "error", err)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			cancel()
			<-stopped

			waitCtx, waitCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer waitCancel()
			if err := relayService.Wait(waitCtx); err != nil {
				logger.Warn("Transcoders still running at exit", "error", err)
			}
		})
	})

	cli.Root().Use = "camrelay"
	cli.Root().Version = version.String()
	cli.Root().AddCommand(cmd.CreateCaptureCmd())

	cli.Run()
}
