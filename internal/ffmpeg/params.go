package ffmpeg

// Mode selects what the transcoder produces on stdout.
type Mode string

const (
	// ModeSingleFrame decodes until the first frame and exits.
	ModeSingleFrame Mode = "single"
	// ModeContinuous emits frames until the process is stopped.
	ModeContinuous Mode = "continuous"
)

// Defaults applied by BuildArgs for zero-valued Params fields.
const (
	DefaultTransport = "tcp"
	DefaultLogLevel  = "warning"

	DefaultSingleFrameQuality = 2
	DefaultContinuousQuality  = 5
	DefaultFPS                = 15
	DefaultWidth              = 640
	DefaultHeight             = 480
)

// Params represents all parameters needed to generate a transcoder argv.
type Params struct {
	// Input is the camera URL. It carries credentials and is only ever
	// placed in the argv, never logged.
	Input     string
	Transport string // tcp, udp, udp_multicast, http
	Mode      Mode

	// Quality is the MJPEG qscale, 2 (best) to 31. Zero selects the mode default.
	Quality int

	// Continuous mode only
	FPS    int
	Width  int
	Height int

	LogLevel string // ffmpeg -loglevel name without the "level+" prefix

	// Options are input behavior flags. A nil slice selects the mode
	// defaults; an empty non-nil slice disables them.
	Options []OptionType
}
