package ffmpeg

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
)

var validTransports = []string{"tcp", "udp", "udp_multicast", "http"}

// BuildArgs builds the transcoder arguments (without the binary) from
// structured parameters. The result is passed to exec directly; no shell
// is involved, so the input URL needs no quoting.
func BuildArgs(p *Params) ([]string, error) {
	if p == nil {
		return nil, errors.New("params are required")
	}
	if p.Input == "" {
		return nil, errors.New("input url is required")
	}

	transport := p.Transport
	if transport == "" {
		transport = DefaultTransport
	}
	if !slices.Contains(validTransports, transport) {
		return nil, fmt.Errorf("unsupported rtsp transport %q", transport)
	}

	quality := p.Quality
	switch p.Mode {
	case ModeSingleFrame:
		if quality == 0 {
			quality = DefaultSingleFrameQuality
		}
	case ModeContinuous:
		if quality == 0 {
			quality = DefaultContinuousQuality
		}
	default:
		return nil, fmt.Errorf("unknown mode %q", p.Mode)
	}
	if quality < 1 || quality > 31 {
		return nil, fmt.Errorf("quality %d out of range 1-31", quality)
	}

	options := p.Options
	if options == nil {
		options = GetDefaultOptions(p.Mode)
	}
	if err := ValidateOptions(options); err != nil {
		return nil, err
	}

	logLevel := p.LogLevel
	if logLevel == "" {
		logLevel = DefaultLogLevel
	}
	if !isLogLevel(logLevel) {
		return nil, fmt.Errorf("unknown log level %q", logLevel)
	}

	args := []string{"-hide_banner", "-loglevel", "level+" + logLevel}
	args = append(args, "-rtsp_transport", transport)
	args = append(args, optionArgs(options)...)
	args = append(args, "-i", p.Input)

	q := strconv.Itoa(quality)
	if p.Mode == ModeSingleFrame {
		args = append(args, "-frames:v", "1", "-f", "image2pipe", "-vcodec", "mjpeg", "-q:v", q, "-")
		return args, nil
	}

	fps, width, height := p.FPS, p.Width, p.Height
	if fps <= 0 {
		fps = DefaultFPS
	}
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	filter := fmt.Sprintf("fps=%d,scale=%d:%d", fps, width, height)

	args = append(args, "-vf", filter, "-q:v", q, "-f", "image2pipe", "-vcodec", "mjpeg", "-")
	return args, nil
}
