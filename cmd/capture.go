package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/smazurov/camrelay/internal/camera"
	"github.com/smazurov/camrelay/internal/config"
	"github.com/smazurov/camrelay/internal/logging"
	"github.com/smazurov/camrelay/internal/mjpeg"
	"github.com/smazurov/camrelay/internal/relay"
	"github.com/spf13/cobra"
)

// errEnoughFrames stops a stream once the requested frames were saved.
var errEnoughFrames = errors.New("frame limit reached")

// CreateCaptureCmd creates the capture command.
func CreateCaptureCmd() *cobra.Command {
	var (
		configFile string
		output     string
		binary     string
		timeout    time.Duration
		frames     int
		logJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture frames from the camera to disk",
		Long: `Spawns the transcoder against the configured camera and writes the result to disk. ` +
			`By default one snapshot is written to --output. With --frames N, the live stream is ` +
			`opened instead and N frames are written as <output>-001.jpg and so on.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			loggingConfig := logging.Config{Level: "info", Format: "text", Redact: camera.Redact}
			if logJSON {
				loggingConfig.Format = "json"
			}
			logging.Initialize(loggingConfig)
			logger := logging.GetLogger("capture")

			source, err := config.LoadCameraSource(configFile)
			if err != nil {
				return fmt.Errorf("load camera config: %w", err)
			}
			logger.Info("Using camera", "camera", source)

			svc, err := relay.New(relay.Options{
				Binary:         binary,
				Sources:        camera.NewProvider(source),
				CaptureTimeout: timeout,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if frames > 0 {
				return saveStream(ctx, svc, output, frames)
			}

			snap, err := svc.Capture(ctx)
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, snap.Image, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			logger.Info("Frame saved", "path", output, "size", snap.Size, "duration", snap.Duration.Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "config.toml", "Path to configuration file with a [camera] section")
	cmd.Flags().StringVarP(&output, "output", "o", "frame.jpg", "Output file")
	cmd.Flags().StringVar(&binary, "binary", relay.DefaultBinary, "Transcoder executable")
	cmd.Flags().DurationVar(&timeout, "timeout", relay.DefaultCaptureTimeout, "Capture deadline")
	cmd.Flags().IntVarP(&frames, "frames", "n", 0, "Save this many live stream frames instead of one snapshot")
	cmd.Flags().BoolVar(&logJSON, "log-json", false, "Use JSON log format")

	return cmd
}

// saveStream writes the first n stream frames next to output.
func saveStream(ctx context.Context, svc *relay.Service, output string, n int) error {
	logger := logging.GetLogger("capture")

	stream, err := svc.OpenStream(ctx)
	if err != nil {
		return err
	}

	base := strings.TrimSuffix(output, filepath.Ext(output))
	saved := 0
	var writeErr error
	err = stream.Run(ctx, func(f mjpeg.Frame) error {
		path := fmt.Sprintf("%s-%03d.jpg", base, saved+1)
		if err := os.WriteFile(path, f, 0o644); err != nil {
			writeErr = fmt.Errorf("write %s: %w", path, err)
			return writeErr
		}
		saved++
		logger.Info("Frame saved", "path", path, "size", len(f))
		if saved >= n {
			return errEnoughFrames
		}
		return nil
	})
	if err != nil {
		return err
	}
	if writeErr != nil {
		return writeErr
	}
	if saved < n && ctx.Err() == nil {
		return fmt.Errorf("stream ended after %d of %d frames", saved, n)
	}
	return nil
}
