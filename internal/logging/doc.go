// Package logging provides structured logging with per-module log level configuration.
//
// # Usage
//
// Initialize once at startup, then get a logger per module:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"transcoder": "debug",
//		},
//	})
//
//	logger := logging.GetLogger("relay")
//	logger.Info("Capture finished", "size", len(img))
//
// Loggers obtained before Initialize are cached and pick up the configured
// level once Initialize runs.
//
// # Output Destinations
//
// Records go to stdout (text or json) when it is connected, to the systemd
// journal when journald is reachable, and always to an in-memory ring
// buffer served by GET /api/logs.
//
//	journalctl -t camrelay -f
//	journalctl -t camrelay MODULE=transcoder -p err
//
// Config.Redact runs over every message and string attribute on all three
// outputs; camrelay sets it to camera.Redact so RTSP credentials echoed by
// ffmpeg never reach a log.
//
// # Configuration
//
//	[logging]
//	level = "info"
//	format = "text"
//
//	[logging.modules]
//	transcoder = "warn"
//	http = "debug"
package logging
