package models

import (
	"github.com/smazurov/camrelay/internal/events"
	"github.com/smazurov/camrelay/internal/ffmpeg"
	"github.com/smazurov/camrelay/internal/metrics"
)

// Health check models
type HealthData struct {
	Status  string             `json:"status" example:"ok" doc:"Service status"`
	Message string             `json:"message" example:"API is healthy" doc:"Status message"`
	Uptime  string             `json:"uptime" example:"3h12m5s" doc:"Time since the server started"`
	Relay   metrics.RelayStats `json:"relay" doc:"Capture and stream counters"`
}

type HealthResponse struct {
	Body HealthData
}

// Capture models
type CaptureData struct {
	Success   bool   `json:"success" example:"true" doc:"Always true on 200"`
	Image     string `json:"image" doc:"Base64-encoded JPEG bytes"`
	Size      int    `json:"size" example:"48213" doc:"Decoded image size in bytes"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Capture time"`
}

type CaptureResponse struct {
	Body CaptureData
}

// Transcoder option models
type OptionsData struct {
	Options    []ffmpeg.Option            `json:"options" doc:"All transcoder input options with metadata"`
	Categories map[string][]ffmpeg.Option `json:"categories" doc:"Options grouped by category"`
	Defaults   map[string][]string        `json:"defaults" doc:"Option keys enabled by default per mode"`
}

type OptionsResponse struct {
	Body OptionsData
}

// Version models
type VersionData struct {
	Name      string `json:"name" example:"camrelay" doc:"Application name"`
	Version   string `json:"version" example:"dev" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc123" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2025-01-27T10:30:00Z" doc:"Build timestamp"`
	GoVersion string `json:"go_version" example:"go1.24.11" doc:"Go compiler version"`
	Platform  string `json:"platform" example:"linux/amd64" doc:"Target platform"`
}

type VersionResponse struct {
	Body VersionData
}

// Log models
type LogsData struct {
	Entries []events.LogEntryEvent `json:"entries" doc:"Most recent log entries, oldest first"`
	Count   int                    `json:"count" example:"100" doc:"Number of entries returned"`
}

type LogsResponse struct {
	Body LogsData
}
