// Package metrics provides Prometheus metrics for the capture and stream relay.
package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "camrelay"

// Capture results used as label values.
const (
	ResultSuccess  = "success"
	ResultSpawn    = "spawn"
	ResultExit     = "exit"
	ResultTimeout  = "timeout"
	ResultNoOutput = "no_output"
)

var (
	capturesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "capture",
		Name:      "requests_total",
		Help:      "Single-frame captures by result",
	}, []string{"result"})

	captureDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "capture",
		Name:      "duration_seconds",
		Help:      "Time from transcoder spawn to captured frame",
		Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30},
	})

	framesRelayed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "stream",
		Name:      "frames_total",
		Help:      "JPEG frames written to live stream clients",
	})

	bytesRelayed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "stream",
		Name:      "bytes_total",
		Help:      "JPEG bytes written to live stream clients",
	})

	activeStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "stream",
		Name:      "active",
		Help:      "Live stream sessions currently open",
	})

	streamsEnded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "stream",
		Name:      "ended_total",
		Help:      "Live stream sessions by end reason",
	}, []string{"reason"})

	frameOverflows = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "stream",
		Name:      "frame_overflows_total",
		Help:      "Partial frames discarded for exceeding the size limit",
	})

	activeTranscoders = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "transcoder",
		Name:      "active",
		Help:      "Transcoder processes currently running",
	})

	transcoderExits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "transcoder",
		Name:      "exits_total",
		Help:      "Transcoder process exits by mode and state",
	}, []string{"mode", "state"})

	// Local copies for the health endpoint.
	streamsOpen     atomic.Int64
	transcodersLive atomic.Int64
	captureOK       atomic.Int64
	captureFailed   atomic.Int64
	frameCount      atomic.Int64
	byteCount       atomic.Int64
)

// RecordCapture records one capture outcome.
func RecordCapture(result string, elapsed time.Duration) {
	capturesTotal.WithLabelValues(result).Inc()
	if result == ResultSuccess {
		captureDuration.Observe(elapsed.Seconds())
		captureOK.Add(1)
		return
	}
	captureFailed.Add(1)
}

// RecordFrame records one frame written to a stream client.
func RecordFrame(size int) {
	framesRelayed.Inc()
	bytesRelayed.Add(float64(size))
	frameCount.Add(1)
	byteCount.Add(int64(size))
}

// RecordOverflow records partial frames dropped by the extractor.
func RecordOverflow(n int) {
	if n > 0 {
		frameOverflows.Add(float64(n))
	}
}

// StreamOpened increments the active stream gauge.
func StreamOpened() {
	activeStreams.Inc()
	streamsOpen.Add(1)
}

// StreamClosed decrements the active stream gauge and counts the reason.
func StreamClosed(reason string) {
	activeStreams.Dec()
	streamsOpen.Add(-1)
	streamsEnded.WithLabelValues(reason).Inc()
}

// StreamFailedToStart counts a stream whose transcoder never spawned.
func StreamFailedToStart() {
	streamsEnded.WithLabelValues("error").Inc()
}

// TranscoderStarted increments the active transcoder gauge.
func TranscoderStarted() {
	activeTranscoders.Inc()
	transcodersLive.Add(1)
}

// TranscoderExited decrements the active transcoder gauge and counts the exit.
func TranscoderExited(mode, state string) {
	activeTranscoders.Dec()
	transcodersLive.Add(-1)
	transcoderExits.WithLabelValues(mode, state).Inc()
}

// RelayStats is a point-in-time summary of relay activity.
type RelayStats struct {
	ActiveStreams     int64 `json:"active_streams" doc:"Open live stream sessions"`
	ActiveTranscoders int64 `json:"active_transcoders" doc:"Running transcoder processes"`
	CapturesSucceeded int64 `json:"captures_succeeded" doc:"Successful captures since start"`
	CapturesFailed    int64 `json:"captures_failed" doc:"Failed captures since start"`
	FramesRelayed     int64 `json:"frames_relayed" doc:"Stream frames delivered since start"`
	BytesRelayed      int64 `json:"bytes_relayed" doc:"Stream bytes delivered since start"`
}

// Stats returns the current relay summary.
func Stats() RelayStats {
	return RelayStats{
		ActiveStreams:     streamsOpen.Load(),
		ActiveTranscoders: transcodersLive.Load(),
		CapturesSucceeded: captureOK.Load(),
		CapturesFailed:    captureFailed.Load(),
		FramesRelayed:     frameCount.Load(),
		BytesRelayed:      byteCount.Load(),
	}
}

// HTTPHandler returns the Prometheus metrics HTTP handler.
// This collects all promauto-registered metrics automatically.
func HTTPHandler() http.Handler {
	return promhttp.Handler()
}
