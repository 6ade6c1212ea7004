package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/smazurov/camrelay/internal/logging"
	"github.com/smazurov/camrelay/internal/metrics"
)

// statusClientClosed is the nginx convention for a client that disconnected
// before the response was ready.
const statusClientClosed = 499

// requestIDHeader is echoed back, or generated when the client sent none.
const requestIDHeader = "X-Request-ID"

// requestLevel picks the log level for a finished request.
func requestLevel(method string, status int) slog.Level {
	switch {
	case method == http.MethodOptions, status == statusClientClosed:
		return slog.LevelDebug
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// routeOf returns the registered path template so metrics stay low-cardinality.
func routeOf(ctx huma.Context) string {
	if op := ctx.Operation(); op != nil && op.Path != "" {
		return op.Path
	}
	return "unmatched"
}

// HTTPLoggingMiddleware tags each request with an ID, logs it when it
// finishes, and records request metrics.
func HTTPLoggingMiddleware(ctx huma.Context, next func(huma.Context)) {
	start := time.Now()
	logger := logging.GetLogger("http")

	requestID := ctx.Header(requestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	ctx.SetHeader(requestIDHeader, requestID)

	attrs := []slog.Attr{
		slog.String("request_id", requestID),
		slog.String("method", ctx.Method()),
		slog.String("path", ctx.URL().Path),
		slog.String("remote_addr", ctx.RemoteAddr()),
	}
	if q := ctx.URL().RawQuery; q != "" {
		attrs = append(attrs, slog.String("query", q))
	}
	if ua := ctx.Header("User-Agent"); ua != "" {
		attrs = append(attrs, slog.String("user_agent", ua))
	}

	finish := func(level slog.Level, message string, extra ...slog.Attr) {
		elapsed := time.Since(start)
		status := ctx.Status()
		metrics.ObserveHTTPRequest(routeOf(ctx), ctx.Method(), status, elapsed)

		attrs = append(attrs, slog.Int("status", status), slog.Duration("duration", elapsed))
		attrs = append(attrs, extra...)
		logger.LogAttrs(ctx.Context(), level, message, attrs...)
	}

	// A truncated MJPEG stream panics with http.ErrAbortHandler; record it
	// before the panic reaches net/http.
	completed := false
	defer func() {
		if !completed {
			finish(slog.LevelWarn, "HTTP request aborted", slog.Bool("aborted", true))
		}
	}()

	next(ctx)
	completed = true
	finish(requestLevel(ctx.Method(), ctx.Status()), "HTTP request completed")
}
