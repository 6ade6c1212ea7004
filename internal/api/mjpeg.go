package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/camrelay/internal/mjpeg"
	"github.com/smazurov/camrelay/internal/relay"
)

// streamHeaders are sent with every live stream response.
var streamHeaders = [][2]string{
	{"Cache-Control", "no-cache, no-store, must-revalidate"},
	{"Pragma", "no-cache"},
	{"Expires", "0"},
	{"Access-Control-Allow-Origin", "*"},
	{"Access-Control-Allow-Methods", "GET"},
	{"Access-Control-Allow-Headers", "Content-Type"},
	{"Connection", "keep-alive"},
}

// registerMJPEGRoutes registers the live MJPEG stream endpoints.
func (s *Server) registerMJPEGRoutes() {
	handler := func(ctx context.Context, _ *struct{}) (*huma.StreamResponse, error) {
		stream, err := s.relay.OpenStream(ctx)
		if err != nil {
			return nil, streamError(err)
		}
		return &huma.StreamResponse{
			Body: func(hctx huma.Context) {
				s.serveMJPEG(hctx, stream)
			},
		}, nil
	}

	for _, op := range []struct{ id, path string }{
		{"mjpeg-stream", "/mjpeg-stream"},
		{"api-mjpeg-stream", "/api/mjpeg"},
	} {
		huma.Register(s.api, huma.Operation{
			OperationID: op.id,
			Method:      http.MethodGet,
			Path:        op.path,
			Summary:     "Live MJPEG Stream",
			Description: "Relay the camera as multipart/x-mixed-replace JPEG frames until the client disconnects",
			Tags:        []string{"camera"},
			Security:    withAuth(),
			Errors:      []int{401, 500},
			Responses: map[string]*huma.Response{
				"200": {
					Description: "Endless sequence of image/jpeg parts",
					Content: map[string]*huma.MediaType{
						mjpeg.ContentType(): {},
					},
				},
			},
		}, handler)
	}
}

// serveMJPEG relays frames to the client. Headers are committed with the
// first frame, so a transcoder that dies before producing anything still
// gets a JSON error response. After that, a failure can only truncate the body.
func (s *Server) serveMJPEG(hctx huma.Context, stream *relay.Stream) {
	ctx := hctx.Context()
	logger := s.logger.With("stream_id", stream.ID())

	var pw *mjpeg.PartWriter
	commit := func() {
		hctx.SetHeader("Content-Type", mjpeg.ContentType())
		for _, h := range streamHeaders {
			hctx.SetHeader(h[0], h[1])
		}
		hctx.SetStatus(http.StatusOK)
		pw = mjpeg.NewPartWriter(hctx.BodyWriter())
	}

	err := stream.Run(ctx, func(f mjpeg.Frame) error {
		if pw == nil {
			commit()
		}
		return pw.WriteFrame(f)
	})

	switch {
	case err == nil && pw == nil && ctx.Err() == nil:
		// Transcoder finished cleanly without a frame.
		commit()
	case err == nil:
	case pw == nil:
		re := streamError(err)
		hctx.SetHeader("Content-Type", "application/json")
		hctx.SetStatus(re.GetStatus())
		if mErr := s.api.Marshal(hctx.BodyWriter(), "application/json", re); mErr != nil {
			logger.Warn("Failed to write stream error response", "error", mErr)
		}
	default:
		logger.Warn("MJPEG stream truncated", "frames", pw.Frames(), "error", err)
		// Abort the connection so the client sees a truncated body, not a clean end.
		panic(http.ErrAbortHandler)
	}
}
