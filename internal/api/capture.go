package api

import (
	"context"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/camrelay/internal/api/models"
)

// registerCaptureRoutes registers the single-frame capture endpoints.
func (s *Server) registerCaptureRoutes() {
	handler := func(ctx context.Context, _ *struct{}) (*models.CaptureResponse, error) {
		snap, err := s.relay.Capture(ctx)
		if err != nil {
			if ctx.Err() != nil {
				// Client is gone; nothing will read the body.
				return nil, huma.NewError(statusClientClosed, "Client closed request")
			}
			return nil, captureError(err)
		}

		return &models.CaptureResponse{
			Body: models.CaptureData{
				Success:   true,
				Image:     base64.StdEncoding.EncodeToString(snap.Image),
				Size:      snap.Size,
				Timestamp: snap.Timestamp.UTC().Format(time.RFC3339),
			},
		}, nil
	}

	for _, op := range []struct{ id, path string }{
		{"capture-frame", "/capture-frame"},
		{"api-capture-frame", "/api/capture-frame"},
	} {
		huma.Register(s.api, huma.Operation{
			OperationID: op.id,
			Method:      http.MethodPost,
			Path:        op.path,
			Summary:     "Capture Frame",
			Description: "Capture one JPEG frame from the camera and return it base64-encoded",
			Tags:        []string{"camera"},
			Security:    withAuth(),
			Errors:      []int{401, 408, 500},
		}, handler)
	}
}
