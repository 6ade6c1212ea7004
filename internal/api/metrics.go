package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/camrelay/internal/metrics"
)

// statsInterval is how often /api/metrics pushes relay counters.
const statsInterval = 2 * time.Second

// registerMetricsRoutes registers the relay counters SSE endpoint.
func (s *Server) registerMetricsRoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "metrics-stream",
		Method:      http.MethodGet,
		Path:        "/api/metrics",
		Summary:     "Relay Stats Stream",
		Description: "Periodic snapshot of active streams, transcoders and capture counters",
		Tags:        []string{"metrics"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"relay-stats": metrics.RelayStats{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		ticker := time.NewTicker(statsInterval)
		defer ticker.Stop()

		for {
			if err := send.Data(metrics.Stats()); err != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	})
}
