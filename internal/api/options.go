package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/camrelay/internal/api/models"
	"github.com/smazurov/camrelay/internal/ffmpeg"
)

// registerOptionsRoutes registers the transcoder options endpoint.
func (s *Server) registerOptionsRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-transcoder-options",
		Method:      http.MethodGet,
		Path:        "/api/transcoder/options",
		Summary:     "Get Transcoder Options",
		Description: "List the transcoder input options with categories, conflicts and per-mode defaults",
		Tags:        []string{"configuration"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.OptionsResponse, error) {
		categories := make(map[string][]ffmpeg.Option)
		for category, opts := range ffmpeg.GetOptionsByCategory() {
			categories[string(category)] = opts
		}

		defaults := make(map[string][]string)
		for _, mode := range []ffmpeg.Mode{ffmpeg.ModeSingleFrame, ffmpeg.ModeContinuous} {
			keys := []string{}
			for _, key := range ffmpeg.GetDefaultOptions(mode) {
				keys = append(keys, string(key))
			}
			defaults[string(mode)] = keys
		}

		return &models.OptionsResponse{
			Body: models.OptionsData{
				Options:    ffmpeg.AllOptions,
				Categories: categories,
				Defaults:   defaults,
			},
		}, nil
	})
}
