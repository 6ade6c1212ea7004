package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestStatusClass(t *testing.T) {
	tests := map[int]string{
		200: "2xx",
		204: "2xx",
		401: "4xx",
		408: "4xx",
		499: "499",
		500: "5xx",
		0:   "other",
		700: "other",
	}
	for status, want := range tests {
		if got := StatusClass(status); got != want {
			t.Errorf("StatusClass(%d) = %q, want %q", status, got, want)
		}
	}
}

func TestObserveHTTPRequest(t *testing.T) {
	counter := httpRequests.WithLabelValues("/capture-frame", "POST", "4xx")
	before := testutil.ToFloat64(counter)

	ObserveHTTPRequest("/capture-frame", "POST", 408, 30*time.Second)

	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("requests delta = %v, want 1", got)
	}
}
