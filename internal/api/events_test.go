package api

import (
	"bufio"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/smazurov/camrelay/internal/camera"
	"github.com/smazurov/camrelay/internal/events"
)

// sseLines streams the data lines of an SSE response.
func sseLines(t *testing.T, url string) (<-chan string, func()) {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("connecting to SSE: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		t.Fatalf("SSE status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
		resp.Body.Close()
		t.Fatalf("Content-Type = %q, want text/event-stream", ct)
	}

	lines := make(chan string, 32)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Text()
			if strings.HasPrefix(line, "event:") || strings.HasPrefix(line, "data:") {
				lines <- line
			}
		}
		close(lines)
	}()
	return lines, func() { resp.Body.Close() }
}

// waitFor returns the first line containing substr.
func waitFor(t *testing.T, lines <-chan string, substr string) string {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				t.Fatalf("SSE stream closed before %q", substr)
			}
			if strings.Contains(line, substr) {
				return line
			}
		case <-timeout:
			t.Fatalf("timeout waiting for %q", substr)
		}
	}
}

func TestSSECaptureEvents(t *testing.T) {
	env := newTestEnv(t, jpegScript, withAuthCredentials("test", "test"))

	lines, closeStream := sseLines(t, fmt.Sprintf("%s/api/events?auth=%s", env.ts.URL, basicAuth("test", "test")))
	defer closeStream()

	waitFor(t, lines, "SSE connection established")

	req, _ := http.NewRequest(http.MethodPost, env.ts.URL+"/capture-frame", nil)
	req.Header.Set("Authorization", "Basic "+basicAuth("test", "test"))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("capture request: %v", err)
	}
	resp.Body.Close()

	waitFor(t, lines, "event: capture-success")
	data := waitFor(t, lines, `"capture_id"`)
	if !strings.Contains(data, `"size":12`) {
		t.Errorf("capture-success data = %s", data)
	}
}

func TestSSESourceChanged(t *testing.T) {
	env := newTestEnv(t, jpegScript)

	lines, closeStream := sseLines(t, env.ts.URL+"/api/events")
	defer closeStream()
	waitFor(t, lines, "SSE connection established")

	src := camera.Source{Host: "10.9.8.7", Password: "topsecret"}.WithDefaults()
	env.bus.Publish(events.SourceChangedEvent{
		Source:    src.Details(),
		Timestamp: time.Now().Format(time.RFC3339),
	})

	waitFor(t, lines, "event: source-changed")
	data := waitFor(t, lines, "10.9.8.7")
	if strings.Contains(data, "topsecret") {
		t.Errorf("source-changed leaks credentials: %s", data)
	}
}

func TestSSEAuthFailure(t *testing.T) {
	env := newTestEnv(t, jpegScript, withAuthCredentials("test", "test"))

	for _, query := range []string{"", "?auth=" + basicAuth("wrong", "wrong")} {
		resp, err := http.Get(env.ts.URL + "/api/events" + query)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("query %q: status = %d, want 401", query, resp.StatusCode)
		}
	}
}
