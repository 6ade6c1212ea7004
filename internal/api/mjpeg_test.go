package api

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/smazurov/camrelay/internal/events"
	"github.com/smazurov/camrelay/internal/relay"
)

// readPart reads one multipart/x-mixed-replace part and returns its payload.
func readPart(r *bufio.Reader) ([]byte, error) {
	boundary, err := r.ReadString('\n')
	if err != nil {
		return nil, err
	}
	if boundary != "--frame\r\n" {
		return nil, fmt.Errorf("boundary line = %q", boundary)
	}

	length := -1
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		if line == "\r\n" {
			break
		}
		name, value, _ := strings.Cut(strings.TrimSpace(line), ": ")
		switch name {
		case "Content-Type":
			if value != "image/jpeg" {
				return nil, fmt.Errorf("part content type = %q", value)
			}
		case "Content-Length":
			length, _ = strconv.Atoi(value)
		}
	}
	if length < 0 {
		return nil, fmt.Errorf("part without Content-Length")
	}

	payload := make([]byte, length+2)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	if !bytes.HasSuffix(payload, []byte("\r\n")) {
		return nil, fmt.Errorf("part not terminated by CRLF")
	}
	return payload[:length], nil
}

func TestMJPEGStreamHeadersAndFrames(t *testing.T) {
	script := `for i in 1 2 3; do printf '\377\330f%d\377\331' "$i"; done`
	env := newTestEnv(t, script)

	for _, path := range []string{"/mjpeg-stream", "/api/mjpeg"} {
		t.Run(path, func(t *testing.T) {
			resp, err := http.Get(env.ts.URL + path)
			if err != nil {
				t.Fatalf("GET %s: %v", path, err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d, want 200", resp.StatusCode)
			}

			wantHeaders := map[string]string{
				"Content-Type":                 "multipart/x-mixed-replace; boundary=frame",
				"Cache-Control":                "no-cache, no-store, must-revalidate",
				"Pragma":                       "no-cache",
				"Expires":                      "0",
				"Access-Control-Allow-Origin":  "*",
				"Access-Control-Allow-Methods": "GET",
				"Access-Control-Allow-Headers": "Content-Type",
			}
			for name, want := range wantHeaders {
				if got := resp.Header.Get(name); got != want {
					t.Errorf("%s = %q, want %q", name, got, want)
				}
			}

			r := bufio.NewReader(resp.Body)
			for i := 1; i <= 3; i++ {
				payload, err := readPart(r)
				if err != nil {
					t.Fatalf("part %d: %v", i, err)
				}
				want := fmt.Sprintf("\xff\xd8f%d\xff\xd9", i)
				if string(payload) != want {
					t.Errorf("part %d = %q, want %q", i, payload, want)
				}
			}
			if rest, _ := io.ReadAll(r); len(rest) != 0 {
				t.Errorf("unexpected trailing bytes %q", rest)
			}
		})
	}
}

func TestMJPEGStreamSpawnFailure(t *testing.T) {
	env := newTestEnv(t, jpegScript, func(_ *Options, r *relay.Options) {
		r.Binary = "/nonexistent/ffmpeg"
	})

	resp, err := http.Get(env.ts.URL + "/mjpeg-stream")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "json") {
		t.Errorf("Content-Type = %q, want JSON", ct)
	}

	var body errorBody
	decodeJSON(t, resp, &body)
	if body.Success || body.Error != msgStreamFailed || body.Details.Reason != "spawn" {
		t.Errorf("body = %+v", body)
	}
	if body.Details.Source.Host == "" || body.Details.Source.Port == "" {
		t.Errorf("config summary missing: %+v", body.Details.Source)
	}
}

func TestMJPEGStreamFailsBeforeFirstFrame(t *testing.T) {
	script := `echo "[error] rtsp://admin:pw@cam: 401 Unauthorized" >&2
exit 1`
	env := newTestEnv(t, script)

	resp, err := http.Get(env.ts.URL + "/mjpeg-stream")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	var body errorBody
	decodeJSON(t, resp, &body)
	if body.Details.ExitCode == nil || *body.Details.ExitCode != 1 {
		t.Errorf("exit_code = %v, want 1", body.Details.ExitCode)
	}
	if !strings.Contains(body.Details.Stderr, "401 Unauthorized") || strings.Contains(body.Details.Stderr, "admin:pw") {
		t.Errorf("stderr = %q", body.Details.Stderr)
	}
}

func TestMJPEGStreamTruncatedOnFailure(t *testing.T) {
	script := `printf '\377\330frame\377\331'
sleep 0.1
exit 2`
	env := newTestEnv(t, script)

	resp, err := http.Get(env.ts.URL + "/mjpeg-stream")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	r := bufio.NewReader(resp.Body)
	if _, err := readPart(r); err != nil {
		t.Fatalf("first part: %v", err)
	}
	if _, err := io.ReadAll(r); err == nil {
		t.Error("body ended cleanly, want truncation error")
	}
}

func TestMJPEGStreamClientDisconnect(t *testing.T) {
	script := `while :; do printf '\377\330frame\377\331'; sleep 0.02; done`
	env := newTestEnv(t, script)

	ended := make(chan events.StreamEndedEvent, 1)
	unsub := events.On(env.bus, func(e events.StreamEndedEvent) { ended <- e })
	defer unsub()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, env.ts.URL+"/mjpeg-stream", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}

	r := bufio.NewReader(resp.Body)
	for i := range 3 {
		if _, err := readPart(r); err != nil {
			t.Fatalf("part %d: %v", i, err)
		}
	}
	cancel()
	resp.Body.Close()

	select {
	case e := <-ended:
		if e.Reason != "client_abort" {
			t.Errorf("reason = %q, want client_abort", e.Reason)
		}
		if e.Frames < 3 {
			t.Errorf("frames = %d, want at least 3", e.Frames)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not end after client disconnect")
	}
}
