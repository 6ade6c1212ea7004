package mjpeg

import (
	"bytes"
	"errors"
	"net/http/httptest"
	"testing"
)

func TestContentType(t *testing.T) {
	if got := ContentType(); got != "multipart/x-mixed-replace; boundary=frame" {
		t.Errorf("ContentType() = %q", got)
	}
}

func TestPartWriterLayout(t *testing.T) {
	var buf bytes.Buffer
	pw := NewPartWriter(&buf)

	frame := Frame(jpeg(0x01, 0x02))
	if err := pw.WriteFrame(frame); err != nil {
		t.Fatalf("WriteFrame() error = %v", err)
	}
	if err := pw.WriteFrame(frame); err != nil {
		t.Fatalf("WriteFrame() error = %v", err)
	}

	part := concat(
		[]byte("--frame\r\nContent-Type: image/jpeg\r\nContent-Length: 6\r\n\r\n"),
		frame,
		[]byte("\r\n"),
	)
	want := concat(part, part)
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("output mismatch\n got: %q\nwant: %q", buf.Bytes(), want)
	}
	if pw.Frames() != 2 {
		t.Errorf("Frames() = %d, want 2", pw.Frames())
	}
	if pw.Bytes() != 12 {
		t.Errorf("Bytes() = %d, want 12", pw.Bytes())
	}
}

func TestPartWriterFlushes(t *testing.T) {
	rec := httptest.NewRecorder()
	pw := NewPartWriter(rec)

	if err := pw.WriteFrame(Frame(jpeg())); err != nil {
		t.Fatalf("WriteFrame() error = %v", err)
	}
	if !rec.Flushed {
		t.Error("expected the recorder to be flushed after a part")
	}
}

type failingWriter struct{ after int }

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.after <= 0 {
		return 0, errors.New("client gone")
	}
	w.after--
	return len(p), nil
}

func TestPartWriterPropagatesWriteErrors(t *testing.T) {
	for after := range 3 {
		pw := NewPartWriter(&failingWriter{after: after})
		if err := pw.WriteFrame(Frame(jpeg(0x01))); err == nil {
			t.Errorf("after=%d: expected error", after)
		}
		if pw.Frames() != 0 {
			t.Errorf("after=%d: Frames() = %d, want 0", after, pw.Frames())
		}
	}
}
