package mjpeg

import (
	"fmt"
	"io"
	"net/http"
)

// Boundary is the multipart boundary token used for every stream.
const Boundary = "frame"

// ContentType returns the response content type for a stream.
func ContentType() string {
	return "multipart/x-mixed-replace; boundary=" + Boundary
}

var partTrailer = []byte("\r\n")

// PartWriter writes frames as multipart/x-mixed-replace parts.
type PartWriter struct {
	w       io.Writer
	flusher http.Flusher
	header  []byte
	frames  int
	bytes   int64
}

// NewPartWriter creates a writer. If w implements http.Flusher each part is
// flushed as soon as it is written.
func NewPartWriter(w io.Writer) *PartWriter {
	pw := &PartWriter{w: w}
	if f, ok := w.(http.Flusher); ok {
		pw.flusher = f
	}
	return pw
}

// WriteFrame writes one complete part: boundary, headers, blank line,
// frame bytes and trailing CRLF.
func (pw *PartWriter) WriteFrame(f Frame) error {
	pw.header = fmt.Appendf(pw.header[:0],
		"--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", Boundary, len(f))

	if _, err := pw.w.Write(pw.header); err != nil {
		return fmt.Errorf("write part header: %w", err)
	}
	if _, err := pw.w.Write(f); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	if _, err := pw.w.Write(partTrailer); err != nil {
		return fmt.Errorf("write part trailer: %w", err)
	}

	if pw.flusher != nil {
		pw.flusher.Flush()
	}

	pw.frames++
	pw.bytes += int64(len(f))
	return nil
}

// Frames returns the number of parts written.
func (pw *PartWriter) Frames() int {
	return pw.frames
}

// Bytes returns the total frame payload written, excluding part headers.
func (pw *PartWriter) Bytes() int64 {
	return pw.bytes
}
