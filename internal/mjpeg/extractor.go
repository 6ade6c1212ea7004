package mjpeg

import "bytes"

var (
	soiMarker = []byte{0xFF, 0xD8}
	eoiMarker = []byte{0xFF, 0xD9}
)

// Frame is one complete JPEG image, SOI through EOI inclusive.
// Frames returned by the Extractor are never modified afterwards.
type Frame []byte

// Len returns the frame size in bytes.
func (f Frame) Len() int {
	return len(f)
}

// Extractor accumulates chunks and yields complete frames.
//
// The buffer is offset tracked: consumed bytes are skipped by advancing an
// offset and dropped in a single compaction at the end of every Push.
type Extractor struct {
	buf     []byte
	off     int  // bytes before off are consumed
	inFrame bool // buf[off:] starts with SOI
	eoiFrom int  // where the EOI search resumes while inFrame

	maxFrameSize int
	overflows    int
}

// NewExtractor creates an extractor. maxFrameSize bounds a pending partial
// frame; zero disables the bound.
func NewExtractor(maxFrameSize int) *Extractor {
	return &Extractor{maxFrameSize: maxFrameSize}
}

// Push appends chunk and returns every frame completed by it, in order.
// chunk is copied and may be reused by the caller.
func (e *Extractor) Push(chunk []byte) []Frame {
	e.buf = append(e.buf, chunk...)

	var frames []Frame
	for {
		if !e.inFrame {
			i := bytes.Index(e.buf[e.off:], soiMarker)
			if i < 0 {
				// Everything scanned is garbage except a trailing 0xFF,
				// which may be the first half of a split SOI.
				e.off = max(e.off, len(e.buf)-1)
				break
			}
			e.off += i
			e.inFrame = true
			e.eoiFrom = e.off + len(soiMarker)
		}

		j := bytes.Index(e.buf[e.eoiFrom:], eoiMarker)
		if j < 0 {
			e.eoiFrom = max(e.off+len(soiMarker), len(e.buf)-1)
			if e.maxFrameSize > 0 && len(e.buf)-e.off > e.maxFrameSize {
				e.overflows++
				e.off = len(e.buf)
				e.inFrame = false
			}
			break
		}

		end := e.eoiFrom + j + len(eoiMarker)
		frame := make(Frame, end-e.off)
		copy(frame, e.buf[e.off:end])
		frames = append(frames, frame)

		e.off = end
		e.inFrame = false
	}

	e.compact()
	return frames
}

// compact drops consumed bytes so memory stays bounded by one partial frame.
func (e *Extractor) compact() {
	if e.off == 0 {
		return
	}
	n := copy(e.buf, e.buf[e.off:])
	e.buf = e.buf[:n]
	if e.inFrame {
		e.eoiFrom -= e.off
	}
	e.off = 0
}

// Buffered returns the number of retained bytes awaiting more data.
func (e *Extractor) Buffered() int {
	return len(e.buf) - e.off
}

// Overflows returns how many partial frames were dropped for exceeding maxFrameSize.
func (e *Extractor) Overflows() int {
	return e.overflows
}
