package mjpeg

import (
	"errors"
	"io"
	"iter"
)

const defaultReadSize = 32 * 1024

// Scanner reads an MJPEG byte stream and yields frames one at a time.
// It is not restartable: once Next returns false the scanner is spent.
type Scanner struct {
	r         io.Reader
	extractor *Extractor
	readBuf   []byte
	queue     []Frame
	frame     Frame
	err       error
	done      bool
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithMaxFrameSize bounds a single pending frame.
func WithMaxFrameSize(n int) ScannerOption {
	return func(s *Scanner) {
		s.extractor.maxFrameSize = n
	}
}

// WithReadSize sets the size of each read from the underlying reader.
func WithReadSize(n int) ScannerOption {
	return func(s *Scanner) {
		if n > 0 {
			s.readBuf = make([]byte, n)
		}
	}
}

// NewScanner creates a scanner over r.
func NewScanner(r io.Reader, opts ...ScannerOption) *Scanner {
	s := &Scanner{
		r:         r,
		extractor: NewExtractor(0),
		readBuf:   make([]byte, defaultReadSize),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Next blocks until the next frame is available. It returns false at end of
// stream or on a read error; check Err to tell them apart.
func (s *Scanner) Next() bool {
	for len(s.queue) == 0 {
		if s.done {
			s.frame = nil
			return false
		}

		n, err := s.r.Read(s.readBuf)
		if n > 0 {
			s.queue = append(s.queue, s.extractor.Push(s.readBuf[:n])...)
		}
		if err != nil {
			s.done = true
			if !errors.Is(err, io.EOF) {
				s.err = err
			}
		}
	}

	s.frame = s.queue[0]
	s.queue[0] = nil
	s.queue = s.queue[1:]
	return true
}

// Frame returns the frame produced by the last successful call to Next.
func (s *Scanner) Frame() Frame {
	return s.frame
}

// Err returns the first non-EOF read error.
func (s *Scanner) Err() error {
	return s.err
}

// Buffered returns the number of bytes held for an incomplete frame.
func (s *Scanner) Buffered() int {
	return s.extractor.Buffered()
}

// Overflows returns how many oversized partial frames were dropped.
func (s *Scanner) Overflows() int {
	return s.extractor.Overflows()
}

// All returns the remaining frames as an iterator.
func (s *Scanner) All() iter.Seq[Frame] {
	return func(yield func(Frame) bool) {
		for s.Next() {
			if !yield(s.Frame()) {
				return
			}
		}
	}
}
