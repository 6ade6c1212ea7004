package mjpeg

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"testing/iotest"
)

func TestScannerReadsAllFrames(t *testing.T) {
	stream := concat([]byte{0x01}, jpeg(0x10), jpeg(0x20, 0x21), jpeg(0x30))

	// OneByteReader forces every marker to be split across reads.
	s := NewScanner(iotest.OneByteReader(bytes.NewReader(stream)))

	var got []Frame
	for s.Next() {
		got = append(got, s.Frame())
	}

	if err := s.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d frames, want 3", len(got))
	}
	if !bytes.Equal(got[1], jpeg(0x20, 0x21)) {
		t.Errorf("frame 1 = % x", got[1])
	}
	if s.Next() {
		t.Error("Next() returned true on a spent scanner")
	}
}

func TestScannerMultipleFramesPerRead(t *testing.T) {
	stream := concat(jpeg(0x01), jpeg(0x02), jpeg(0x03))
	s := NewScanner(bytes.NewReader(stream), WithReadSize(len(stream)))

	count := 0
	for range s.All() {
		count++
	}
	if count != 3 {
		t.Errorf("got %d frames, want 3", count)
	}
}

func TestScannerPartialTailIsNotEmitted(t *testing.T) {
	stream := concat(jpeg(0x01), []byte{0xFF, 0xD8, 0x02, 0x03})
	s := NewScanner(bytes.NewReader(stream))

	count := 0
	for s.Next() {
		count++
	}
	if count != 1 {
		t.Errorf("got %d frames, want 1", count)
	}
	if s.Buffered() != 4 {
		t.Errorf("Buffered() = %d, want 4", s.Buffered())
	}
}

func TestScannerReadError(t *testing.T) {
	boom := errors.New("boom")
	r := io.MultiReader(bytes.NewReader(jpeg(0x01)), iotest.ErrReader(boom))
	s := NewScanner(r)

	if !s.Next() {
		t.Fatal("expected the frame read before the error")
	}
	if s.Next() {
		t.Fatal("expected Next() to stop at the read error")
	}
	if !errors.Is(s.Err(), boom) {
		t.Errorf("Err() = %v, want %v", s.Err(), boom)
	}
}

func TestScannerAllStopsEarly(t *testing.T) {
	s := NewScanner(bytes.NewReader(concat(jpeg(0x01), jpeg(0x02))))
	for range s.All() {
		break
	}
	if !s.Next() {
		t.Error("second frame should still be available after breaking out of All")
	}
}

func TestScannerMaxFrameSize(t *testing.T) {
	stream := concat([]byte{0xFF, 0xD8}, bytes.Repeat([]byte{0x01}, 64), jpeg(0x02))
	s := NewScanner(iotest.HalfReader(bytes.NewReader(stream)), WithMaxFrameSize(16), WithReadSize(8))

	var got []Frame
	for s.Next() {
		got = append(got, s.Frame())
	}
	if s.Overflows() == 0 {
		t.Error("expected an overflow for the oversized frame")
	}
	if len(got) != 1 || !bytes.Equal(got[0], jpeg(0x02)) {
		t.Errorf("got frames %v, want only the small frame", got)
	}
}
