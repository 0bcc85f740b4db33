package protocol

import (
	"errors"
	"io"
	"slices"
)

const (
	// minReadSize is the free space guaranteed before each read
	minReadSize = 512

	// maxRetainedBuffer is the largest buffer kept after it drains
	maxRetainedBuffer = 64 * 1024

	// maxEmptyReads bounds consecutive zero-byte reads without an error
	maxEmptyReads = 100
)

// Stream reads and writes RESP values over a single connection. It owns a
// growable receive buffer and is not safe for concurrent use; each
// connection should have its own Stream.
type Stream struct {
	rd      io.Reader
	wr      *Writer
	decoder *Decoder

	buf     []byte // buf[start:] holds received bytes not yet decoded
	start   int
	readErr error // error returned together with data by the last read
}

// NewStream creates a Stream over rw. A nil decoder uses the defaults.
func NewStream(rw io.ReadWriter, decoder *Decoder) *Stream {
	if decoder == nil {
		decoder = defaultDecoder
	}
	return &Stream{
		rd:      rw,
		wr:      NewWriter(rw),
		decoder: decoder,
		buf:     make([]byte, 0, minReadSize),
	}
}

// ReadValue returns the next value from the connection.
//
// Values already buffered are returned without reading. Otherwise the
// stream reads until one complete frame is available. ok is false with a nil
// error when the peer closed the connection cleanly between frames. Any
// decode error is terminal for the connection's framing.
func (s *Stream) ReadValue() (v Value, ok bool, err error) {
	empty := 0
	for {
		if s.Buffered() > 0 {
			v, n, err := s.decoder.Decode(s.buf[s.start:])
			if err == nil {
				s.advance(n)
				return v, true, nil
			}
			if !IsIncomplete(err) {
				return Value{}, false, err
			}
		}

		n, err := s.fill()
		if n > 0 {
			empty = 0
			continue
		}

		switch {
		case errors.Is(err, io.EOF):
			if s.Buffered() > 0 {
				return Value{}, false, &TransportError{Op: "read", Err: io.ErrUnexpectedEOF}
			}
			return Value{}, false, nil
		case err != nil:
			return Value{}, false, &TransportError{Op: "read", Err: err}
		}

		empty++
		if empty >= maxEmptyReads {
			return Value{}, false, &TransportError{Op: "read", Err: io.ErrNoProgress}
		}
	}
}

// WriteValue encodes v and writes it to the connection in full
func (s *Stream) WriteValue(v Value) error {
	if err := s.wr.WriteValue(v); err != nil {
		return err
	}
	return s.wr.Flush()
}

// WriteError writes an error reply to the connection
func (s *Stream) WriteError(msg string) error {
	if err := s.wr.WriteError(msg); err != nil {
		return err
	}
	return s.wr.Flush()
}

// Buffered returns the number of received bytes not yet decoded
func (s *Stream) Buffered() int {
	return len(s.buf) - s.start
}

func (s *Stream) advance(n int) {
	s.start += n
	if s.start < len(s.buf) {
		return
	}
	s.start = 0
	if cap(s.buf) > maxRetainedBuffer {
		s.buf = make([]byte, 0, minReadSize)
		return
	}
	s.buf = s.buf[:0]
}

// fill reads once from the connection into the free tail of the buffer
func (s *Stream) fill() (int, error) {
	if s.readErr != nil {
		err := s.readErr
		s.readErr = nil
		return 0, err
	}

	if s.start > 0 {
		n := copy(s.buf, s.buf[s.start:])
		s.buf = s.buf[:n]
		s.start = 0
	}
	if cap(s.buf)-len(s.buf) < minReadSize {
		s.buf = slices.Grow(s.buf, max(minReadSize, len(s.buf)))
	}

	n, err := s.rd.Read(s.buf[len(s.buf):cap(s.buf)])
	s.buf = s.buf[:len(s.buf)+n]
	if n > 0 && err != nil {
		s.readErr = err
		return n, nil
	}
	return n, err
}
