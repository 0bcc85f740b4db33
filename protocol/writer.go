package protocol

import (
	"bufio"
	"io"
)

// Writer provides buffered writing of RESP values
type Writer struct {
	bw      *bufio.Writer
	scratch []byte
}

// NewWriter creates a new RESP protocol writer
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		bw:      bufio.NewWriter(w),
		scratch: make([]byte, 0, 512),
	}
}

// WriteValue writes a RESP value to the output buffer
func (w *Writer) WriteValue(v Value) error {
	buf, err := AppendValue(w.scratch[:0], v)
	if err != nil {
		return err
	}
	w.retain(buf)
	return w.write(buf)
}

// WriteSimpleString writes a simple string
func (w *Writer) WriteSimpleString(s string) error {
	return w.WriteValue(SimpleString(s))
}

// WriteBulkString writes a bulk string
func (w *Writer) WriteBulkString(s string) error {
	return w.WriteValue(BulkString(s))
}

// WriteNull writes a null bulk string
func (w *Writer) WriteNull() error {
	return w.WriteValue(Null())
}

// WriteArray writes an array of values
func (w *Writer) WriteArray(values []Value) error {
	return w.WriteValue(Array(values...))
}

// WriteCommand writes a Redis command as a RESP array of bulk strings
func (w *Writer) WriteCommand(cmd string, args ...string) error {
	items := make([]Value, 0, 1+len(args))
	items = append(items, BulkString(cmd))
	for _, arg := range args {
		items = append(items, BulkString(arg))
	}
	return w.WriteValue(Array(items...))
}

// WriteOK writes a simple "OK" response
func (w *Writer) WriteOK() error {
	return w.WriteSimpleString("OK")
}

// WritePONG writes a simple "PONG" response
func (w *Writer) WritePONG() error {
	return w.WriteSimpleString("PONG")
}

// WriteError writes an error reply. Errors are not part of the Value model;
// servers use this to reject requests. CR and LF in msg are replaced with
// spaces.
func (w *Writer) WriteError(msg string) error {
	buf := append(w.scratch[:0], '-')
	for i := 0; i < len(msg); i++ {
		c := msg[i]
		if c == '\r' || c == '\n' {
			c = ' '
		}
		buf = append(buf, c)
	}
	buf = append(buf, CRLF...)
	w.retain(buf)
	return w.write(buf)
}

// Flush flushes any buffered data to the underlying writer
func (w *Writer) Flush() error {
	if err := w.bw.Flush(); err != nil {
		return &TransportError{Op: "flush", Err: err}
	}
	return nil
}

// Buffered returns the number of bytes waiting to be flushed
func (w *Writer) Buffered() int {
	return w.bw.Buffered()
}

// Reset discards buffered data and writes to a new underlying writer
func (w *Writer) Reset(writer io.Writer) {
	w.bw.Reset(writer)
}

// retain keeps buf for the next reply unless it grew past maxRetainedBuffer
func (w *Writer) retain(buf []byte) {
	if cap(buf) > maxRetainedBuffer {
		w.scratch = make([]byte, 0, 512)
		return
	}
	w.scratch = buf
}

func (w *Writer) write(p []byte) error {
	if _, err := w.bw.Write(p); err != nil {
		return &TransportError{Op: "write", Err: err}
	}
	return nil
}
