package protocol

import (
	"bytes"
	"unicode/utf8"
)

// Decoder turns byte buffers into Values. The zero value is ready to use
// with DefaultLimits and UTF-8 validation. A Decoder holds no per-call state
// and may be shared between connections.
type Decoder struct {
	// Limits bounds lengths, counts and nesting depth
	Limits Limits

	// AllowBinary disables UTF-8 validation of string payloads. Encode
	// accepts any bytes, so values holding non-UTF-8 data only round-trip
	// through a decoder with AllowBinary set.
	AllowBinary bool
}

var defaultDecoder = &Decoder{}

// Decode decodes exactly one value from the start of buf using the default
// decoder. It returns the value and the number of bytes it occupies.
func Decode(buf []byte) (Value, int, error) {
	return defaultDecoder.Decode(buf)
}

// Decode decodes exactly one value from the start of buf and returns it with
// the number of bytes consumed. When buf holds only a prefix of a frame the
// error satisfies IsIncomplete and the caller should retry with more bytes.
//
// The frame is measured before any value is built, so retrying on a growing
// buffer does not copy payloads that were already received.
func (d *Decoder) Decode(buf []byte) (Value, int, error) {
	limits := d.Limits.withDefaults()
	if _, err := d.frameLen(buf, 0, 0, &limits); err != nil {
		return Value{}, 0, err
	}
	return d.decodeAt(buf, 0, 0, &limits)
}

// frameLen checks the framing of the value at buf[off] and returns its length
// without allocating
func (d *Decoder) frameLen(buf []byte, off, depth int, limits *Limits) (int, error) {
	if off >= len(buf) {
		return 0, newError(ErrTruncatedFrame, off, "missing type byte")
	}

	switch ValueType(buf[off]) {
	case TypeSimpleString:
		_, n, err := d.readHeader(buf, off, limits)
		return n, err
	case TypeBulkString:
		_, _, n, err := d.bulkSpan(buf, off, limits)
		return n, err
	case TypeArray:
		count, header, err := d.arrayHeader(buf, off, depth, limits)
		if err != nil || count < 0 {
			return header, err
		}
		consumed := header
		for i := 0; i < count; i++ {
			n, err := d.frameLen(buf, off+consumed, depth+1, limits)
			if err != nil {
				return 0, err
			}
			consumed += n
		}
		return consumed, nil
	default:
		return 0, newError(ErrUnknownType, off, "%q (0x%02x)", buf[off], buf[off])
	}
}

// readHeader returns the header text following the prefix byte at buf[off]
// and the header length including prefix and CRLF. The scan never looks
// further than the line limit.
func (d *Decoder) readHeader(buf []byte, off int, limits *Limits) ([]byte, int, error) {
	start := off + 1
	end := len(buf)
	if limits.MaxLineLen < end-start-len(CRLF) {
		end = start + limits.MaxLineLen + len(CRLF)
	}

	line, n, ok := ReadLine(buf[start:end])
	if !ok {
		if end-start-len(CRLF) >= limits.MaxLineLen {
			return nil, 0, newError(ErrLimitExceeded, off, "header longer than %d bytes", limits.MaxLineLen)
		}
		return nil, 0, newError(ErrMalformedHeader, off, "")
	}
	return line, n + 1, nil
}

// readLength parses the decimal header of a bulk string or array. A length
// of -1 is reported as null.
func (d *Decoder) readLength(buf []byte, off int, limits *Limits) (length int64, header int, null bool, err error) {
	line, header, err := d.readHeader(buf, off, limits)
	if err != nil {
		return 0, 0, false, err
	}

	length, perr := parseInt64(line)
	if perr != nil {
		return 0, 0, false, newError(ErrInvalidLength, off, "%q: %v", line, perr)
	}
	if length == -1 {
		return 0, header, true, nil
	}
	if length < 0 {
		return 0, 0, false, newError(ErrInvalidLength, off, "negative length %d", length)
	}
	return length, header, false, nil
}

func (d *Decoder) decodeSimpleString(buf []byte, off int, limits *Limits) (Value, int, error) {
	line, n, err := d.readHeader(buf, off, limits)
	if err != nil {
		return Value{}, 0, err
	}
	if bytes.ContainsAny(line, CRLF) {
		return Value{}, 0, newError(ErrInvalidSimpleString, off, "%q", line)
	}
	if !d.AllowBinary && !utf8.Valid(line) {
		return Value{}, 0, newError(ErrInvalidEncoding, off, "simple string is not valid UTF-8")
	}
	return SimpleString(string(line)), n, nil
}

// bulkSpan validates the bulk string at buf[off] and returns the payload
// bounds and the frame length. A null bulk string has start == end == -1.
func (d *Decoder) bulkSpan(buf []byte, off int, limits *Limits) (start, end, n int, err error) {
	length, header, null, err := d.readLength(buf, off, limits)
	if err != nil {
		return 0, 0, 0, err
	}
	if null {
		return -1, -1, header, nil
	}
	if length > int64(limits.MaxBulkLen) {
		return 0, 0, 0, newError(ErrLimitExceeded, off, "bulk length %d exceeds %d", length, limits.MaxBulkLen)
	}

	// Compare against what is buffered before doing int arithmetic on the
	// declared length.
	start = off + header
	if length >= int64(len(buf)-start) {
		return 0, 0, 0, newError(ErrTruncatedFrame, off, "need %d payload bytes, have %d", length, len(buf)-start)
	}
	end = start + int(length)

	// Reject a wrong terminator as soon as its first byte is visible.
	if buf[end] != '\r' || (end+1 < len(buf) && buf[end+1] != '\n') {
		return 0, 0, 0, newError(ErrInvalidLength, off, "payload of %d bytes not followed by CRLF", length)
	}
	if end+len(CRLF) > len(buf) {
		return 0, 0, 0, newError(ErrTruncatedFrame, off, "missing payload terminator")
	}
	return start, end, end + len(CRLF) - off, nil
}

func (d *Decoder) decodeBulkString(buf []byte, off int, limits *Limits) (Value, int, error) {
	start, end, n, err := d.bulkSpan(buf, off, limits)
	if err != nil {
		return Value{}, 0, err
	}
	if start < 0 {
		return Null(), n, nil
	}

	payload := buf[start:end]
	if !d.AllowBinary && !utf8.Valid(payload) {
		return Value{}, 0, newError(ErrInvalidEncoding, off, "bulk string is not valid UTF-8")
	}
	return BulkBytes(payload), n, nil
}

// arrayHeader validates an array header. A null array has count -1.
func (d *Decoder) arrayHeader(buf []byte, off, depth int, limits *Limits) (count, header int, err error) {
	n, header, null, err := d.readLength(buf, off, limits)
	if err != nil {
		return 0, 0, err
	}
	if null {
		return -1, header, nil
	}
	if n > int64(limits.MaxArrayLen) {
		return 0, 0, newError(ErrLimitExceeded, off, "array count %d exceeds %d", n, limits.MaxArrayLen)
	}
	if depth >= limits.MaxDepth {
		return 0, 0, newError(ErrDepthExceeded, off, "depth %d", depth+1)
	}
	return int(n), header, nil
}

func (d *Decoder) decodeArray(buf []byte, off, depth int, limits *Limits) (Value, int, error) {
	count, header, err := d.arrayHeader(buf, off, depth, limits)
	if err != nil {
		return Value{}, 0, err
	}
	if count < 0 {
		return Null(), header, nil
	}

	// The smallest element ("+\r\n") is three bytes; size the slice from
	// what the buffer can actually hold.
	capacity := count
	if avail := (len(buf) - off - header) / 3; avail < capacity {
		capacity = avail
	}

	items := make([]Value, 0, capacity)
	consumed := header
	for i := 0; i < count; i++ {
		item, n, err := d.decodeAt(buf, off+consumed, depth+1, limits)
		if err != nil {
			return Value{}, 0, err
		}
		items = append(items, item)
		consumed += n
	}

	return Array(items...), consumed, nil
}
