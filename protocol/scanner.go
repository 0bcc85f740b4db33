package protocol

import (
	"bytes"
	"strconv"
)

// CRLF is the Redis protocol line terminator
const CRLF = "\r\n"

var crlfBytes = []byte(CRLF)

// ReadLine returns the bytes of buf before the first CRLF and the number of
// bytes consumed including the CRLF. ok is false if buf holds no CRLF.
// The returned line aliases buf.
func ReadLine(buf []byte) (line []byte, n int, ok bool) {
	i := bytes.Index(buf, crlfBytes)
	if i < 0 {
		return nil, 0, false
	}
	return buf[:i], i + 2, true
}

// parseInt64 parses a decimal int64 from a byte slice without allocation
func parseInt64(b []byte) (int64, error) {
	if len(b) == 0 {
		return 0, strconv.ErrSyntax
	}

	var neg bool
	var i int

	switch b[0] {
	case '-':
		neg = true
		i = 1
	case '+':
		i = 1
	}

	if i >= len(b) {
		return 0, strconv.ErrSyntax
	}

	var n int64
	for ; i < len(b); i++ {
		if b[i] < '0' || b[i] > '9' {
			return 0, strconv.ErrSyntax
		}

		d := int64(b[i] - '0')
		if n > (1<<63-1-d)/10 {
			return 0, strconv.ErrRange
		}

		n = n*10 + d
	}

	if neg {
		return -n, nil
	}
	return n, nil
}
