package protocol

import (
	"strconv"
	"strings"
)

// Encode returns the wire representation of v
func Encode(v Value) ([]byte, error) {
	return AppendValue(make([]byte, 0, EncodedLen(v)), v)
}

// AppendValue appends the wire representation of v to dst and returns the
// extended slice. On error dst is returned unchanged.
func AppendValue(dst []byte, v Value) ([]byte, error) {
	out, err := appendValue(dst, v)
	if err != nil {
		return dst, err
	}
	return out, nil
}

func appendValue(dst []byte, v Value) ([]byte, error) {
	switch v.Type {
	case TypeSimpleString:
		if strings.ContainsAny(v.Str, CRLF) {
			return dst, &ProtocolError{Err: ErrInvalidSimpleString, Detail: strconv.Quote(v.Str)}
		}
		dst = append(dst, byte(TypeSimpleString))
		dst = append(dst, v.Str...)
		return append(dst, CRLF...), nil

	case TypeBulkString:
		dst = append(dst, byte(TypeBulkString))
		dst = strconv.AppendInt(dst, int64(len(v.Str)), 10)
		dst = append(dst, CRLF...)
		dst = append(dst, v.Str...)
		return append(dst, CRLF...), nil

	case TypeNull:
		return append(dst, "$-1\r\n"...), nil

	case TypeArray:
		dst = append(dst, byte(TypeArray))
		dst = strconv.AppendInt(dst, int64(len(v.Array)), 10)
		dst = append(dst, CRLF...)
		for _, item := range v.Array {
			var err error
			if dst, err = appendValue(dst, item); err != nil {
				return dst, err
			}
		}
		return dst, nil

	default:
		return dst, &ProtocolError{Err: ErrUnknownType, Detail: v.Type.String()}
	}
}

// EncodedLen returns the number of bytes Encode produces for v
func EncodedLen(v Value) int {
	switch v.Type {
	case TypeSimpleString:
		return 1 + len(v.Str) + 2
	case TypeBulkString:
		return 1 + decimalLen(len(v.Str)) + 2 + len(v.Str) + 2
	case TypeNull:
		return 5
	case TypeArray:
		n := 1 + decimalLen(len(v.Array)) + 2
		for _, item := range v.Array {
			n += EncodedLen(item)
		}
		return n
	default:
		return 0
	}
}

func decimalLen(n int) int {
	l := 1
	for n >= 10 {
		n /= 10
		l++
	}
	return l
}
