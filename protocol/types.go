package protocol

import (
	"fmt"
	"strings"
)

// ValueType represents the type of a RESP value
type ValueType byte

const (
	// RESP value types, tagged by their wire prefix
	TypeSimpleString ValueType = '+'
	TypeBulkString   ValueType = '$'
	TypeArray        ValueType = '*'

	// TypeNull has no prefix of its own; it is written as a null bulk string
	TypeNull ValueType = 'N'
)

// String returns a readable name for the type
func (t ValueType) String() string {
	switch t {
	case TypeSimpleString:
		return "simple-string"
	case TypeBulkString:
		return "bulk-string"
	case TypeArray:
		return "array"
	case TypeNull:
		return "null"
	default:
		return fmt.Sprintf("unknown(0x%02x)", byte(t))
	}
}

// Value represents a decoded or encodable RESP value.
//
// Str holds the text of simple and bulk strings, Array the elements of an
// array. A Value never shares memory with the buffer it was decoded from.
type Value struct {
	Type  ValueType
	Str   string
	Array []Value
}

// SimpleString returns a simple string value
func SimpleString(s string) Value {
	return Value{Type: TypeSimpleString, Str: s}
}

// BulkString returns a bulk string value
func BulkString(s string) Value {
	return Value{Type: TypeBulkString, Str: s}
}

// BulkBytes returns a bulk string value holding a copy of b
func BulkBytes(b []byte) Value {
	return Value{Type: TypeBulkString, Str: string(b)}
}

// Array returns an array value holding items in order
func Array(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{Type: TypeArray, Array: items}
}

// Null returns the null value
func Null() Value {
	return Value{Type: TypeNull}
}

// IsNull reports whether v is the null value
func (v Value) IsNull() bool {
	return v.Type == TypeNull
}

// Len returns the number of bytes of a string value or the number of
// elements of an array.
func (v Value) Len() int {
	if v.Type == TypeArray {
		return len(v.Array)
	}
	return len(v.Str)
}

// Bytes returns the text of a string value as a new byte slice
func (v Value) Bytes() []byte {
	return []byte(v.Str)
}

// String returns a string representation of the value
func (v Value) String() string {
	switch v.Type {
	case TypeSimpleString, TypeBulkString:
		return v.Str
	case TypeArray:
		parts := make([]string, len(v.Array))
		for i, item := range v.Array {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case TypeNull:
		return "(nil)"
	default:
		return fmt.Sprintf("unknown type %c", v.Type)
	}
}

// Equal reports whether v and o have the same type and contents.
// A nil array and an empty array are equal.
func (v Value) Equal(o Value) bool {
	if v.Type != o.Type {
		return false
	}
	switch v.Type {
	case TypeArray:
		if len(v.Array) != len(o.Array) {
			return false
		}
		for i := range v.Array {
			if !v.Array[i].Equal(o.Array[i]) {
				return false
			}
		}
		return true
	case TypeNull:
		return true
	default:
		return v.Str == o.Str
	}
}

// Clone returns a deep copy of v. Strings are immutable and shared.
func (v Value) Clone() Value {
	if v.Type != TypeArray {
		return v
	}
	items := make([]Value, len(v.Array))
	for i, item := range v.Array {
		items[i] = item.Clone()
	}
	return Value{Type: TypeArray, Array: items}
}
