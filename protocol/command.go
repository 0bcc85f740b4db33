package protocol

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidCommand is returned by ParseCommand for anything that is not
	// a non-empty array of bulk strings
	ErrInvalidCommand = errors.New("invalid command format")
)

// Command represents a Redis command parsed from a RESP array
type Command struct {
	Name string
	Args []string
}

// ParseCommand parses a RESP array value into a Command
func ParseCommand(v Value) (*Command, error) {
	if v.Type != TypeArray || len(v.Array) == 0 {
		return nil, ErrInvalidCommand
	}

	// First element is the command name
	if v.Array[0].Type != TypeBulkString {
		return nil, fmt.Errorf("%w: command name must be bulk string", ErrInvalidCommand)
	}

	cmd := &Command{
		Name: strings.ToUpper(v.Array[0].Str),
		Args: make([]string, len(v.Array)-1),
	}

	for i := 1; i < len(v.Array); i++ {
		if v.Array[i].Type != TypeBulkString {
			return nil, fmt.Errorf("%w: command arguments must be bulk strings", ErrInvalidCommand)
		}
		cmd.Args[i-1] = v.Array[i].Str
	}

	return cmd, nil
}

// Value returns the command as a RESP array of bulk strings
func (c *Command) Value() Value {
	items := make([]Value, 0, 1+len(c.Args))
	items = append(items, BulkString(c.Name))
	for _, arg := range c.Args {
		items = append(items, BulkString(arg))
	}
	return Array(items...)
}

// String returns a string representation of the command
func (c *Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}
