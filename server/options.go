package server

import (
	"errors"
	"os"
	"time"

	"github.com/zzfab/respkit/internal/logging"
	"github.com/zzfab/respkit/protocol"
)

// ErrInvalidConfig indicates invalid configuration options
var ErrInvalidConfig = errors.New("invalid configuration")

// config holds the configuration for a Server
type config struct {
	addr string

	// Decoding
	decoder     *protocol.Decoder
	limits      protocol.Limits
	allowBinary bool

	// Timeouts
	readTimeout  time.Duration
	writeTimeout time.Duration

	// Observability
	logger Logger
}

// defaultConfig returns a configuration with sensible defaults
func defaultConfig() *config {
	return &config{
		addr:         ":6380",
		limits:       protocol.DefaultLimits(),
		readTimeout:  30 * time.Second,
		writeTimeout: 10 * time.Second,
		logger:       logging.New(os.Stderr, logging.DefaultConfig(logging.ProfileRuntime)),
	}
}

// Option represents a configuration option for a Server
type Option func(*config) error

// WithAddr sets the listen address
//
// Example:
//
//	WithAddr(":6380")
//	WithAddr("127.0.0.1:0")
func WithAddr(addr string) Option {
	return func(c *config) error {
		if addr == "" {
			return ErrInvalidConfig
		}
		c.addr = addr
		return nil
	}
}

// WithDecoder sets the decoder used for every connection. It takes
// precedence over WithLimits and WithAllowBinary.
func WithDecoder(d *protocol.Decoder) Option {
	return func(c *config) error {
		if d == nil {
			return ErrInvalidConfig
		}
		c.decoder = d
		return nil
	}
}

// WithLimits sets the decoding limits. Zero fields keep their defaults.
//
// Example:
//
//	WithLimits(protocol.Limits{MaxDepth: 8, MaxBulkLen: 1 << 20})
func WithLimits(l protocol.Limits) Option {
	return func(c *config) error {
		if l.MaxDepth < 0 || l.MaxBulkLen < 0 || l.MaxArrayLen < 0 || l.MaxLineLen < 0 {
			return ErrInvalidConfig
		}
		c.limits = l
		return nil
	}
}

// WithAllowBinary accepts bulk strings that are not valid UTF-8
func WithAllowBinary(allow bool) Option {
	return func(c *config) error {
		c.allowBinary = allow
		return nil
	}
}

// WithReadTimeout sets how long a connection may stay idle between
// requests. Zero disables the deadline.
//
// Example:
//
//	WithReadTimeout(time.Minute)
func WithReadTimeout(timeout time.Duration) Option {
	return func(c *config) error {
		if timeout < 0 {
			return ErrInvalidConfig
		}
		c.readTimeout = timeout
		return nil
	}
}

// WithWriteTimeout sets the deadline for writing a reply. Zero disables the
// deadline.
func WithWriteTimeout(timeout time.Duration) Option {
	return func(c *config) error {
		if timeout < 0 {
			return ErrInvalidConfig
		}
		c.writeTimeout = timeout
		return nil
	}
}

// WithLogger sets a custom logger
//
// Example:
//
//	WithLogger(logging.New(os.Stdout, logging.DefaultConfig(logging.ProfileRuntime)))
func WithLogger(logger Logger) Option {
	return func(c *config) error {
		if logger == nil {
			return ErrInvalidConfig
		}
		c.logger = logger
		return nil
	}
}

func (c *config) streamDecoder() *protocol.Decoder {
	if c.decoder != nil {
		return c.decoder
	}
	return &protocol.Decoder{Limits: c.limits, AllowBinary: c.allowBinary}
}
