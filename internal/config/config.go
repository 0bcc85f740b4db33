// Package config loads respd settings from a TOML file and RESPD_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/zzfab/respkit/internal/logging"
	"github.com/zzfab/respkit/protocol"
)

const (
	EnvAddr         = "RESPD_ADDR"
	EnvReadTimeout  = "RESPD_READ_TIMEOUT"
	EnvWriteTimeout = "RESPD_WRITE_TIMEOUT"
	EnvMaxDepth     = "RESPD_MAX_DEPTH"
	EnvMaxArrayLen  = "RESPD_MAX_ARRAY_LEN"
	EnvMaxBulkLen   = "RESPD_MAX_BULK_LEN"
	EnvMaxLineLen   = "RESPD_MAX_LINE_LEN"
	EnvAllowBinary  = "RESPD_ALLOW_BINARY"
)

// ErrInvalid is wrapped by every validation failure
var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Limits       protocol.Limits
	AllowBinary  bool
	Log          logging.Config
}

func Default() Config {
	return Config{
		Addr:         ":6380",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Second,
		Limits:       protocol.DefaultLimits(),
		Log:          logging.DefaultConfig(logging.ProfileRuntime),
	}
}

type fileConfig struct {
	Addr         string `toml:"addr"`
	ReadTimeout  string `toml:"read_timeout"`
	WriteTimeout string `toml:"write_timeout"`
	MaxDepth     int    `toml:"max_depth"`
	MaxArrayLen  int    `toml:"max_array_len"`
	MaxBulkLen   int    `toml:"max_bulk_len"`
	MaxLineLen   int    `toml:"max_line_len"`
	AllowBinary  bool   `toml:"allow_binary"`

	Log logging.Config `toml:"log"`
}

// Load returns the defaults overlaid with the keys defined in the TOML file
// at path
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	if meta.IsDefined("addr") {
		cfg.Addr = strings.TrimSpace(raw.Addr)
	}

	if meta.IsDefined("read_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ReadTimeout))
		if err != nil {
			return Config{}, fmt.Errorf("parse read_timeout: %w", err)
		}
		cfg.ReadTimeout = d
	}

	if meta.IsDefined("write_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.WriteTimeout))
		if err != nil {
			return Config{}, fmt.Errorf("parse write_timeout: %w", err)
		}
		cfg.WriteTimeout = d
	}

	if meta.IsDefined("max_depth") {
		cfg.Limits.MaxDepth = raw.MaxDepth
	}
	if meta.IsDefined("max_array_len") {
		cfg.Limits.MaxArrayLen = raw.MaxArrayLen
	}
	if meta.IsDefined("max_bulk_len") {
		cfg.Limits.MaxBulkLen = raw.MaxBulkLen
	}
	if meta.IsDefined("max_line_len") {
		cfg.Limits.MaxLineLen = raw.MaxLineLen
	}
	if meta.IsDefined("allow_binary") {
		cfg.AllowBinary = raw.AllowBinary
	}

	if meta.IsDefined("log", "level") {
		cfg.Log.Level = strings.TrimSpace(raw.Log.Level)
	}
	if meta.IsDefined("log", "timestamp") {
		cfg.Log.Timestamp = raw.Log.Timestamp
	}
	if meta.IsDefined("log", "no_color") {
		cfg.Log.NoColor = raw.Log.NoColor
	}
	if meta.IsDefined("log", "json") {
		cfg.Log.JSON = raw.Log.JSON
	}

	return cfg, nil
}

// ApplyEnv overrides c from RESPD_* variables
func (c *Config) ApplyEnv() error {
	if addr := os.Getenv(EnvAddr); addr != "" {
		c.Addr = addr
	}

	for _, d := range []struct {
		env string
		dst *time.Duration
	}{
		{EnvReadTimeout, &c.ReadTimeout},
		{EnvWriteTimeout, &c.WriteTimeout},
	} {
		raw := strings.TrimSpace(os.Getenv(d.env))
		if raw == "" {
			continue
		}
		v, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("parse %s: %w", d.env, err)
		}
		*d.dst = v
	}

	for _, n := range []struct {
		env string
		dst *int
	}{
		{EnvMaxDepth, &c.Limits.MaxDepth},
		{EnvMaxArrayLen, &c.Limits.MaxArrayLen},
		{EnvMaxBulkLen, &c.Limits.MaxBulkLen},
		{EnvMaxLineLen, &c.Limits.MaxLineLen},
	} {
		raw := strings.TrimSpace(os.Getenv(n.env))
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("parse %s: %w", n.env, err)
		}
		*n.dst = v
	}

	if raw := strings.TrimSpace(os.Getenv(EnvAllowBinary)); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvAllowBinary, err)
		}
		c.AllowBinary = v
	}

	logging.ApplyEnv(&c.Log)
	return nil
}

// Validate reports settings the server would reject
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalid)
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 {
		return fmt.Errorf("%w: timeouts must not be negative", ErrInvalid)
	}
	l := c.Limits
	if l.MaxDepth < 0 || l.MaxArrayLen < 0 || l.MaxBulkLen < 0 || l.MaxLineLen < 0 {
		return fmt.Errorf("%w: limits must not be negative", ErrInvalid)
	}
	return nil
}
