package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/zzfab/respkit/internal/config"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "respd.toml")
	if err := os.WriteFile(path, []byte("addr = \"127.0.0.1:7001\"\nmax_depth = 4\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(config.EnvMaxDepth, "6")

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Addr != "127.0.0.1:7001" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.Limits.MaxDepth != 6 {
		t.Errorf("MaxDepth = %d, environment should win over file", cfg.Limits.MaxDepth)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Addr != config.Default().Addr {
		t.Errorf("Addr = %q", cfg.Addr)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	t.Setenv(config.EnvMaxLineLen, "-5")

	if _, err := loadConfig(""); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("loadConfig() error = %v, want ErrInvalid", err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Chdir(t.TempDir()) // no .env
	t.Setenv(config.EnvAddr, "127.0.0.1:0")
	t.Setenv("RESPD_LOG_LEVEL", "off")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, "") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run() did not return after cancel")
	}
}
