package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/zzfab/respkit"
	"github.com/zzfab/respkit/internal/config"
	"github.com/zzfab/respkit/internal/logging"
	"github.com/zzfab/respkit/server"
)

func main() {
	configPath := flag.String("config", "", "Path to a TOML configuration file")
	showVersion := flag.Bool("version", false, "Print version information and exit")
	flag.Parse()

	if *showVersion {
		info := respkit.VersionInfo()
		fmt.Printf("respd %s", info["version"])
		if commit, ok := info["commit"]; ok {
			fmt.Printf(" (%s)", commit)
		}
		fmt.Println()
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintln(os.Stderr, "respd:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	// Load .env file
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	log := logging.New(os.Stderr, cfg.Log)

	srv, err := server.New(
		server.WithAddr(cfg.Addr),
		server.WithLimits(cfg.Limits),
		server.WithAllowBinary(cfg.AllowBinary),
		server.WithReadTimeout(cfg.ReadTimeout),
		server.WithWriteTimeout(cfg.WriteTimeout),
		server.WithLogger(log),
	)
	if err != nil {
		return err
	}

	if err := srv.Start(); err != nil {
		return err
	}
	log.Info("respd started", "version", respkit.Version, "addr", srv.Addr())

	// Block until a termination signal arrives
	<-ctx.Done()
	log.Info("shutting down")
	return srv.Stop()
}

// loadConfig merges defaults, the optional TOML file and the environment
func loadConfig(path string) (config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return config.Config{}, err
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
