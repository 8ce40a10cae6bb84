package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/codehubbers/hubbergram/pkg/datastore"
	"github.com/codehubbers/hubbergram/pkg/keyring"
	"github.com/codehubbers/hubbergram/pkg/logging"
	"github.com/codehubbers/hubbergram/pkg/server"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}

func run() error {
	configFile := flag.String("config", "", "YAML config file (flags override it)")

	cfg := server.DefaultConfig()
	flag.StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "TCP bind address")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database file path")
	flag.StringVar(&cfg.KeyFile, "key-file", "", "Database key file (ephemeral key if empty)")
	flag.IntVar(&cfg.MaxConnections, "max-connections", cfg.MaxConnections, "Maximum concurrent client connections")
	flag.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "HTTP bind address for Prometheus /metrics (empty to disable)")

	logLevel := flag.String("log-level", "info", "Log level: "+logging.LevelNames())
	logFormat := flag.String("log-format", "text", "Log format: text or json")
	flag.Parse()

	// Configure structured logging
	if err := logging.Setup(logging.Options{
		Level:  *logLevel,
		Format: *logFormat,
		Output: os.Stdout,
	}); err != nil {
		return fmt.Errorf("invalid logging config: %w", err)
	}

	if *configFile != "" {
		fileCfg, err := server.LoadConfig(*configFile)
		if err != nil {
			return err
		}
		// Re-apply flags so explicit ones win over the file.
		cfg = fileCfg
		flag.Parse()
	}

	ring, err := loadKeyring(cfg.KeyFile)
	if err != nil {
		return err
	}
	defer ring.Destroy()

	st, err := datastore.NewProviderFactory(cfg.DBPath, datastore.Options{
		Passphrase:       ring.Passphrase(),
		MaxLoginAttempts: cfg.MaxLoginAttempts,
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	srv := server.New(cfg, server.Dependencies{Store: st})
	return srv.Run()
}

// loadKeyring loads the database key file, or falls back to a process-
// lifetime ephemeral key when no file is configured.
func loadKeyring(path string) (*keyring.Keyring, error) {
	if path == "" {
		slog.Warn("no key file configured, using an ephemeral database key")
		return keyring.Ephemeral()
	}
	ring, err := keyring.Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("key file %s not found (generate one with hubbergram-genkey): %w", path, err)
		}
		return nil, err
	}
	slog.Info("database key loaded", "file", path)
	return ring, nil
}
