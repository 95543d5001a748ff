package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	ListenAddress  string `toml:"ListenAddress"`
	GRPCAddress    string `toml:"GRPCAddress"`
	DataDir        string `toml:"DataDir"`
	GenesisFile    string `toml:"GenesisFile"`
	GatewayPolicy  string `toml:"GatewayPolicy"`
	Environment    string `toml:"Environment"`
	MaxRequestBody int64  `toml:"MaxRequestBody"`

	Blocks    Blocks    `toml:"blocks"`
	Keeper    Keeper    `toml:"keeper"`
	Logging   Logging   `toml:"logging"`
	Telemetry Telemetry `toml:"telemetry"`
	Indexer   Indexer   `toml:"indexer"`
}

// Load loads the configuration from the given path, writing a default file
// when none exists. MMD_ENV overrides Environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := persist(path, cfg); err != nil {
			return nil, err
		}
	} else {
		meta, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, err
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("config file %s: unknown key %q", path, undecoded[0].String())
		}
	}

	if env := strings.TrimSpace(os.Getenv("MMD_ENV")); env != "" {
		cfg.Environment = env
	}
	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	}
	if cfg.Telemetry.Headers == "" {
		cfg.Telemetry.Headers = strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the configuration written for a fresh node.
func Default() *Config {
	return &Config{
		ListenAddress:  ":8080",
		GRPCAddress:    ":9090",
		DataDir:        "./mm-data",
		GenesisFile:    "./genesis.json",
		Environment:    "local",
		MaxRequestBody: 1 << 20,
		Blocks: Blocks{
			Interval: "6s",
		},
		Keeper: Keeper{
			Enabled: true,
			Account: "@keeper",
		},
		Logging: Logging{
			Level: "info",
		},
		Indexer: Indexer{
			Driver: "sqlite",
			DSN:    "file:mm-index.db",
		},
	}
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
