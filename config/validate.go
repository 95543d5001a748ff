package config

import (
	"fmt"
	"strings"
	"time"
)

var (
	MinBlockInterval = 100 * time.Millisecond
)

func ValidateConfig(cfg *Config) error {
	if strings.TrimSpace(cfg.DataDir) == "" {
		return fmt.Errorf("DataDir must be provided")
	}
	if strings.TrimSpace(cfg.GenesisFile) == "" {
		return fmt.Errorf("GenesisFile must be provided")
	}
	interval, err := cfg.Blocks.IntervalDuration()
	if err != nil {
		return err
	}
	if interval < MinBlockInterval {
		return fmt.Errorf("blocks: Interval below %s", MinBlockInterval)
	}
	if cfg.Keeper.Enabled && strings.TrimSpace(cfg.Keeper.Account) == "" {
		return fmt.Errorf("keeper: Account must be provided when enabled")
	}
	if cfg.Indexer.Enabled {
		switch cfg.Indexer.Driver {
		case "sqlite", "postgres":
		default:
			return fmt.Errorf("indexer: unsupported Driver %q", cfg.Indexer.Driver)
		}
		if strings.TrimSpace(cfg.Indexer.DSN) == "" {
			return fmt.Errorf("indexer: DSN must be provided when enabled")
		}
	}
	return nil
}
