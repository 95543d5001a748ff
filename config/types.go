package config

import (
	"fmt"
	"strings"
	"time"
)

// Blocks controls the local block clock.
type Blocks struct {
	// Interval between produced blocks, as a Go duration string.
	Interval string `toml:"Interval"`
	// SecondsPerBlock is added to the block time on every block. Zero uses
	// the wall clock instead.
	SecondsPerBlock uint64 `toml:"SecondsPerBlock"`
}

// IntervalDuration parses Interval.
func (b Blocks) IntervalDuration() (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(b.Interval))
	if err != nil {
		return 0, fmt.Errorf("blocks: invalid Interval %q: %w", b.Interval, err)
	}
	return d, nil
}

// Keeper runs the overseer epoch operations when an epoch has passed.
type Keeper struct {
	Enabled bool `toml:"Enabled"`
	// Account signs keeper transactions. Bech32 or "@name".
	Account string `toml:"Account"`
}

// Telemetry wires the OpenTelemetry exporters.
type Telemetry struct {
	Endpoint string `toml:"Endpoint"`
	Insecure bool   `toml:"Insecure"`
	Headers  string `toml:"Headers"`
	Traces   bool   `toml:"Traces"`
	Metrics  bool   `toml:"Metrics"`
}

// Logging selects the level and optional rotated file.
type Logging struct {
	Level      string `toml:"Level"`
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
}

// Indexer persists committed contract events to SQL.
type Indexer struct {
	Enabled bool `toml:"Enabled"`
	// Driver is "sqlite" or "postgres".
	Driver string `toml:"Driver"`
	DSN    string `toml:"DSN"`
}
