// Package config loads the gateway policy: request timeouts, JWT auth, rate
// limits and observability toggles.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ScopeExecute authorises POST /v1/tx/execute.
const ScopeExecute = "tx:execute"

type RateLimitConfig struct {
	ID                string  `yaml:"id"`
	RequestsPerMinute float64 `yaml:"requestsPerMinute"`
	Burst             int     `yaml:"burst"`
}

type ObservabilityConfig struct {
	ServiceName string `yaml:"serviceName"`
	Metrics     bool   `yaml:"metrics"`
	Tracing     bool   `yaml:"tracing"`
	LogRequests bool   `yaml:"logRequests"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

type Config struct {
	ReadTimeout   time.Duration       `yaml:"readTimeout"`
	WriteTimeout  time.Duration       `yaml:"writeTimeout"`
	IdleTimeout   time.Duration       `yaml:"idleTimeout"`
	RateLimits    []RateLimitConfig   `yaml:"rateLimits"`
	Observability ObservabilityConfig `yaml:"observability"`
	Auth          AuthConfig          `yaml:"auth"`
	CORS          CORSConfig          `yaml:"cors"`
	// Websocket caps concurrent /v1/events/ws subscribers.
	Websocket WebsocketConfig `yaml:"websocket"`
}

type WebsocketConfig struct {
	MaxSubscribers int `yaml:"maxSubscribers"`
	// Buffer is the per-subscriber event queue. Slow readers are dropped
	// once it fills.
	Buffer int `yaml:"buffer"`
}

type AuthConfig struct {
	Enabled    bool          `yaml:"enabled"`
	HMACSecret string        `yaml:"hmacSecret"`
	Issuer     string        `yaml:"issuer"`
	Audience   string        `yaml:"audience"`
	ScopeClaim string        `yaml:"scopeClaim"`
	ClockSkew  time.Duration `yaml:"clockSkew"`
	enabledSet bool          `yaml:"-"`
}

func (a *AuthConfig) UnmarshalYAML(node *yaml.Node) error {
	type rawAuthConfig struct {
		Enabled    *bool         `yaml:"enabled"`
		HMACSecret string        `yaml:"hmacSecret"`
		Issuer     string        `yaml:"issuer"`
		Audience   string        `yaml:"audience"`
		ScopeClaim string        `yaml:"scopeClaim"`
		ClockSkew  time.Duration `yaml:"clockSkew"`
	}
	var raw rawAuthConfig
	if err := node.Decode(&raw); err != nil {
		return err
	}
	a.Enabled = raw.Enabled != nil && *raw.Enabled
	a.enabledSet = raw.Enabled != nil
	a.HMACSecret = raw.HMACSecret
	a.Issuer = raw.Issuer
	a.Audience = raw.Audience
	a.ScopeClaim = raw.ScopeClaim
	a.ClockSkew = raw.ClockSkew
	return nil
}

// Default returns the policy used when no file is configured. Auth is on and
// the secret comes from MM_GATEWAY_SECRET.
func Default() Config {
	return Config{
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		RateLimits: []RateLimitConfig{
			{ID: "execute", RequestsPerMinute: 120, Burst: 20},
			{ID: "query", RequestsPerMinute: 600, Burst: 60},
		},
		Observability: ObservabilityConfig{
			ServiceName: "mmd-gateway",
			Metrics:     true,
			Tracing:     true,
			LogRequests: true,
		},
		Auth: AuthConfig{
			Enabled:    true,
			ScopeClaim: "scope",
			ClockSkew:  2 * time.Minute,
			enabledSet: true,
		},
		Websocket: WebsocketConfig{MaxSubscribers: 64, Buffer: 128},
	}
}

// Load reads the YAML policy at path. An empty path yields Default.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		file, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("open gateway policy: %w", err)
		}
		defer file.Close()
		decoder := yaml.NewDecoder(file)
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("decode gateway policy: %w", err)
		}
	}
	if secret := strings.TrimSpace(os.Getenv("MM_GATEWAY_SECRET")); secret != "" && cfg.Auth.HMACSecret == "" {
		cfg.Auth.HMACSecret = secret
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate gateway policy: %w", err)
	}
	return cfg, nil
}

func (cfg *Config) normalize() {
	if !cfg.Auth.enabledSet {
		cfg.Auth.Enabled = true
		cfg.Auth.enabledSet = true
	}
	if cfg.Auth.ClockSkew <= 0 {
		cfg.Auth.ClockSkew = 2 * time.Minute
	}
	if cfg.Auth.ScopeClaim == "" {
		cfg.Auth.ScopeClaim = "scope"
	}
	if cfg.Websocket.Buffer <= 0 {
		cfg.Websocket.Buffer = 128
	}
	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = "mmd-gateway"
	}
	for i := range cfg.RateLimits {
		cfg.RateLimits[i].ID = strings.TrimSpace(cfg.RateLimits[i].ID)
	}
}

var ErrMissingSecret = errors.New("auth.hmacSecret is required when auth is enabled")

func (cfg *Config) Validate() error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Auth.Enabled && strings.TrimSpace(cfg.Auth.HMACSecret) == "" {
		return ErrMissingSecret
	}
	seen := make(map[string]struct{}, len(cfg.RateLimits))
	for i, limit := range cfg.RateLimits {
		if limit.ID == "" {
			return fmt.Errorf("rateLimits[%d].id cannot be empty", i)
		}
		if _, dup := seen[limit.ID]; dup {
			return fmt.Errorf("rateLimits[%d]: duplicate id %q", i, limit.ID)
		}
		seen[limit.ID] = struct{}{}
		if limit.RequestsPerMinute <= 0 {
			return fmt.Errorf("rateLimits[%d].requestsPerMinute must be positive", i)
		}
		if limit.Burst < 0 {
			return fmt.Errorf("rateLimits[%d].burst cannot be negative", i)
		}
	}
	if cfg.Websocket.MaxSubscribers < 0 {
		return fmt.Errorf("websocket.maxSubscribers cannot be negative")
	}
	return nil
}

// RateLimit looks up a limit by id.
func (cfg Config) RateLimit(id string) (RateLimitConfig, bool) {
	for _, limit := range cfg.RateLimits {
		if limit.ID == id {
			return limit, true
		}
	}
	return RateLimitConfig{}, false
}
