// Package server provides configuration helpers that define runtime defaults,
// validation, and throttling parameters for the RoomRelay service.
package server

import (
	"sync"
	"time"
)

const envProduction = "production"

// Config holds the server configuration settings including security controls
// and the retention and throttling limits of the relay core. Fields are
// populated from the environment via go-env struct tags; zero or invalid
// values fall back to defaults when the config is applied.
type Config struct {
	Port            string        `env:"SERVER_PORT"`
	Environment     string        `env:"ENVIRONMENT"`
	AllowedOrigins  []string      `env:"ALLOWED_ORIGINS"`
	MaxMessageSize  int64         `env:"MAX_MESSAGE_SIZE"`
	SendInterval    time.Duration `env:"SEND_INTERVAL"`
	HistoryLimit    int           `env:"HISTORY_LIMIT"`
	RoomLimit       int           `env:"ROOM_LIMIT"`
	SweepInterval   time.Duration `env:"SWEEP_INTERVAL"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT"`
}

var (
	configMu        sync.RWMutex
	activeConfig    Config
	allowedOrigins  map[string]struct{}
	allowAllOrigins bool
)

func init() {
	SetConfig(nil)
}

func defaultConfig() Config {
	return Config{
		Port:        ":8080",
		Environment: "development",
		AllowedOrigins: []string{
			"http://localhost:8080",
		},
		MaxMessageSize:  1 << 20,
		SendInterval:    500 * time.Millisecond,
		HistoryLimit:    100,
		RoomLimit:       50,
		SweepInterval:   5 * time.Minute,
		ShutdownTimeout: 10 * time.Second,
	}
}

func sanitizeConfig(cfg Config) Config {
	defaults := defaultConfig()

	if cfg.Port == "" {
		cfg.Port = defaults.Port
	}

	if cfg.Environment == "" {
		cfg.Environment = defaults.Environment
	}

	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaults.MaxMessageSize
	}

	if cfg.SendInterval <= 0 {
		cfg.SendInterval = defaults.SendInterval
	}

	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaults.HistoryLimit
	}

	if cfg.RoomLimit <= 0 {
		cfg.RoomLimit = defaults.RoomLimit
	}

	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaults.SweepInterval
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaults.ShutdownTimeout
	}

	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = append([]string(nil), defaults.AllowedOrigins...)
	}

	normalizedOrigins, allowAll := normalizeOrigins(cfg.AllowedOrigins)
	cfg.AllowedOrigins = normalizedOrigins

	configMu.Lock()
	defer configMu.Unlock()

	activeConfig = cfg
	allowAllOrigins = allowAll
	allowedOrigins = make(map[string]struct{}, len(normalizedOrigins))
	for _, origin := range normalizedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	return cfg
}

// SetConfig applies the provided configuration and returns the sanitized
// result. Passing nil resets to defaults.
func SetConfig(cfg *Config) Config {
	if cfg == nil {
		return sanitizeConfig(defaultConfig())
	}

	copied := *cfg
	copied.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	return sanitizeConfig(copied)
}

func currentConfig() Config {
	configMu.RLock()
	defer configMu.RUnlock()

	cfg := activeConfig
	cfg.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	return cfg
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}
