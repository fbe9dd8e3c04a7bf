// Package config holds the runtime settings of the face server.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Environment overrides read by FromEnv.
const (
	EnvListenAddr       = "PARABOT_ADDR"
	EnvLogLevel         = "PARABOT_LOG_LEVEL"
	EnvJSONLog          = "PARABOT_JSON_LOG"
	EnvBlinkMinDelay    = "PARABOT_BLINK_MIN"
	EnvBlinkJitter      = "PARABOT_BLINK_JITTER"
	EnvBlinkClosed      = "PARABOT_BLINK_CLOSED"
	EnvJournalDSN       = "PARABOT_JOURNAL_DSN"
	EnvJournalRetention = "PARABOT_JOURNAL_RETENTION"
)

// DefaultJournalDSN keeps the journal in a shared in-memory SQLite database, so
// nothing outlives the process.
const DefaultJournalDSN = "file:parabot?mode=memory&cache=shared"

// Config holds tuned parameters for the server.
type Config struct {
	ListenAddr string
	LogLevel   string
	LogJSON    bool

	// Blink timing
	BlinkMinDelay time.Duration
	BlinkJitter   time.Duration
	BlinkClosed   time.Duration

	// Buffers
	ClientSendBuffer int
	BroadcastBuffer  int
	EventLogCapacity int

	// ActionCooldown throttles WebSocket actions per client; 0 disables it.
	ActionCooldown time.Duration

	// Journal
	JournalDSN           string
	JournalRetention     int
	JournalPruneInterval time.Duration

	// Rendering
	FaceWidth  float64
	FaceHeight float64
}

// DefaultConfig returns sensible defaults for production.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr: ":8080",
		LogLevel:   "info",

		BlinkMinDelay: 800 * time.Millisecond,
		BlinkJitter:   1800 * time.Millisecond,
		BlinkClosed:   120 * time.Millisecond,

		ClientSendBuffer: 256,
		BroadcastBuffer:  64,
		EventLogCapacity: 4096,

		JournalDSN:           DefaultJournalDSN,
		JournalRetention:     10000,
		JournalPruneInterval: 30 * time.Second,

		FaceWidth:  400,
		FaceHeight: 300,
	}
}

// LowResourceConfig returns minimal settings for development boards.
func LowResourceConfig() *Config {
	cfg := DefaultConfig()
	cfg.ClientSendBuffer = 16
	cfg.BroadcastBuffer = 8
	cfg.EventLogCapacity = 256
	cfg.ActionCooldown = 100 * time.Millisecond
	cfg.JournalRetention = 500
	cfg.JournalPruneInterval = 10 * time.Second
	cfg.FaceWidth = 200
	cfg.FaceHeight = 150
	return cfg
}

// FromEnv applies PARABOT_* overrides on top of base.
func FromEnv(base *Config) (*Config, error) {
	cfg := *base

	if v := os.Getenv(EnvListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(EnvJSONLog); v != "" {
		cfg.LogJSON = v == "1" || v == "true"
	}
	if v := os.Getenv(EnvJournalDSN); v != "" {
		cfg.JournalDSN = v
	}

	durations := []struct {
		env string
		dst *time.Duration
	}{
		{EnvBlinkMinDelay, &cfg.BlinkMinDelay},
		{EnvBlinkJitter, &cfg.BlinkJitter},
		{EnvBlinkClosed, &cfg.BlinkClosed},
	}
	for _, d := range durations {
		v := os.Getenv(d.env)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.env, err)
		}
		*d.dst = parsed
	}

	if v := os.Getenv(EnvJournalRetention); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvJournalRetention, err)
		}
		cfg.JournalRetention = n
	}

	return &cfg, cfg.Validate()
}

// Validate checks that the settings can run a server.
func (c *Config) Validate() error {
	var errs []error
	if c.ListenAddr == "" {
		errs = append(errs, errors.New("listen address is empty"))
	}
	if c.BlinkMinDelay < 0 || c.BlinkJitter < 0 {
		errs = append(errs, errors.New("blink delays must not be negative"))
	}
	if c.BlinkMinDelay+c.BlinkJitter <= 0 {
		errs = append(errs, errors.New("blink open interval must be positive"))
	}
	if c.BlinkClosed <= 0 {
		errs = append(errs, errors.New("blink closed duration must be positive"))
	}
	if c.ClientSendBuffer <= 0 || c.BroadcastBuffer <= 0 {
		errs = append(errs, errors.New("buffers must be positive"))
	}
	if c.ActionCooldown < 0 {
		errs = append(errs, errors.New("action cooldown must not be negative"))
	}
	if c.JournalRetention < 0 {
		errs = append(errs, errors.New("journal retention must not be negative"))
	}
	if c.FaceWidth <= 0 || c.FaceHeight <= 0 {
		errs = append(errs, errors.New("face size must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
