package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	for name, cfg := range map[string]*Config{
		"default":      DefaultConfig(),
		"low resource": LowResourceConfig(),
	} {
		if err := cfg.Validate(); err != nil {
			t.Errorf("%s config should validate: %v", name, err)
		}
	}

	cfg := DefaultConfig()
	if cfg.BlinkMinDelay != 800*time.Millisecond || cfg.BlinkMinDelay+cfg.BlinkJitter != 2600*time.Millisecond {
		t.Errorf("unexpected blink window %v..%v", cfg.BlinkMinDelay, cfg.BlinkMinDelay+cfg.BlinkJitter)
	}
	if cfg.BlinkClosed != 120*time.Millisecond {
		t.Errorf("unexpected closed duration %v", cfg.BlinkClosed)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv(EnvListenAddr, "127.0.0.1:9000")
	t.Setenv(EnvBlinkMinDelay, "50ms")
	t.Setenv(EnvBlinkJitter, "0s")
	t.Setenv(EnvBlinkClosed, "10ms")
	t.Setenv(EnvJSONLog, "1")
	t.Setenv(EnvJournalRetention, "42")

	cfg, err := FromEnv(DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:9000" {
		t.Errorf("addr not overridden: %s", cfg.ListenAddr)
	}
	if cfg.BlinkMinDelay != 50*time.Millisecond || cfg.BlinkJitter != 0 || cfg.BlinkClosed != 10*time.Millisecond {
		t.Errorf("blink timings not overridden: %+v", cfg)
	}
	if !cfg.LogJSON || cfg.JournalRetention != 42 {
		t.Errorf("json/retention not overridden: %+v", cfg)
	}
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		env  string
		val  string
		want string
	}{
		{"unparseable duration", EnvBlinkClosed, "soon", EnvBlinkClosed},
		{"zero closed", EnvBlinkClosed, "0s", "closed duration"},
		{"bad retention", EnvJournalRetention, "lots", EnvJournalRetention},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.env, tt.val)
			_, err := FromEnv(DefaultConfig())
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected %q in %v", tt.want, err)
			}
		})
	}
}

func TestFromEnvDoesNotMutateBase(t *testing.T) {
	t.Setenv(EnvListenAddr, ":1234")
	base := DefaultConfig()
	if _, err := FromEnv(base); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if base.ListenAddr != ":8080" {
		t.Errorf("base config was mutated: %s", base.ListenAddr)
	}
}
