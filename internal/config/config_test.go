package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(viper.New(), "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8009" || cfg.Store != StorePostgres {
		t.Errorf("unexpected defaults: port=%s store=%s", cfg.Port, cfg.Store)
	}
	if cfg.LockTTL != 10*time.Second || cfg.BotPollInterval != 10*time.Second {
		t.Errorf("unexpected durations: lock=%s poll=%s", cfg.LockTTL, cfg.BotPollInterval)
	}
	if cfg.NATSURL != "" {
		t.Errorf("NATS should be disabled by default, got %q", cfg.NATSURL)
	}
	if !cfg.BotPacing {
		t.Error("bot pacing should default to on")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9100")
	t.Setenv("STORE", "memory")
	t.Setenv("LOCK_TTL", "3s")
	t.Setenv("BOT_PACING", "false")
	t.Setenv("NATS_URL", "nats://localhost:4222")

	cfg, err := load(viper.New(), "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9100" || cfg.Store != StoreMemory || cfg.LockTTL != 3*time.Second {
		t.Errorf("env not applied: %+v", cfg)
	}
	if cfg.BotPacing {
		t.Error("expected BOT_PACING=false to disable pacing")
	}
	if cfg.NATSURL != "nats://localhost:4222" {
		t.Errorf("unexpected NATS URL %q", cfg.NATSURL)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conquest.yaml")
	body := "port: \"7000\"\nstore: memory\nbot_poll_interval: 2s\njwt_secret: from-file\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("JWT_SECRET", "from-env")

	cfg, err := load(viper.New(), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "7000" || cfg.Store != StoreMemory || cfg.BotPollInterval != 2*time.Second {
		t.Errorf("file not applied: %+v", cfg)
	}
	if cfg.JWTSecret != "from-env" {
		t.Errorf("env should win over file, got %q", cfg.JWTSecret)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{"STORE", "sqlite", "STORE"},
		{"LOCK_TTL", "0s", "LOCK_TTL"},
		{"BOT_POLL_INTERVAL", "-1s", "BOT_POLL_INTERVAL"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := load(viper.New(), "")
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error mentioning %s, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected an error for a missing config file")
	}
}
