package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	if cfg.TickDuration() != time.Second/30 {
		t.Fatalf("tick = %v", cfg.TickDuration())
	}
}

func TestShippedConfigLoads(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config", "server.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Network.Path != "/play" || cfg.Server.StartTime == 0 {
		t.Fatalf("unexpected config %+v", cfg.Network)
	}
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
[network]
bind_address = "127.0.0.1:9000"
write_timeout = "2s"

[simulation]
tick_rate = 20
seed = 99

[replication]
interval = 0
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Network.BindAddress != "127.0.0.1:9000" || cfg.Network.WriteTimeout != 2*time.Second {
		t.Fatalf("network not overridden: %+v", cfg.Network)
	}
	if cfg.Simulation.Seed != 99 || cfg.TickDuration() != 50*time.Millisecond {
		t.Fatalf("simulation not overridden: %+v", cfg.Simulation)
	}
	if cfg.Replication.Interval != 1 {
		t.Fatalf("interval must be clamped to 1, got %d", cfg.Replication.Interval)
	}
	if cfg.Network.Path != "/play" {
		t.Fatalf("untouched keys must keep defaults")
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		toml string
		want string
	}{
		{"tick rate", "[simulation]\ntick_rate = 0", "tick_rate"},
		{"path", "[network]\npath = \"play\"", "network.path"},
		{"log format", "[logging]\nformat = \"xml\"", "logging.format"},
		{"replay dir", "[replay]\nenabled = true\ndir = \"\"", "replay.dir"},
		{"data", "[data]\nmap = \"\"", "data.map"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.toml))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestBadTOML(t *testing.T) {
	if _, err := Parse([]byte("[network\n")); err == nil {
		t.Fatalf("malformed toml must fail")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not-exist, got %v", err)
	}
}

func TestPathFromEnv(t *testing.T) {
	t.Setenv(EnvPath, "")
	os.Unsetenv(EnvPath)
	if Path() != DefaultPath {
		t.Fatalf("default path = %q", Path())
	}
	t.Setenv(EnvPath, "/etc/survgo.toml")
	if Path() != "/etc/survgo.toml" {
		t.Fatalf("env path ignored")
	}
}
