package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// EnvPath names the environment variable that overrides the config path.
const (
	EnvPath     = "SURVGO_CONFIG"
	DefaultPath = "config/server.toml"
)

type Config struct {
	Server      ServerConfig      `toml:"server"`
	Network     NetworkConfig     `toml:"network"`
	Simulation  SimulationConfig  `toml:"simulation"`
	Replication ReplicationConfig `toml:"replication"`
	Data        DataConfig        `toml:"data"`
	Replay      ReplayConfig      `toml:"replay"`
	Logging     LoggingConfig     `toml:"logging"`
}

type ServerConfig struct {
	Name      string `toml:"name"`
	Strict    bool   `toml:"strict"` // invariant violations panic
	StartTime int64  // set at boot, not from config
}

type NetworkConfig struct {
	BindAddress       string        `toml:"bind_address"`
	Path              string        `toml:"path"`
	InQueueSize       int           `toml:"in_queue_size"`
	OutQueueSize      int           `toml:"out_queue_size"`
	MaxPacketsPerTick int           `toml:"max_packets_per_tick"`
	PacketsPerSecond  int           `toml:"packets_per_second"`
	MaxMessageBytes   int           `toml:"max_message_bytes"`
	WriteTimeout      time.Duration `toml:"write_timeout"`
	ReadTimeout       time.Duration `toml:"read_timeout"`
}

type SimulationConfig struct {
	TickRate          float64       `toml:"tick_rate"` // ticks per second
	Seed              int64         `toml:"seed"`      // 0 = time based
	OverloadThreshold time.Duration `toml:"overload_threshold"`
	OverloadLimit     int           `toml:"overload_limit"`
	OverloadWindow    uint64        `toml:"overload_window"` // ticks
	MaxThreshold      time.Duration `toml:"max_threshold"`
}

type ReplicationConfig struct {
	Interval        int     `toml:"interval"` // ticks between passes
	ViewMargin      float32 `toml:"view_margin"`
	SpectatorRadius float32 `toml:"spectator_radius"`
	MaxMessageBytes int     `toml:"max_message_bytes"`
	MaxFailures     int     `toml:"max_failures"`
}

type DataConfig struct {
	Obstacles string `toml:"obstacles"`
	Loot      string `toml:"loot"`
	Map       string `toml:"map"`
	Scripts   string `toml:"scripts"`
}

type ReplayConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// Path returns the config file location: $SURVGO_CONFIG or the default.
func Path() string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return DefaultPath
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes TOML on top of the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Server.StartTime = time.Now().Unix()
	return cfg, nil
}

// Validate rejects settings the server cannot run with and clamps the
// ones that only need a floor.
func (c *Config) Validate() error {
	var errs []error
	if c.Network.BindAddress == "" {
		errs = append(errs, errors.New("network.bind_address is empty"))
	}
	if !strings.HasPrefix(c.Network.Path, "/") {
		errs = append(errs, fmt.Errorf("network.path %q must start with /", c.Network.Path))
	}
	if c.Simulation.TickRate <= 0 || c.Simulation.TickRate > 240 {
		errs = append(errs, fmt.Errorf("simulation.tick_rate %v out of range (0, 240]", c.Simulation.TickRate))
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q must be json or console", c.Logging.Format))
	}
	if c.Replay.Enabled && c.Replay.Dir == "" {
		errs = append(errs, errors.New("replay.dir is empty while replay is enabled"))
	}
	for name, p := range map[string]string{
		"data.obstacles": c.Data.Obstacles,
		"data.loot":      c.Data.Loot,
		"data.map":       c.Data.Map,
	} {
		if p == "" {
			errs = append(errs, fmt.Errorf("%s is empty", name))
		}
	}

	c.Network.InQueueSize = max(c.Network.InQueueSize, 1)
	c.Network.OutQueueSize = max(c.Network.OutQueueSize, 1)
	c.Network.MaxPacketsPerTick = max(c.Network.MaxPacketsPerTick, 1)
	c.Network.PacketsPerSecond = max(c.Network.PacketsPerSecond, 0)
	c.Replication.Interval = max(c.Replication.Interval, 1)
	c.Replication.MaxFailures = max(c.Replication.MaxFailures, 1)
	c.Replication.ViewMargin = max(c.Replication.ViewMargin, 0)
	if c.Replication.MaxMessageBytes < 1024 {
		c.Replication.MaxMessageBytes = 1024
	}
	if c.Network.MaxMessageBytes < 16 {
		c.Network.MaxMessageBytes = 16
	}
	return errors.Join(errs...)
}

// TickDuration is the fixed simulation step.
func (c *Config) TickDuration() time.Duration {
	return time.Duration(float64(time.Second) / c.Simulation.TickRate)
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Name: "survgo",
		},
		Network: NetworkConfig{
			BindAddress:       "0.0.0.0:8001",
			Path:              "/play",
			InQueueSize:       128,
			OutQueueSize:      64,
			MaxPacketsPerTick: 16,
			PacketsPerSecond:  120,
			MaxMessageBytes:   1024,
			WriteTimeout:      10 * time.Second,
			ReadTimeout:       60 * time.Second,
		},
		Simulation: SimulationConfig{
			TickRate:          30,
			OverloadThreshold: 30 * time.Millisecond,
			OverloadLimit:     10,
			OverloadWindow:    300,
			MaxThreshold:      250 * time.Millisecond,
		},
		Replication: ReplicationConfig{
			Interval:        1,
			ViewMargin:      4,
			SpectatorRadius: 48,
			MaxMessageBytes: 64 * 1024,
			MaxFailures:     3,
		},
		Data: DataConfig{
			Obstacles: "data/yaml/obstacles.yaml",
			Loot:      "data/yaml/loot.yaml",
			Map:       "data/yaml/map.yaml",
			Scripts:   "scripts",
		},
		Replay: ReplayConfig{
			Enabled: false,
			Dir:     "replays",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
