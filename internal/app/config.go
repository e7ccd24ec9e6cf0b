package app

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Storage backends for pre-key records and cursors.
const (
	BackendFile   = "file"
	BackendBolt   = "bolt"
	BackendMemory = "memory"
)

// Config holds runtime wiring options for building the app.
type Config struct {
	Home     string `toml:"home"`      // data directory, e.g. $HOME/.signet
	Backend  string `toml:"backend"`   // file, bolt or memory
	LogLevel string `toml:"log_level"` // logrus level name
	LogFile  string `toml:"log_file"`  // empty means stderr

	PreKeys  PreKeysConfig  `toml:"prekeys"`
	Rotation RotationConfig `toml:"rotation"`
	Metrics  MetricsConfig  `toml:"metrics"`
}

// PreKeysConfig controls one-time pre-key generation.
type PreKeysConfig struct {
	BatchSize int `toml:"batch_size"`
}

// RotationConfig controls signed pre-key rotation in the daemon.
type RotationConfig struct {
	Interval   time.Duration `toml:"interval"`
	ArchiveAge time.Duration `toml:"archive_age"`
}

// MetricsConfig controls the daemon's Prometheus endpoint.
type MetricsConfig struct {
	Address string `toml:"address"` // empty disables the endpoint
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Backend:  BackendBolt,
		LogLevel: "info",
		PreKeys:  PreKeysConfig{BatchSize: 100},
		Rotation: RotationConfig{
			Interval:   48 * time.Hour,
			ArchiveAge: 30 * 24 * time.Hour,
		},
		Metrics: MetricsConfig{Address: "127.0.0.1:9464"},
	}
}

// Validate checks the configuration for obvious errors.
func (cfg *Config) Validate() error {
	if cfg.Home == "" {
		return errors.New("config: Home is not set")
	}
	switch cfg.Backend {
	case BackendFile, BackendBolt, BackendMemory:
	default:
		return fmt.Errorf("config: invalid Backend: '%v'", cfg.Backend)
	}
	if cfg.PreKeys.BatchSize <= 0 {
		return fmt.Errorf("config: PreKeys.BatchSize must be positive, got %d", cfg.PreKeys.BatchSize)
	}
	if cfg.Rotation.Interval <= 0 {
		return errors.New("config: Rotation.Interval must be positive")
	}
	if cfg.Rotation.ArchiveAge <= 0 {
		return errors.New("config: Rotation.ArchiveAge must be positive")
	}
	return nil
}

// Load parses the provided buffer b as a config file body over the
// defaults and returns the Config. Home is validated later, once command
// line overrides are applied.
func Load(b []byte) (*Config, error) {
	cfg := DefaultConfig()
	md, err := toml.Decode(string(b), &cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) != 0 {
		return nil, fmt.Errorf("config: Undecoded keys in config file: %v", undecoded)
	}
	return &cfg, nil
}

// LoadFile loads and parses the provided file and returns the Config.
func LoadFile(f string) (*Config, error) {
	b, err := os.ReadFile(f)
	if err != nil {
		return nil, err
	}
	return Load(b)
}
