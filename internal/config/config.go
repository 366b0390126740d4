// Package config loads runtime configuration for the pack simulation
// from a YAML file, with sane defaults when no file exists.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Environment overrides. Values set here win over the YAML file, which
// keeps secrets and per-host addresses out of checked-in configs.
const (
	AdminKeyEnv  = "PETPACK_ADMIN_KEY"
	RedisAddrEnv = "PETPACK_REDIS_ADDR"
)

const (
	defaultSeed         = 42
	defaultPackSize     = 6
	defaultTickInterval = "1s"
	defaultAutosave     = "@hourly"
	defaultSQLitePath   = "data/petpack.db"
	defaultRedisAddr    = "localhost:6379"
	defaultAPIPort      = 8080
)

// Config models the petpack.yaml file.
type Config struct {
	Seed  int64       `yaml:"seed"`
	Pack  PackConfig  `yaml:"pack"`
	Sim   SimConfig   `yaml:"sim"`
	Store StoreConfig `yaml:"store"`
	API   APIConfig   `yaml:"api"`
}

// PackConfig controls the spawned pack when no saved world exists.
type PackConfig struct {
	Size int `yaml:"size"`
}

// SimConfig controls the tick loop and autosave schedule.
type SimConfig struct {
	TickInterval string `yaml:"tick_interval"`
	Autosave     string `yaml:"autosave"` // cron spec, empty disables autosave

	tick time.Duration
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	Backend string      `yaml:"backend"` // "sqlite" or "redis"
	Path    string      `yaml:"path"`    // sqlite database file
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig holds connection settings for the redis backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// APIConfig controls the HTTP API.
type APIConfig struct {
	Port     int    `yaml:"port"`
	AdminKey string `yaml:"admin_key"` // empty disables admin endpoints
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.normalize()
	return cfg
}

// Load reads and validates the config file at path. A missing file is not
// an error: defaults are returned so a fresh checkout runs out of the box.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// TickEvery returns the parsed tick interval.
func (c *Config) TickEvery() time.Duration {
	return c.Sim.tick
}

func (c *Config) applyDefaults() {
	if c.Seed == 0 {
		c.Seed = defaultSeed
	}
	if c.Pack.Size == 0 {
		c.Pack.Size = defaultPackSize
	}
	if c.Sim.TickInterval == "" {
		c.Sim.TickInterval = defaultTickInterval
	}
	if c.Sim.Autosave == "" {
		c.Sim.Autosave = defaultAutosave
	}
	if c.Store.Backend == "" {
		c.Store.Backend = "sqlite"
	}
	if c.Store.Path == "" {
		c.Store.Path = defaultSQLitePath
	}
	if c.Store.Redis.Addr == "" {
		c.Store.Redis.Addr = defaultRedisAddr
	}
	if c.API.Port == 0 {
		c.API.Port = defaultAPIPort
	}
}

func (c *Config) normalize() {
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	c.Store.Path = strings.TrimSpace(c.Store.Path)
	c.Store.Redis.Addr = strings.TrimSpace(c.Store.Redis.Addr)
	c.Sim.TickInterval = strings.TrimSpace(c.Sim.TickInterval)
	c.Sim.Autosave = strings.TrimSpace(c.Sim.Autosave)
	if d, err := time.ParseDuration(c.Sim.TickInterval); err == nil {
		c.Sim.tick = d
	}
	if key := os.Getenv(AdminKeyEnv); key != "" {
		c.API.AdminKey = key
	}
	if addr := os.Getenv(RedisAddrEnv); addr != "" {
		c.Store.Redis.Addr = addr
	}
}

func (c *Config) validate() error {
	if c.Pack.Size < 2 || c.Pack.Size > 32 {
		return fmt.Errorf("pack.size must be between 2 and 32, got %d", c.Pack.Size)
	}
	if c.Sim.tick <= 0 {
		return fmt.Errorf("sim.tick_interval %q is not a positive duration", c.Sim.TickInterval)
	}
	if c.Sim.Autosave != "none" {
		if _, err := cron.ParseStandard(c.Sim.Autosave); err != nil {
			return fmt.Errorf("sim.autosave %q: %w", c.Sim.Autosave, err)
		}
	}
	switch c.Store.Backend {
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the sqlite backend")
		}
	case "redis":
		if c.Store.Redis.Addr == "" {
			return fmt.Errorf("store.redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("store.backend must be 'sqlite' or 'redis', got %q", c.Store.Backend)
	}
	if c.API.Port < 1 || c.API.Port > 65535 {
		return fmt.Errorf("api.port %d is out of range", c.API.Port)
	}
	return nil
}

// AutosaveEnabled reports whether a cron autosave schedule is configured.
func (c *Config) AutosaveEnabled() bool {
	return c.Sim.Autosave != "none"
}
