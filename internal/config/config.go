// Package config holds arena configuration: defaults, YAML file loading,
// and environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/talgya/mini-mind/internal/agents"
)

// Validation errors.
var (
	ErrInvalidAgents    = errors.New("agents must be positive")
	ErrInvalidInterval  = errors.New("frame interval must be positive")
	ErrInvalidFrequency = errors.New("update frequency must be positive")
	ErrInvalidPort      = errors.New("api port out of range")
	ErrInvalidVeto      = errors.New("invalid transition veto")
)

// Config holds all arena configuration.
type Config struct {
	Seed   int64        `yaml:"seed"`
	Arena  ArenaConfig  `yaml:"arena"`
	Engine EngineConfig `yaml:"engine"`
	API    APIConfig    `yaml:"api"`
	DB     DBConfig     `yaml:"database"`
	Env    EnvConfig    `yaml:"environment"`
	Log    LogConfig    `yaml:"log"`
}

// ArenaConfig sizes the host world.
type ArenaConfig struct {
	Agents      int     `yaml:"agents"`
	Hostiles    int     `yaml:"hostiles"`
	Resources   int     `yaml:"resources"`
	Size        float64 `yaml:"size"`         // half-width of the square arena
	SenseRadius float64 `yaml:"sense_radius"` // how far agents perceive entities
}

// EngineConfig tunes the decision engine and frame loop.
type EngineConfig struct {
	FrameInterval   time.Duration `yaml:"frame_interval"`
	UpdateFrequency float64       `yaml:"update_frequency"` // seconds
	Speed           float64       `yaml:"speed"`
	Workers         int           `yaml:"workers"`
	Vetoes          []Veto        `yaml:"vetoes"`
}

// Veto forbids one state transition for every agent.
type Veto struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// APIConfig configures the inspection server.
type APIConfig struct {
	Port     int    `yaml:"port"`
	AdminKey string `yaml:"admin_key"`
}

// DBConfig locates the decision journal.
type DBConfig struct {
	Path string `yaml:"path"`
}

// EnvConfig configures the environment provider.
type EnvConfig struct {
	BaseTemperature float64 `yaml:"base_temperature"`
	WeatherAPIKey   string  `yaml:"weather_api_key"`
	WeatherLocation string  `yaml:"weather_location"`
}

// LogConfig sets the log level.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Seed: 42,
		Arena: ArenaConfig{
			Agents:      24,
			Hostiles:    6,
			Resources:   12,
			Size:        100,
			SenseRadius: 25,
		},
		Engine: EngineConfig{
			FrameInterval:   50 * time.Millisecond,
			UpdateFrequency: 0.1,
			Speed:           1,
			Workers:         1,
		},
		API: APIConfig{
			Port: 8080,
		},
		DB: DBConfig{
			Path: "data/arena.db",
		},
		Env: EnvConfig{
			BaseTemperature: 18,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML file over the defaults, then applies environment
// overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("ARENA_DB_PATH"); v != "" {
		c.DB.Path = v
	}
	if v := os.Getenv("ARENA_ADMIN_KEY"); v != "" {
		c.API.AdminKey = v
	}
	if v := os.Getenv("OPENWEATHER_API_KEY"); v != "" {
		c.Env.WeatherAPIKey = v
	}
	if v := os.Getenv("ARENA_API_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ARENA_API_PORT: %w", err)
		}
		c.API.Port = port
	}
	if v := os.Getenv("ARENA_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("ARENA_SEED: %w", err)
		}
		c.Seed = seed
	}
	return nil
}

// Validate checks the configuration for values the arena cannot run with.
func (c *Config) Validate() error {
	if c.Arena.Agents <= 0 {
		return ErrInvalidAgents
	}
	if c.Engine.FrameInterval <= 0 {
		return ErrInvalidInterval
	}
	if c.Engine.UpdateFrequency <= 0 {
		return ErrInvalidFrequency
	}
	if c.API.Port < 0 || c.API.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.API.Port)
	}
	if _, err := c.Transitions(); err != nil {
		return err
	}
	return nil
}

// Transitions parses the configured vetoes.
func (c *Config) Transitions() ([]agents.Transition, error) {
	out := make([]agents.Transition, 0, len(c.Engine.Vetoes))
	for _, v := range c.Engine.Vetoes {
		from, err := agents.ParseState(v.From)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidVeto, err)
		}
		to, err := agents.ParseState(v.To)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidVeto, err)
		}
		out = append(out, agents.Transition{From: from, To: to})
	}
	return out, nil
}

// ListenAddr returns the API listen address.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.API.Port)
}
