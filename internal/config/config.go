package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultAddr      = ":8080"
	DefaultStartYear = 1900.0
	DefaultEndYear   = 2100.0
	DefaultTimeStep  = 1.0
)

type Config struct {
	Server ServerConfig `yaml:"server"`
	Sim    SimConfig    `yaml:"sim"`
	Log    LogConfig    `yaml:"log"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
	// Path to the scenario database. Empty keeps scenarios in memory.
	DBPath  string `yaml:"db_path"`
	Metrics bool   `yaml:"metrics"`
}

type SimConfig struct {
	StartYear float64 `yaml:"start_year"`
	EndYear   float64 `yaml:"end_year"`
	TimeStep  float64 `yaml:"time_step"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:    DefaultAddr,
			Metrics: true,
		},
		Sim: SimConfig{
			StartYear: DefaultStartYear,
			EndYear:   DefaultEndYear,
			TimeStep:  DefaultTimeStep,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.Sim.TimeStep <= 0 {
		return fmt.Errorf("sim.time_step must be positive, got %g", c.Sim.TimeStep)
	}
	if c.Sim.EndYear <= c.Sim.StartYear {
		return fmt.Errorf("sim.end_year %g must be after sim.start_year %g", c.Sim.EndYear, c.Sim.StartYear)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}
