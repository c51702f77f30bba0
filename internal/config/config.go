package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config models hangarline.yml.
type Config struct {
	Evidence struct {
		RequireOnClose bool `yaml:"require_on_close"`
		AllowSkip      bool `yaml:"allow_skip"`
	} `yaml:"evidence"`
	Refresh struct {
		IntervalSeconds int `yaml:"interval_seconds"`
		SettleDelayMs   int `yaml:"settle_delay_ms"`
	} `yaml:"refresh"`
	Timer struct {
		TickSeconds int `yaml:"tick_seconds"`
	} `yaml:"timer"`
	Tasks struct {
		Catalog map[string]struct {
			Description string `yaml:"description"`
		} `yaml:"catalog"`
	} `yaml:"tasks"`
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Refresh.IntervalSeconds < 1 {
		return fmt.Errorf("config.refresh.interval_seconds must be >= 1")
	}
	if c.Refresh.SettleDelayMs < 0 {
		return fmt.Errorf("config.refresh.settle_delay_ms must be >= 0")
	}
	if c.Timer.TickSeconds < 1 {
		return fmt.Errorf("config.timer.tick_seconds must be >= 1")
	}
	if !c.Evidence.RequireOnClose && !c.Evidence.AllowSkip {
		return fmt.Errorf("config.evidence: closure must either require evidence or allow skip")
	}
	for code := range c.Tasks.Catalog {
		if code == "" {
			return fmt.Errorf("config.tasks.catalog contains empty task code")
		}
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "hangarline.yml")
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; generate with hl config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns the default config if the file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.Unmarshal([]byte(defaultTemplate), &cfg)
	return &cfg
}

// GenerateDefault returns the default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `evidence:
  # A finding may only move to CLOSED once a photo is attached...
  require_on_close: true
  # ...unless the technician explicitly skips the photo step.
  allow_skip: true

refresh:
  # How often watchers re-fetch the shared work order.
  interval_seconds: 5
  # Pause after a committed write before the next background refresh.
  settle_delay_ms: 400

timer:
  tick_seconds: 1

tasks:
  catalog:
    RIVET:
      description: "Rivet replacement / rework"
    SEAL:
      description: "Sealant application"
    NDT:
      description: "Non-destructive testing"
    INSP:
      description: "General inspection"
    PAINT:
      description: "Surface finish / paint"
`
