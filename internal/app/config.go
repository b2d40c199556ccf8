package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	coreconfig "github.com/rampforge/sellbot/core/config"
	coredatabase "github.com/rampforge/sellbot/core/database"
	"github.com/rampforge/sellbot/internal/handoff"
	"github.com/rampforge/sellbot/internal/httpapi"
	"github.com/rampforge/sellbot/internal/quote"
	"github.com/rampforge/sellbot/internal/verify"
)

// BanksConfig tunes bank name resolution.
type BanksConfig struct {
	// MaxDistance is the largest Levenshtein distance still offered as a
	// suggestion; 0 -> default.
	MaxDistance int `yaml:"max_distance" envconfig:"BANKS_MAX_DISTANCE"`
}

// Config is the full sellbot configuration: the reusable core settings
// plus the sell-specific sections.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config `yaml:"database"`
	API      httpapi.Config      `yaml:"api"`
	Handoff  handoff.Config      `yaml:"handoff"`
	Verify   verify.Config       `yaml:"verification"`
	Quote    quote.Config        `yaml:"quote"`
	Banks    BanksConfig         `yaml:"banks"`
}

// CoreConfig exposes the embedded core configuration to the runner.
func (c *Config) CoreConfig() *coreconfig.Config {
	return &c.Config
}

// Load reads the yaml config, applies environment overrides and validates.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("config: env overrides: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() error {
	if err := coreconfig.Normalize(&c.Config); err != nil {
		return err
	}

	c.Handoff.BaseURL = strings.TrimRight(strings.TrimSpace(c.Handoff.BaseURL), "/")
	if c.Handoff.BaseURL == "" {
		return fmt.Errorf("config: handoff.base_url is required")
	}
	if !strings.HasPrefix(c.Handoff.BaseURL, "http://") && !strings.HasPrefix(c.Handoff.BaseURL, "https://") {
		return fmt.Errorf("config: handoff.base_url must be an absolute http(s) url")
	}
	if c.Handoff.TTLHours < 0 {
		return fmt.Errorf("config: handoff.ttl_hours must not be negative")
	}

	if c.API.Port <= 0 {
		c.API.Port = 8080
	}
	if c.Banks.MaxDistance < 0 {
		return fmt.Errorf("config: banks.max_distance must not be negative")
	}

	if strings.TrimSpace(c.Verify.BaseURL) == "" {
		return fmt.Errorf("config: verification.base_url is required")
	}
	return nil
}
