// Package agent holds the daemon-level configuration of tetherd.
package agent

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/plexsphere/tetherd/internal/connman"
	"github.com/plexsphere/tetherd/internal/eventloop"
	"github.com/plexsphere/tetherd/internal/linkstate"
	"github.com/plexsphere/tetherd/internal/modeswitch"
	"github.com/plexsphere/tetherd/internal/supplicant"
	"github.com/plexsphere/tetherd/internal/tether"
)

const (
	// DefaultLogLevel is the default log level.
	DefaultLogLevel = "info"

	// DefaultConfigPath is where the daemon looks for its configuration.
	DefaultConfigPath = "/etc/tetherd/config.yaml"
)

// AgentConfig is the top-level configuration for tetherd.
// It aggregates all subsystem configurations and is populated from
// a YAML configuration file via ParseConfig.
type AgentConfig struct {
	// LogLevel is the log level: "debug", "info", "warn", "error".
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	ModeSwitch modeswitch.Config `yaml:"mode_switch"`
	Tether     tether.Config     `yaml:"tether"`
	Supplicant supplicant.Config `yaml:"supplicant"`
	ConnMan    connman.Config    `yaml:"connman"`
	EventLoop  eventloop.Config  `yaml:"event_loop"`
	LinkState  linkstate.Config  `yaml:"link_state"`
}

// ApplyDefaults sets default values for zero-valued fields.
func (c *AgentConfig) ApplyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	c.ModeSwitch.ApplyDefaults()
	c.Tether.ApplyDefaults()
	c.Supplicant.ApplyDefaults()
	c.ConnMan.ApplyDefaults()
	c.EventLoop.ApplyDefaults()
}

// Validate checks that values are acceptable.
func (c *AgentConfig) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("agent: config: invalid log level %q", c.LogLevel)
	}
	if err := c.ModeSwitch.Validate(); err != nil {
		return err
	}
	if err := c.Tether.Validate(); err != nil {
		return err
	}
	if err := c.Supplicant.Validate(); err != nil {
		return err
	}
	if err := c.ConnMan.Validate(); err != nil {
		return err
	}
	if err := c.EventLoop.Validate(); err != nil {
		return err
	}
	return nil
}

// ParseConfig reads a YAML configuration file and returns an AgentConfig.
// A missing file yields the defaults. It applies defaults and validates the
// configuration.
func ParseConfig(path string) (*AgentConfig, error) {
	var cfg AgentConfig

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("agent: config: read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("agent: config: parse %s: %w", path, err)
		}
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
