package supplicant

import (
	"errors"
	"time"
)

// Config holds the configuration for the wpa_supplicant D-Bus client.
type Config struct {
	// Bus selects the message bus: "system" or "session".
	// Default: "system"
	Bus string `yaml:"bus"`

	// CallTimeout bounds each property fetch.
	// Default: 5s
	CallTimeout time.Duration `yaml:"call_timeout"`
}

const (
	// DefaultBus is the default message bus.
	DefaultBus = "system"

	// DefaultCallTimeout is the default property fetch timeout.
	DefaultCallTimeout = 5 * time.Second
)

// ApplyDefaults sets default values for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Bus == "" {
		c.Bus = DefaultBus
	}
	if c.CallTimeout == 0 {
		c.CallTimeout = DefaultCallTimeout
	}
}

// Validate checks that configuration values are acceptable.
func (c *Config) Validate() error {
	if c.Bus != "system" && c.Bus != "session" {
		return errors.New("supplicant: config: Bus must be \"system\" or \"session\"")
	}
	if c.CallTimeout <= 0 {
		return errors.New("supplicant: config: CallTimeout must be positive")
	}
	return nil
}
