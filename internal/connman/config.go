package connman

import (
	"errors"
	"strings"
)

// Config holds the configuration for the ConnMan technology watcher.
type Config struct {
	// Technology is the object path of the technology whose Tethering
	// property is watched.
	// Default: /net/connman/technology/wifi
	Technology string `yaml:"technology"`
}

// DefaultTechnology is the default watched technology.
const DefaultTechnology = "/net/connman/technology/wifi"

// ApplyDefaults sets default values for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Technology == "" {
		c.Technology = DefaultTechnology
	}
}

// Validate checks that configuration values are acceptable.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.Technology, "/") {
		return errors.New("connman: config: Technology must be an absolute object path")
	}
	return nil
}
