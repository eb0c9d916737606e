package modeswitch

import "errors"

// Config holds the configuration for the hardware mode switch.
type Config struct {
	// DevicePath is the character device accepting single-byte mode
	// commands.
	// Default: /dev/wmtWifi
	DevicePath string `yaml:"device_path"`
}

// DefaultDevicePath is the default control channel.
const DefaultDevicePath = "/dev/wmtWifi"

// ApplyDefaults sets default values for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.DevicePath == "" {
		c.DevicePath = DefaultDevicePath
	}
}

// Validate checks that configuration values are acceptable.
func (c *Config) Validate() error {
	if c.DevicePath == "" {
		return errors.New("modeswitch: config: DevicePath is required")
	}
	return nil
}
