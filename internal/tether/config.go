package tether

import (
	"errors"
	"time"
)

// Config holds the configuration for the tethering coordinator.
// Config is passed as a constructor argument; there is no file I/O in this package.
type Config struct {
	// WaitTimeout bounds how long a "tethering on" request waits for the
	// supplicant to expose an AP-capable interface. It runs from session
	// start and is not renewed by intermediate events.
	// Default: 1s
	WaitTimeout time.Duration `yaml:"wait_timeout"`

	// StatusFile is where the runtime status is written after every
	// tethering change.
	// Default: /run/tetherd/status.json
	StatusFile string `yaml:"status_file"`
}

const (
	// DefaultWaitTimeout is the default convergence window.
	DefaultWaitTimeout = 1000 * time.Millisecond

	// DefaultStatusFile is the default runtime status location.
	DefaultStatusFile = "/run/tetherd/status.json"
)

// ApplyDefaults sets default values for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.WaitTimeout == 0 {
		c.WaitTimeout = DefaultWaitTimeout
	}
	if c.StatusFile == "" {
		c.StatusFile = DefaultStatusFile
	}
}

// Validate checks that configuration values are acceptable.
func (c *Config) Validate() error {
	if c.WaitTimeout <= 0 {
		return errors.New("tether: config: WaitTimeout must be positive")
	}
	return nil
}
