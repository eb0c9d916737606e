package eventloop

import "errors"

// Config holds the configuration for the dispatch loop.
// Config is passed as a constructor argument; there is no file I/O in this package.
type Config struct {
	// QueueSize is the capacity of the pending event queue. Posting to a
	// full queue blocks the poster until the loop catches up.
	// Default: 64
	QueueSize int `yaml:"queue_size"`
}

// DefaultQueueSize is the default event queue capacity.
const DefaultQueueSize = 64

// ApplyDefaults sets default values for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.QueueSize == 0 {
		c.QueueSize = DefaultQueueSize
	}
}

// Validate checks that configuration values are acceptable.
func (c *Config) Validate() error {
	if c.QueueSize < 1 {
		return errors.New("eventloop: config: QueueSize must be at least 1")
	}
	return nil
}
