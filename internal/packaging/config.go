// Package packaging installs tetherd as a systemd service.
package packaging

import (
	"errors"

	"github.com/plexsphere/tetherd/internal/modeswitch"
)

// InstallConfig holds the configuration for installing tetherd as a systemd service.
// InstallConfig is passed as a constructor argument; there is no file I/O in this package.
type InstallConfig struct {
	// BinaryPath is the path to install the tetherd binary.
	// Default: /usr/local/bin/tetherd
	BinaryPath string

	// ConfigDir is the configuration directory.
	// Default: /etc/tetherd
	ConfigDir string

	// RunDir is the runtime directory holding the status file.
	// Default: /run/tetherd
	RunDir string

	// UnitFilePath is the path for the systemd unit file.
	// Default: /etc/systemd/system/tetherd.service
	UnitFilePath string

	// ServiceName is the systemd service name.
	// Default: tetherd
	ServiceName string

	// DevicePath is the mode switch control device. It is written into a
	// freshly generated config and gates service start.
	// Default: modeswitch.DefaultDevicePath
	DevicePath string

	// Dependencies are the units tetherd is ordered after when they are
	// installed on the host.
	// Default: connman.service, wpa_supplicant.service
	Dependencies []string
}

const (
	// DefaultBinaryPath is the default path to install the tetherd binary.
	DefaultBinaryPath = "/usr/local/bin/tetherd"

	// DefaultConfigDir is the default configuration directory.
	DefaultConfigDir = "/etc/tetherd"

	// DefaultRunDir is the default runtime directory.
	DefaultRunDir = "/run/tetherd"

	// DefaultServiceName is the default systemd service name.
	DefaultServiceName = "tetherd"

	// DefaultUnitFilePath is the default path for the systemd unit file.
	DefaultUnitFilePath = "/etc/systemd/system/tetherd.service"
)

// DefaultDependencies are the host services tetherd talks to.
var DefaultDependencies = []string{"connman.service", "wpa_supplicant.service"}

// ApplyDefaults sets default values for zero-valued fields.
func (c *InstallConfig) ApplyDefaults() {
	if c.BinaryPath == "" {
		c.BinaryPath = DefaultBinaryPath
	}
	if c.ConfigDir == "" {
		c.ConfigDir = DefaultConfigDir
	}
	if c.RunDir == "" {
		c.RunDir = DefaultRunDir
	}
	if c.ServiceName == "" {
		c.ServiceName = DefaultServiceName
	}
	if c.UnitFilePath == "" {
		c.UnitFilePath = DefaultUnitFilePath
	}
	if c.DevicePath == "" {
		c.DevicePath = modeswitch.DefaultDevicePath
	}
	if c.Dependencies == nil {
		c.Dependencies = append([]string(nil), DefaultDependencies...)
	}
}

// Validate checks that required fields are set.
func (c *InstallConfig) Validate() error {
	if c.BinaryPath == "" {
		return errors.New("packaging: config: BinaryPath is required")
	}
	if c.ConfigDir == "" {
		return errors.New("packaging: config: ConfigDir is required")
	}
	if c.RunDir == "" {
		return errors.New("packaging: config: RunDir is required")
	}
	if c.ServiceName == "" {
		return errors.New("packaging: config: ServiceName is required")
	}
	if c.UnitFilePath == "" {
		return errors.New("packaging: config: UnitFilePath is required")
	}
	if c.DevicePath == "" {
		return errors.New("packaging: config: DevicePath is required")
	}
	return nil
}
