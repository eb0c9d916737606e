// Package modeswitch drives the Wi-Fi chip's station/access-point mode
// through its command device.
package modeswitch

import (
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sys/unix"
)

// Mode is a hardware Wi-Fi operating mode.
type Mode byte

const (
	// ModeAP requests access-point mode.
	ModeAP Mode = 'A'
	// ModeSTA requests station mode.
	ModeSTA Mode = 'S'
)

// String returns the lowercase mode name.
func (m Mode) String() string {
	switch m {
	case ModeAP:
		return "ap"
	case ModeSTA:
		return "sta"
	default:
		return fmt.Sprintf("unknown(%q)", byte(m))
	}
}

// ParseMode maps "ap" and "sta" to their Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "ap", "AP":
		return ModeAP, nil
	case "sta", "STA", "station":
		return ModeSTA, nil
	default:
		return 0, fmt.Errorf("modeswitch: unknown mode %q (must be \"ap\" or \"sta\")", s)
	}
}

// ErrShortWrite is returned when the device accepted fewer bytes than the
// single-byte command.
var ErrShortWrite = errors.New("modeswitch: short write")

// Device writes mode commands to the control channel. Every call opens and
// closes the device; nothing is cached between calls.
type Device struct {
	cfg    Config
	logger *slog.Logger
}

// NewDevice creates a new Device. Config defaults are applied automatically.
func NewDevice(cfg Config, logger *slog.Logger) *Device {
	cfg.ApplyDefaults()
	return &Device{cfg: cfg, logger: logger}
}

// Path returns the control channel path.
func (d *Device) Path() string {
	return d.cfg.DevicePath
}

// SetMode opens the control channel read-write in synchronous mode and
// writes the one-byte command for m. No retry is attempted.
func (d *Device) SetMode(m Mode) error {
	fd, err := unix.Open(d.cfg.DevicePath, unix.O_RDWR|unix.O_SYNC|unix.O_CLOEXEC, 0)
	if err != nil {
		d.logger.Warn("failed to open mode switch device",
			"component", "modeswitch",
			"path", d.cfg.DevicePath,
			"error", err,
		)
		return fmt.Errorf("modeswitch: open %s: %w", d.cfg.DevicePath, err)
	}
	defer unix.Close(fd)

	n, err := unix.Write(fd, []byte{byte(m)})
	if err != nil {
		d.logger.Warn("error writing mode command",
			"component", "modeswitch",
			"path", d.cfg.DevicePath,
			"mode", m.String(),
			"error", err,
		)
		return fmt.Errorf("modeswitch: write %q to %s: %w", byte(m), d.cfg.DevicePath, err)
	}
	if n != 1 {
		d.logger.Warn("failed to write mode command",
			"component", "modeswitch",
			"path", d.cfg.DevicePath,
			"mode", m.String(),
			"written", n,
		)
		return fmt.Errorf("modeswitch: write %q to %s: %w", byte(m), d.cfg.DevicePath, ErrShortWrite)
	}

	d.logger.Debug("mode command written",
		"component", "modeswitch",
		"path", d.cfg.DevicePath,
		"mode", m.String(),
	)
	return nil
}
