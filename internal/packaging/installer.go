package packaging

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/plexsphere/tetherd/internal/fsutil"
)

// ServiceManager is the systemd surface the installer needs.
type ServiceManager interface {
	// Available reports whether units can be managed on this host.
	Available() bool
	// Reload makes systemd re-read unit files.
	Reload() error
	Enable(unit string) error
	Disable(unit string) error
	Stop(unit string) error
	// TryRestart restarts unit only if it is running.
	TryRestart(unit string) error
	// LoadState returns the unit's load state, e.g. "loaded" or "not-found".
	LoadState(unit string) (string, error)
}

// Installer installs and removes the tetherd service.
type Installer struct {
	cfg    InstallConfig
	units  ServiceManager
	logger *slog.Logger

	euid       func() int
	executable func() (string, error)
}

// NewInstaller creates a new Installer with defaults applied.
func NewInstaller(cfg InstallConfig, units ServiceManager, logger *slog.Logger) *Installer {
	cfg.ApplyDefaults()
	return &Installer{
		cfg:        cfg,
		units:      units,
		logger:     logger.With("component", "packaging"),
		euid:       os.Geteuid,
		executable: os.Executable,
	}
}

func (ins *Installer) configPath() string {
	return filepath.Join(ins.cfg.ConfigDir, "config.yaml")
}

func (ins *Installer) unitName() string {
	return ins.cfg.ServiceName + ".service"
}

func (ins *Installer) requireRoot(op string) error {
	if ins.euid() != 0 {
		return fmt.Errorf("packaging: %s requires root privileges", op)
	}
	return nil
}

// Install copies the running binary into place, writes a default config
// unless one exists, writes the unit and enables it. A running service is
// restarted so it picks up the new binary and unit.
func (ins *Installer) Install() error {
	if err := ins.requireRoot("install"); err != nil {
		return err
	}
	if !ins.units.Available() {
		return errors.New("packaging: systemd is not available")
	}

	ins.checkDevice()
	deps := ins.resolveDependencies()

	for _, dir := range []string{ins.cfg.ConfigDir, ins.cfg.RunDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("packaging: create directory %s: %w", dir, err)
		}
	}

	if err := ins.installBinary(); err != nil {
		return err
	}
	if err := ins.writeConfig(); err != nil {
		return err
	}

	changed, err := ins.writeUnit(deps)
	if err != nil {
		return err
	}
	if changed {
		if err := ins.units.Reload(); err != nil {
			return fmt.Errorf("packaging: daemon-reload: %w", err)
		}
	}

	if err := ins.units.Enable(ins.unitName()); err != nil {
		return fmt.Errorf("packaging: enable %s: %w", ins.unitName(), err)
	}
	if err := ins.units.TryRestart(ins.unitName()); err != nil {
		return fmt.Errorf("packaging: restart %s: %w", ins.unitName(), err)
	}

	ins.logger.Info("service installed",
		"unit", ins.unitName(),
		"device", ins.cfg.DevicePath,
		"after", deps,
	)
	return nil
}

// checkDevice warns when the mode switch device is absent, since the unit
// will not start until it appears.
func (ins *Installer) checkDevice() {
	info, err := os.Stat(ins.cfg.DevicePath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		ins.logger.Warn("mode switch device not present, service start is deferred until it appears",
			"device", ins.cfg.DevicePath,
		)
	case err != nil:
		ins.logger.Warn("cannot stat mode switch device", "device", ins.cfg.DevicePath, "error", err)
	case info.Mode()&fs.ModeCharDevice == 0:
		ins.logger.Warn("mode switch path is not a character device",
			"device", ins.cfg.DevicePath,
			"mode", info.Mode().String(),
		)
	}
}

// resolveDependencies returns the configured dependency units that are
// known to systemd on this host.
func (ins *Installer) resolveDependencies() []string {
	var deps []string
	for _, unit := range ins.cfg.Dependencies {
		state, err := ins.units.LoadState(unit)
		if err != nil || state != LoadStateLoaded {
			ins.logger.Warn("dependency unit unavailable, not ordering after it",
				"unit", unit,
				"state", state,
				"error", err,
			)
			continue
		}
		deps = append(deps, unit)
	}
	return deps
}

func (ins *Installer) installBinary() error {
	src, err := ins.executable()
	if err != nil {
		return fmt.Errorf("packaging: resolve executable path: %w", err)
	}
	if src, err = filepath.EvalSymlinks(src); err != nil {
		return fmt.Errorf("packaging: resolve symlinks: %w", err)
	}
	if src == ins.cfg.BinaryPath {
		return nil
	}
	if err := fsutil.CopyFileAtomic(ins.cfg.BinaryPath, src, 0o755); err != nil {
		return fmt.Errorf("packaging: install binary: %w", err)
	}
	ins.logger.Info("binary installed", "src", src, "dst", ins.cfg.BinaryPath)
	return nil
}

func (ins *Installer) writeConfig() error {
	path := ins.configPath()
	_, err := os.Stat(path)
	switch {
	case err == nil:
		ins.logger.Info("existing config preserved", "path", path)
		return nil
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("packaging: stat config: %w", err)
	}

	content := GenerateDefaultConfig(ins.cfg.DevicePath, ins.cfg.RunDir)
	if err := fsutil.WriteFileAtomic(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("packaging: write config: %w", err)
	}
	ins.logger.Info("default config written", "path", path)
	return nil
}

// writeUnit writes the unit file and reports whether its content changed.
func (ins *Installer) writeUnit(deps []string) (bool, error) {
	content := []byte(GenerateUnitFile(ins.cfg, deps))
	if current, err := os.ReadFile(ins.cfg.UnitFilePath); err == nil && bytes.Equal(current, content) {
		return false, nil
	}
	if err := fsutil.WriteFileAtomic(ins.cfg.UnitFilePath, content, 0o644); err != nil {
		return false, fmt.Errorf("packaging: write unit file: %w", err)
	}
	ins.logger.Info("unit file written", "path", ins.cfg.UnitFilePath)
	return true, nil
}

// Uninstall stops and removes the service and binary. With purge the
// runtime and config directories go as well. Uninstalling a host without
// a unit file is a no-op.
func (ins *Installer) Uninstall(purge bool) error {
	if err := ins.requireRoot("uninstall"); err != nil {
		return err
	}
	if _, err := os.Stat(ins.cfg.UnitFilePath); errors.Is(err, fs.ErrNotExist) {
		ins.logger.Info("tetherd is not installed, nothing to do")
		return nil
	}

	// Either may fail on a unit that is already stopped or disabled.
	if err := ins.units.Stop(ins.unitName()); err != nil {
		ins.logger.Warn("stop service", "unit", ins.unitName(), "error", err)
	}
	if err := ins.units.Disable(ins.unitName()); err != nil {
		ins.logger.Warn("disable service", "unit", ins.unitName(), "error", err)
	}

	if err := os.Remove(ins.cfg.UnitFilePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("packaging: remove unit file: %w", err)
	}
	if err := ins.units.Reload(); err != nil {
		return fmt.Errorf("packaging: daemon-reload: %w", err)
	}
	if err := os.Remove(ins.cfg.BinaryPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("packaging: remove binary: %w", err)
	}

	removed := []string{ins.cfg.UnitFilePath, ins.cfg.BinaryPath}
	if purge {
		for _, dir := range []string{ins.cfg.RunDir, ins.cfg.ConfigDir} {
			if err := os.RemoveAll(dir); err != nil {
				return fmt.Errorf("packaging: remove directory %s: %w", dir, err)
			}
			removed = append(removed, dir)
		}
	}
	ins.logger.Info("service uninstalled", "removed", removed)
	return nil
}
