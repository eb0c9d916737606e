package packaging

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
)

// Load states reported by systemctl show.
const (
	LoadStateLoaded   = "loaded"
	LoadStateNotFound = "not-found"
	LoadStateMasked   = "masked"
)

// Systemctl manages units by running the systemctl binary.
type Systemctl struct {
	// Path is the systemctl executable. Default: "systemctl" from $PATH.
	Path string
}

var _ ServiceManager = (*Systemctl)(nil)

// NewSystemctl returns a Systemctl that resolves systemctl from $PATH.
func NewSystemctl() *Systemctl {
	return &Systemctl{Path: "systemctl"}
}

func (s *Systemctl) Available() bool {
	_, err := exec.LookPath(s.Path)
	return err == nil
}

func (s *Systemctl) Reload() error {
	_, err := s.run("daemon-reload")
	return err
}

func (s *Systemctl) Enable(unit string) error {
	_, err := s.run("enable", unit)
	return err
}

func (s *Systemctl) Disable(unit string) error {
	_, err := s.run("disable", unit)
	return err
}

func (s *Systemctl) Stop(unit string) error {
	_, err := s.run("stop", unit)
	return err
}

// TryRestart restarts unit if it is running and leaves it stopped otherwise.
func (s *Systemctl) TryRestart(unit string) error {
	_, err := s.run("try-restart", unit)
	return err
}

// LoadState returns the LoadState property of unit, e.g. "loaded" or
// "not-found".
func (s *Systemctl) LoadState(unit string) (string, error) {
	out, err := s.run("show", "--property=LoadState", "--value", unit)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (s *Systemctl) run(args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.Command(s.Path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("packaging: systemctl %s: %s: %w", args[0], strings.TrimSpace(stderr.String()), err)
	}
	return stdout.String(), nil
}
