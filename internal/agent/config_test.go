package agent

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/plexsphere/tetherd/internal/connman"
	"github.com/plexsphere/tetherd/internal/eventloop"
	"github.com/plexsphere/tetherd/internal/modeswitch"
	"github.com/plexsphere/tetherd/internal/supplicant"
	"github.com/plexsphere/tetherd/internal/tether"
)

func TestAgentConfig_ApplyDefaults(t *testing.T) {
	var cfg AgentConfig
	cfg.ApplyDefaults()

	if cfg.LogLevel != DefaultLogLevel {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, DefaultLogLevel)
	}
	if cfg.ModeSwitch.DevicePath != modeswitch.DefaultDevicePath {
		t.Errorf("ModeSwitch.DevicePath = %q, want %q", cfg.ModeSwitch.DevicePath, modeswitch.DefaultDevicePath)
	}
	if cfg.Tether.WaitTimeout != tether.DefaultWaitTimeout {
		t.Errorf("Tether.WaitTimeout = %v, want %v", cfg.Tether.WaitTimeout, tether.DefaultWaitTimeout)
	}
	if cfg.Supplicant.Bus != supplicant.DefaultBus {
		t.Errorf("Supplicant.Bus = %q, want %q", cfg.Supplicant.Bus, supplicant.DefaultBus)
	}
	if cfg.ConnMan.Technology != connman.DefaultTechnology {
		t.Errorf("ConnMan.Technology = %q, want %q", cfg.ConnMan.Technology, connman.DefaultTechnology)
	}
	if cfg.EventLoop.QueueSize != eventloop.DefaultQueueSize {
		t.Errorf("EventLoop.QueueSize = %d, want %d", cfg.EventLoop.QueueSize, eventloop.DefaultQueueSize)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestAgentConfig_Validate_InvalidLogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.LogLevel = "verbose"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid log level")
	}
}

func TestAgentConfig_Validate_Subsystem(t *testing.T) {
	cfg := validConfig()
	cfg.Supplicant.Bus = "tcp"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid supplicant bus")
	}
}

func TestParseConfig_ValidYAML(t *testing.T) {
	yaml := `
log_level: debug
mode_switch:
  device_path: /tmp/wmtWifi
tether:
  wait_timeout: 2500ms
  status_file: /tmp/tetherd/status.json
supplicant:
  bus: session
  call_timeout: 2s
connman:
  technology: /net/connman/technology/wifi
event_loop:
  queue_size: 16
link_state:
  disabled: true
`
	path := writeTemp(t, yaml)
	cfg, err := ParseConfig(path)
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if cfg.ModeSwitch.DevicePath != "/tmp/wmtWifi" {
		t.Errorf("ModeSwitch.DevicePath = %q, want %q", cfg.ModeSwitch.DevicePath, "/tmp/wmtWifi")
	}
	if cfg.Tether.WaitTimeout != 2500*time.Millisecond {
		t.Errorf("Tether.WaitTimeout = %v, want 2.5s", cfg.Tether.WaitTimeout)
	}
	if cfg.Tether.StatusFile != "/tmp/tetherd/status.json" {
		t.Errorf("Tether.StatusFile = %q", cfg.Tether.StatusFile)
	}
	if cfg.Supplicant.Bus != "session" || cfg.Supplicant.CallTimeout != 2*time.Second {
		t.Errorf("Supplicant = %+v, want session/2s", cfg.Supplicant)
	}
	if cfg.EventLoop.QueueSize != 16 {
		t.Errorf("EventLoop.QueueSize = %d, want 16", cfg.EventLoop.QueueSize)
	}
	if !cfg.LinkState.Disabled {
		t.Error("LinkState.Disabled = false, want true")
	}
}

func TestParseConfig_DefaultValues(t *testing.T) {
	path := writeTemp(t, "log_level: warn\n")
	cfg, err := ParseConfig(path)
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "warn")
	}
	if cfg.Tether.StatusFile != tether.DefaultStatusFile {
		t.Errorf("Tether.StatusFile = %q, want %q", cfg.Tether.StatusFile, tether.DefaultStatusFile)
	}
	if cfg.Supplicant.CallTimeout != supplicant.DefaultCallTimeout {
		t.Errorf("Supplicant.CallTimeout = %v, want %v", cfg.Supplicant.CallTimeout, supplicant.DefaultCallTimeout)
	}
}

func TestParseConfig_FileNotFound(t *testing.T) {
	cfg, err := ParseConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("ParseConfig: %v, want defaults for a missing file", err)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, DefaultLogLevel)
	}
}

func TestParseConfig_Unreadable(t *testing.T) {
	// A directory exists but cannot be read as a file.
	if _, err := ParseConfig(t.TempDir()); err == nil {
		t.Fatal("expected error for a directory path")
	}
}

func TestParseConfig_InvalidYAML(t *testing.T) {
	path := writeTemp(t, "{{invalid yaml")
	_, err := ParseConfig(path)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestParseConfig_InvalidValue(t *testing.T) {
	path := writeTemp(t, "tether:\n  wait_timeout: -1s\n")
	if _, err := ParseConfig(path); err == nil {
		t.Fatal("expected error for negative wait timeout")
	}
}

// validConfig returns an AgentConfig that passes Validate.
func validConfig() AgentConfig {
	var cfg AgentConfig
	cfg.ApplyDefaults()
	return cfg
}

// writeTemp writes content to a temporary YAML file and returns its path.
func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
