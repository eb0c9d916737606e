package packaging

import (
	"slices"
	"testing"

	"github.com/plexsphere/tetherd/internal/modeswitch"
)

func TestInstallConfig_ApplyDefaults(t *testing.T) {
	var cfg InstallConfig
	cfg.ApplyDefaults()

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"BinaryPath", cfg.BinaryPath, DefaultBinaryPath},
		{"ConfigDir", cfg.ConfigDir, DefaultConfigDir},
		{"RunDir", cfg.RunDir, DefaultRunDir},
		{"ServiceName", cfg.ServiceName, DefaultServiceName},
		{"UnitFilePath", cfg.UnitFilePath, DefaultUnitFilePath},
		{"DevicePath", cfg.DevicePath, modeswitch.DefaultDevicePath},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
	if !slices.Equal(cfg.Dependencies, DefaultDependencies) {
		t.Errorf("Dependencies = %v, want %v", cfg.Dependencies, DefaultDependencies)
	}
}

func TestInstallConfig_ApplyDefaults_KeepsEmptyDependencies(t *testing.T) {
	cfg := InstallConfig{Dependencies: []string{}}
	cfg.ApplyDefaults()
	if len(cfg.Dependencies) != 0 {
		t.Errorf("Dependencies = %v, want an explicit empty list kept", cfg.Dependencies)
	}
}

func TestInstallConfig_Validate(t *testing.T) {
	var cfg InstallConfig
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() = nil for empty config, want error")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v after ApplyDefaults", err)
	}
}
