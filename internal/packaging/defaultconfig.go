package packaging

import (
	"fmt"
	"path/filepath"
)

// GenerateDefaultConfig produces a default config.yaml for tetherd. If
// devicePath is empty the built-in control device is left commented out.
func GenerateDefaultConfig(devicePath, runDir string) string {
	deviceLine := "  # device_path: /dev/wmtWifi"
	if devicePath != "" {
		deviceLine = fmt.Sprintf("  device_path: %s", devicePath)
	}

	return fmt.Sprintf(`# tetherd configuration
# Omitted keys use their built-in defaults.

log_level: info

mode_switch:
%s

tether:
  wait_timeout: 1s
  status_file: %s

supplicant:
  bus: system
  call_timeout: 5s

connman:
  technology: /net/connman/technology/wifi
`, deviceLine, filepath.Join(runDir, "status.json"))
}
