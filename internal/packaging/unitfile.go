package packaging

import (
	"fmt"
	"path/filepath"
	"strings"
)

// GenerateUnitFile produces the systemd unit for the tetherd service. The
// service is ordered after dbus and every unit in deps, and only starts
// once the mode switch device exists. Defaults are applied to cfg first.
func GenerateUnitFile(cfg InstallConfig, deps []string) string {
	cfg.ApplyDefaults()

	after := append([]string{"dbus.service"}, deps...)
	var wants string
	if len(deps) > 0 {
		wants = "Wants=" + strings.Join(deps, " ") + "\n"
	}

	return fmt.Sprintf(`[Unit]
Description=tetherd Wi-Fi tethering mode switch
Requires=dbus.service
%sAfter=%s
ConditionPathExists=%s
StartLimitBurst=5
StartLimitIntervalSec=60

[Service]
Type=simple
ExecStart=%s run --config %s
Restart=on-failure
RestartSec=5s
AmbientCapabilities=CAP_NET_ADMIN
CapabilityBoundingSet=CAP_NET_ADMIN
DeviceAllow=%s rw
ProtectSystem=full
ProtectHome=true
ReadWritePaths=%s

[Install]
WantedBy=multi-user.target
`, wants, strings.Join(after, " "), cfg.DevicePath,
		cfg.BinaryPath, filepath.Join(cfg.ConfigDir, "config.yaml"),
		cfg.DevicePath, cfg.RunDir)
}
