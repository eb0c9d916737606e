package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/plexsphere/tetherd/internal/packaging"
)

var installDevice string

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install tetherd as a systemd service",
	RunE:  runInstall,
}

func init() {
	installCmd.Flags().StringVar(&installDevice, "device", "", "mode switch device gating the service and written into a new config")
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, _ []string) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg := packaging.InstallConfig{
		DevicePath: installDevice,
	}

	installer := packaging.NewInstaller(cfg, packaging.NewSystemctl(), logger)

	if err := installer.Install(); err != nil {
		return fmt.Errorf("tetherd install: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "tetherd installed successfully")
	return nil
}
