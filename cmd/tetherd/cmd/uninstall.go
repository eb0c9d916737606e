package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/plexsphere/tetherd/internal/packaging"
)

var purge bool

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the tetherd systemd service",
	RunE:  runUninstall,
}

func init() {
	uninstallCmd.Flags().BoolVar(&purge, "purge", false, "also remove runtime and config directories")
	rootCmd.AddCommand(uninstallCmd)
}

func runUninstall(cmd *cobra.Command, _ []string) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg := packaging.InstallConfig{}
	installer := packaging.NewInstaller(cfg, packaging.NewSystemctl(), logger)

	if err := installer.Uninstall(purge); err != nil {
		return fmt.Errorf("tetherd uninstall: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "tetherd uninstalled successfully")
	return nil
}
