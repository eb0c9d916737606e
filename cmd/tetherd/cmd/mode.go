package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plexsphere/tetherd/internal/modeswitch"
)

var devicePath string

var modeCmd = &cobra.Command{
	Use:   "mode ap|sta",
	Short: "Send a single mode command to the chip",
	Long: "Write one mode command to the wmtWifi control device without waiting\n" +
		"for wpa_supplicant. Useful for bring-up and debugging.",
	Args: cobra.ExactArgs(1),
	RunE: runMode,
}

func init() {
	modeCmd.Flags().StringVar(&devicePath, "device", "", "control device path (overrides config)")
	rootCmd.AddCommand(modeCmd)
}

func runMode(cmd *cobra.Command, args []string) error {
	m, err := modeswitch.ParseMode(args[0])
	if err != nil {
		return fmt.Errorf("tetherd mode: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("tetherd mode: %w", err)
	}
	if devicePath != "" {
		cfg.ModeSwitch.DevicePath = devicePath
	}

	logger := setupLogger(cfg.LogLevel)
	dev := modeswitch.NewDevice(cfg.ModeSwitch, logger)
	if err := dev.SetMode(m); err != nil {
		return fmt.Errorf("tetherd mode: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Mode %s written to %s\n", m, dev.Path())
	return nil
}
