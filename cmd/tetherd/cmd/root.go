// Package cmd implements the tetherd CLI commands.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plexsphere/tetherd/internal/agent"
)

var (
	cfgFile  string
	logLevel string
)

// Build info set from main.
var (
	buildVersion = "dev"
	buildCommit  = "none"
	buildDate    = "unknown"
)

// SetVersionInfo sets the version info from build-time ldflags.
func SetVersionInfo(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date
	rootCmd.Version = buildVersion
	rootCmd.SetVersionTemplate(fmt.Sprintf("tetherd version {{.Version}}\ncommit: %s\nbuilt: %s\n", buildCommit, buildDate))
}

var rootCmd = &cobra.Command{
	Use:   "tetherd",
	Short: "tetherd switches a combo Wi-Fi chip between station and AP mode",
	Long: "tetherd follows ConnMan's Wi-Fi tethering state and drives the wmtWifi\n" +
		"mode switch accordingly. When tethering is turned on it waits for\n" +
		"wpa_supplicant to expose the access point interface and removes the\n" +
		"interfaces left over from station mode.",
	// No Run function; prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", agent.DefaultConfigPath, "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error), overrides config")

	rootCmd.Version = buildVersion
	rootCmd.SetVersionTemplate(fmt.Sprintf("tetherd version {{.Version}}\ncommit: %s\nbuilt: %s\n", buildCommit, buildDate))
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig parses the config file and applies CLI flag overrides.
func loadConfig() (*agent.AgentConfig, error) {
	cfg, err := agent.ParseConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
