package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/plexsphere/tetherd/internal/tether"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the last tethering change",
	Long:  "Read the status file written by the running daemon and display it.",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("tetherd status: %w", err)
	}

	st, err := tether.ReadStatus(cfg.Tether.StatusFile)
	if err != nil {
		return fmt.Errorf("tetherd status: %w", err)
	}

	tethering := "off"
	if st.Tethering {
		tethering = "on"
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Tethering: %s\n", tethering)
	fmt.Fprintf(w, "Mode:      %s\n", st.Mode)
	fmt.Fprintf(w, "Outcome:   %s\n", st.Outcome)
	if st.APInterface != "" {
		fmt.Fprintf(w, "AP:        %s (%s)\n", st.APInterface, st.APPath)
	}
	fmt.Fprintf(w, "Updated:   %s\n", st.UpdatedAt.Format(time.RFC3339))

	return nil
}
