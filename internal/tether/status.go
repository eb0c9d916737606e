package tether

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/plexsphere/tetherd/internal/fsutil"
)

// Status is the runtime report written after every tethering change.
type Status struct {
	Tethering   bool      `json:"tethering"`
	Mode        string    `json:"mode"`
	Outcome     string    `json:"outcome"`
	APInterface string    `json:"ap_interface,omitempty"`
	APPath      string    `json:"ap_path,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// OutcomeCommandFailed is the status outcome of a change whose mode command
// failed, so no wait was attempted.
const OutcomeCommandFailed = "command_failed"

// WriteStatus stores st at path atomically.
func WriteStatus(path string, st Status) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("tether: write status: %w", err)
	}
	if err := fsutil.WriteFileAtomic(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("tether: write status: %w", err)
	}
	return nil
}

// ReadStatus loads the status written by WriteStatus.
func ReadStatus(path string) (*Status, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tether: read status: %w", err)
	}
	var st Status
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("tether: parse status %s: %w", path, err)
	}
	return &st, nil
}
