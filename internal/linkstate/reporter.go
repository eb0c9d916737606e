// Package linkstate describes the kernel view of a wireless link: its
// netlink attributes and nl80211 interface type.
package linkstate

import (
	"fmt"
	"log/slog"
	"net"

	"github.com/mdlayher/wifi"
	"github.com/vishvananda/netlink"
)

// Config holds the configuration for the link reporter.
type Config struct {
	// Disabled turns Describe into a no-op.
	Disabled bool `yaml:"disabled"`
}

// Status is a snapshot of one link.
type Status struct {
	Name      string
	Index     int
	MAC       string
	Up        bool
	OperState string
	// WifiType is the nl80211 interface type, empty when nl80211 does not
	// know the link.
	WifiType string
	PHY      int
}

// Reporter looks links up through netlink and nl80211.
type Reporter struct {
	cfg    Config
	logger *slog.Logger

	linkByName     func(name string) (netlink.Link, error)
	wifiInterfaces func() ([]*wifi.Interface, error)
}

// NewReporter returns a Reporter backed by the host's netlink sockets.
func NewReporter(cfg Config, logger *slog.Logger) *Reporter {
	return &Reporter{
		cfg:            cfg,
		logger:         logger,
		linkByName:     netlink.LinkByName,
		wifiInterfaces: listWifiInterfaces,
	}
}

func listWifiInterfaces() ([]*wifi.Interface, error) {
	c, err := wifi.New()
	if err != nil {
		return nil, err
	}
	defer c.Close()
	return c.Interfaces()
}

// Describe returns the link status for ifname. A missing nl80211 entry is
// not an error; a missing netlink link is.
func (r *Reporter) Describe(ifname string) (Status, error) {
	if r.cfg.Disabled {
		return Status{Name: ifname}, nil
	}

	link, err := r.linkByName(ifname)
	if err != nil {
		return Status{}, fmt.Errorf("linkstate: describe %s: %w", ifname, err)
	}
	attrs := link.Attrs()

	st := Status{
		Name:      attrs.Name,
		Index:     attrs.Index,
		MAC:       attrs.HardwareAddr.String(),
		Up:        attrs.Flags&net.FlagUp != 0,
		OperState: attrs.OperState.String(),
	}

	ifaces, err := r.wifiInterfaces()
	if err != nil {
		r.logger.Debug("nl80211 unavailable",
			"component", "linkstate",
			"ifname", ifname,
			"error", err,
		)
		return st, nil
	}
	for _, wi := range ifaces {
		if wi.Name == ifname || (wi.Index != 0 && wi.Index == attrs.Index) {
			st.WifiType = wi.Type.String()
			st.PHY = wi.PHY
			break
		}
	}
	return st, nil
}
