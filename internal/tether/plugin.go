package tether

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/plexsphere/tetherd/internal/connman"
	"github.com/plexsphere/tetherd/internal/eventloop"
	"github.com/plexsphere/tetherd/internal/linkstate"
	"github.com/plexsphere/tetherd/internal/modeswitch"
	"github.com/plexsphere/tetherd/internal/supplicant"
)

// PluginName is the name the plugin registers its notifier under.
const PluginName = "wmtWifi tethering notifier"

// ModeSwitch issues hardware mode commands.
type ModeSwitch interface {
	SetMode(m modeswitch.Mode) error
}

// Host delivers tethering changes to registered notifiers.
type Host interface {
	Register(n connman.Notifier) error
	Unregister(n connman.Notifier)
}

// LinkDescriber reports the kernel view of a link.
type LinkDescriber interface {
	Describe(ifname string) (linkstate.Status, error)
}

// Plugin ties tethering changes to the hardware mode switch and the wait
// coordinator. It holds the process-wide supplicant reference between Init
// and Exit. All methods must be called from the event loop.
type Plugin struct {
	sw     ModeSwitch
	sup    supplicant.Supplicant
	coord  *Coordinator
	cfg    Config
	logger *slog.Logger

	host  Host
	links LinkDescriber

	// seq numbers tethering changes so a change that finishes after a
	// newer, nested one does not overwrite its status.
	seq    uint64
	apName string
	apPath string
}

var _ connman.Notifier = (*Plugin)(nil)

// NewPlugin creates a new Plugin. Config defaults are applied
// automatically.
func NewPlugin(sw ModeSwitch, sup supplicant.Supplicant, loop *eventloop.Loop, cfg Config, logger *slog.Logger) *Plugin {
	cfg.ApplyDefaults()
	return &Plugin{
		sw:     sw,
		sup:    sup,
		coord:  NewCoordinator(loop, sup, cfg, logger),
		cfg:    cfg,
		logger: logger,
	}
}

// SetLinkDescriber sets the reporter consulted after an AP interface was
// chosen. Must be called before Init.
func (p *Plugin) SetLinkDescriber(d LinkDescriber) {
	p.links = d
}

// Coordinator returns the plugin's wait coordinator.
func (p *Plugin) Coordinator() *Coordinator {
	return p.coord
}

// Name implements connman.Notifier.
func (p *Plugin) Name() string {
	return PluginName
}

// Init takes the supplicant reference and registers with host.
func (p *Plugin) Init(host Host) error {
	p.logger.Info("initializing wmtWifi tethering plugin", "component", "tether")

	p.sup.Ref()
	if err := host.Register(p); err != nil {
		p.sup.Unref()
		return fmt.Errorf("tether: init: %w", err)
	}
	p.host = host
	return nil
}

// Exit unregisters from the host and drops the supplicant reference.
func (p *Plugin) Exit() {
	p.logger.Debug("exiting wmtWifi tethering plugin", "component", "tether")
	if p.host == nil {
		return
	}
	p.host.Unregister(p)
	p.host = nil
	p.sup.Unref()
}

// TetheringChanged implements connman.Notifier. Turning tethering on puts
// the chip into AP mode and waits for the supplicant to expose the AP
// interface; turning it off puts the chip back into station mode and ends
// any wait still in progress. A failed mode command skips the wait.
func (p *Plugin) TetheringChanged(tech connman.Technology, on bool) {
	p.seq++
	seq := p.seq

	mode := modeswitch.ModeSTA
	var check Predicate
	if on {
		mode = modeswitch.ModeAP
		check = SelectAP(p.apSelected)
		p.apName, p.apPath = "", ""
	}

	p.logger.Info("tethering changed",
		"component", "tether",
		"technology", tech.Type,
		"on", on,
	)

	st := Status{Tethering: on, Mode: mode.String()}

	if err := p.sw.SetMode(mode); err != nil {
		p.logger.Warn("mode switch failed, not waiting",
			"component", "tether",
			"mode", mode.String(),
			"error", err,
		)
		st.Outcome = OutcomeCommandFailed
		p.writeStatus(seq, st)
		return
	}

	outcome := p.coord.Request(check)
	p.logger.Debug("tethering change handled",
		"component", "tether",
		"on", on,
		"outcome", outcome.String(),
	)

	st.Outcome = outcome.String()
	if on {
		st.APInterface, st.APPath = p.apName, p.apPath
	}
	p.writeStatus(seq, st)
}

func (p *Plugin) apSelected(ap supplicant.Interface) {
	p.apName, p.apPath = ap.Ifname(), ap.Path()

	if p.links == nil {
		return
	}
	link, err := p.links.Describe(ap.Ifname())
	if err != nil {
		p.logger.Debug("AP link not visible yet",
			"component", "tether",
			"ifname", ap.Ifname(),
			"error", err,
		)
		return
	}
	p.logger.Info("AP interface ready",
		"component", "tether",
		"ifname", link.Name,
		"index", link.Index,
		"mac", link.MAC,
		"up", link.Up,
		"operstate", link.OperState,
		"wifi_type", link.WifiType,
	)
}

func (p *Plugin) writeStatus(seq uint64, st Status) {
	if seq != p.seq || p.cfg.StatusFile == "" {
		return
	}
	st.UpdatedAt = time.Now().UTC()
	if err := WriteStatus(p.cfg.StatusFile, st); err != nil {
		p.logger.Warn("failed to write status",
			"component", "tether",
			"path", p.cfg.StatusFile,
			"error", err,
		)
	}
}
