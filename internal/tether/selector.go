package tether

import "github.com/plexsphere/tetherd/internal/supplicant"

// CheckAP is the "tethering on" predicate without a selection callback.
func CheckAP(r *Registry) bool {
	return SelectAP(nil)(r)
}

// SelectAP returns a predicate that holds once every tracked interface is
// valid and at least one of them can act as an access point.
//
// Any interface that is not valid yet defers the decision. Among AP-capable
// interfaces the one with the smallest object path wins. On success the
// predicate asks the supplicant to remove every other interface whose name
// differs from the chosen one (fire-and-forget), then calls onSelected with
// the chosen interface.
func SelectAP(onSelected func(ap supplicant.Interface)) Predicate {
	return func(r *Registry) bool {
		ifaces := r.Interfaces()

		var ap supplicant.Interface
		for _, iface := range ifaces {
			if !iface.Valid() {
				return false
			}
			if ap == nil && iface.Caps().Has(supplicant.CapsModeAP) {
				ap = iface
			}
		}
		if ap == nil {
			return false
		}

		for _, iface := range ifaces {
			if iface.Ifname() == ap.Ifname() {
				r.logger.Debug("AP interface chosen",
					"component", "tether",
					"path", iface.Path(),
					"ifname", iface.Ifname(),
				)
				continue
			}
			r.logger.Debug("removing interface",
				"component", "tether",
				"path", iface.Path(),
				"ifname", iface.Ifname(),
			)
			iface.Supplicant().RemoveInterface(iface.Path())
		}

		if onSelected != nil {
			onSelected(ap)
		}
		return true
	}
}
