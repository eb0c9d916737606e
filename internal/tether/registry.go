package tether

import (
	"log/slog"
	"maps"
	"slices"

	"github.com/plexsphere/tetherd/internal/supplicant"
)

// trackedInterface is one interface handle plus the handlers registered on
// it.
type trackedInterface struct {
	iface    supplicant.Interface
	handlers []supplicant.HandlerID
}

func (t *trackedInterface) release() {
	t.iface.RemoveHandlers(t.handlers...)
	t.handlers = nil
	t.iface.Release()
}

// Registry mirrors the supplicant's interface list. Every tracked interface
// holds a handle reference and validity/caps handlers that call onChange.
type Registry struct {
	sup      supplicant.Supplicant
	onChange func()
	logger   *slog.Logger
	ifaces   map[string]*trackedInterface
}

// NewRegistry creates an empty Registry. onChange is called whenever a
// tracked interface changes validity or capabilities.
func NewRegistry(sup supplicant.Supplicant, onChange func(), logger *slog.Logger) *Registry {
	return &Registry{
		sup:      sup,
		onChange: onChange,
		logger:   logger,
		ifaces:   make(map[string]*trackedInterface),
	}
}

// Refresh reconciles the tracked set with the supplicant's interface list.
// Paths that vanished are released before new paths are tracked. While the
// supplicant is invalid the tracked set is left as it is.
func (r *Registry) Refresh() {
	if !r.sup.Valid() {
		return
	}
	live := r.sup.Interfaces()

	for path, t := range r.ifaces {
		if !slices.Contains(live, path) {
			r.logger.Debug("interface gone",
				"component", "tether",
				"path", path,
			)
			t.release()
			delete(r.ifaces, path)
		}
	}

	for _, path := range live {
		if _, ok := r.ifaces[path]; ok {
			continue
		}
		r.ifaces[path] = r.track(path)
		r.logger.Debug("interface tracked",
			"component", "tether",
			"path", path,
		)
	}
}

func (r *Registry) track(path string) *trackedInterface {
	iface := r.sup.Interface(path)
	changed := func(supplicant.InterfaceProperty) {
		if r.onChange != nil {
			r.onChange()
		}
	}
	return &trackedInterface{
		iface: iface,
		handlers: []supplicant.HandlerID{
			iface.AddPropertyChangedHandler(supplicant.InterfacePropertyValid, changed),
			iface.AddPropertyChangedHandler(supplicant.InterfacePropertyCaps, changed),
		},
	}
}

// Close releases every tracked interface.
func (r *Registry) Close() {
	for path, t := range r.ifaces {
		t.release()
		delete(r.ifaces, path)
	}
}

// Len returns the number of tracked interfaces.
func (r *Registry) Len() int {
	return len(r.ifaces)
}

// Paths returns the tracked paths in ascending order.
func (r *Registry) Paths() []string {
	return slices.Sorted(maps.Keys(r.ifaces))
}

// Interfaces returns the tracked handles ordered by path.
func (r *Registry) Interfaces() []supplicant.Interface {
	paths := r.Paths()
	ifaces := make([]supplicant.Interface, 0, len(paths))
	for _, p := range paths {
		ifaces = append(ifaces, r.ifaces[p].iface)
	}
	return ifaces
}
