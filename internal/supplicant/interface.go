package supplicant

import (
	"context"

	"github.com/godbus/dbus/v5"
)

// dbusInterface is the shared, counted handle for one interface object.
type dbusInterface struct {
	client *Client
	path   string
	obj    dbus.BusObject

	refs     int
	gen      uint64
	valid    bool
	ifname   string
	caps     Caps
	handlers handlerSet[InterfaceProperty]
}

var _ Interface = (*dbusInterface)(nil)

func (i *dbusInterface) Valid() bool            { return i.valid }
func (i *dbusInterface) Path() string           { return i.path }
func (i *dbusInterface) Ifname() string         { return i.ifname }
func (i *dbusInterface) Caps() Caps             { return i.caps }
func (i *dbusInterface) Supplicant() Supplicant { return i.client }

func (i *dbusInterface) AddPropertyChangedHandler(p InterfaceProperty, fn func(InterfaceProperty)) HandlerID {
	return i.handlers.add(p, fn)
}

func (i *dbusInterface) RemoveHandlers(ids ...HandlerID) {
	i.handlers.remove(ids...)
}

// Release drops one reference; the last one forgets the handle.
func (i *dbusInterface) Release() {
	if i.refs == 0 {
		return
	}
	i.refs--
	if i.refs > 0 {
		return
	}
	i.gen++
	i.handlers.clear()
	if i.client.ifaces[i.path] == i {
		delete(i.client.ifaces, i.path)
	}
}

func (i *dbusInterface) fetch() {
	c := i.client
	gen := i.gen

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ctx, cancel := context.WithTimeout(c.ctx, c.cfg.CallTimeout)
		defer cancel()

		var props map[string]dbus.Variant
		call := i.obj.CallWithContext(ctx, propertiesGetAll, 0, ifaceInterface)
		if call.Err == nil {
			call.Err = call.Store(&props)
		}
		if call.Err != nil {
			if c.ctx.Err() == nil {
				c.logger.Debug("failed to fetch interface",
					"component", "supplicant",
					"path", i.path,
					"error", call.Err,
				)
			}
			return
		}

		_ = c.loop.Post(func() {
			if gen != i.gen || i.refs == 0 {
				return
			}
			i.applyProps(props, true)
		})
	}()
}

// applyProps merges fetched or changed interface properties. A change
// arriving before the initial fetch was applied triggers a refetch, since
// the pending reply may predate it.
func (i *dbusInterface) applyProps(props map[string]dbus.Variant, initial bool) {
	if !initial && !i.valid {
		if i.client.valid {
			i.gen++
			i.fetch()
		}
		return
	}

	if v, ok := props["Ifname"]; ok {
		if name, ok := v.Value().(string); ok {
			i.ifname = name
		}
	}

	capsChanged := false
	if v, ok := props["Capabilities"]; ok {
		if caps, ok := capsFromVariant(v); ok && caps != i.caps {
			i.caps = caps
			capsChanged = true
		}
	}

	becameValid := initial && !i.valid
	if becameValid {
		i.valid = true
		i.client.logger.Debug("interface available",
			"component", "supplicant",
			"path", i.path,
			"ifname", i.ifname,
			"caps", i.caps.String(),
		)
		i.handlers.emit(InterfacePropertyValid)
	}
	if capsChanged {
		i.handlers.emit(InterfacePropertyCaps)
	}
}

// invalidate marks the handle invalid, for instance after the supplicant
// removed the object. In-flight fetches are discarded.
func (i *dbusInterface) invalidate() {
	i.gen++
	if !i.valid {
		return
	}
	i.valid = false
	i.handlers.emit(InterfacePropertyValid)
}

func capsFromVariant(v dbus.Variant) (Caps, bool) {
	m, ok := v.Value().(map[string]dbus.Variant)
	if !ok {
		return 0, false
	}
	modes, ok := m["Modes"]
	if !ok {
		return 0, true
	}
	names, ok := modes.Value().([]string)
	if !ok {
		return 0, false
	}
	return ParseModes(names), true
}
