package supplicant

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/godbus/dbus/v5"
)

const (
	serviceName      = "fi.w1.wpa_supplicant1"
	servicePath      = dbus.ObjectPath("/fi/w1/wpa_supplicant1")
	serviceInterface = "fi.w1.wpa_supplicant1"
	ifaceInterface   = "fi.w1.wpa_supplicant1.Interface"

	propertiesInterface = "org.freedesktop.DBus.Properties"
	propertiesGetAll    = propertiesInterface + ".GetAll"
	propertiesChanged   = propertiesInterface + ".PropertiesChanged"

	busInterface    = "org.freedesktop.DBus"
	nameOwnerSignal = busInterface + ".NameOwnerChanged"

	interfaceAddedSignal   = serviceInterface + ".InterfaceAdded"
	interfaceRemovedSignal = serviceInterface + ".InterfaceRemoved"
	removeInterfaceMethod  = serviceInterface + ".RemoveInterface"
)

// Poster queues work onto the event loop.
type Poster interface {
	Post(fn func()) error
}

// Conn is the subset of *dbus.Conn the client uses.
type Conn interface {
	Object(dest string, path dbus.ObjectPath) dbus.BusObject
	AddMatchSignal(options ...dbus.MatchOption) error
	RemoveMatchSignal(options ...dbus.MatchOption) error
	Signal(ch chan<- *dbus.Signal)
	RemoveSignal(ch chan<- *dbus.Signal)
}

// Client is the D-Bus implementation of Supplicant. Apart from Start and
// Close, all methods must be called from the event loop.
type Client struct {
	conn   Conn
	loop   Poster
	cfg    Config
	logger *slog.Logger
	obj    dbus.BusObject

	refs       int
	valid      bool
	gen        uint64
	interfaces []string
	handlers   handlerSet[Property]
	ifaces     map[string]*dbusInterface

	signals chan *dbus.Signal
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

var _ Supplicant = (*Client)(nil)

// NewClient creates a new Client holding one reference. Config defaults are
// applied automatically.
func NewClient(conn Conn, loop Poster, cfg Config, logger *slog.Logger) *Client {
	cfg.ApplyDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		conn:    conn,
		loop:    loop,
		cfg:     cfg,
		logger:  logger,
		obj:     conn.Object(serviceName, servicePath),
		refs:    1,
		ifaces:  make(map[string]*dbusInterface),
		signals: make(chan *dbus.Signal, 16),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (c *Client) matchRules() [][]dbus.MatchOption {
	return [][]dbus.MatchOption{
		{
			dbus.WithMatchInterface(propertiesInterface),
			dbus.WithMatchMember("PropertiesChanged"),
			dbus.WithMatchSender(serviceName),
		},
		{
			dbus.WithMatchInterface(serviceInterface),
			dbus.WithMatchMember("InterfaceAdded"),
			dbus.WithMatchObjectPath(servicePath),
		},
		{
			dbus.WithMatchInterface(serviceInterface),
			dbus.WithMatchMember("InterfaceRemoved"),
			dbus.WithMatchObjectPath(servicePath),
		},
		{
			dbus.WithMatchInterface(busInterface),
			dbus.WithMatchMember("NameOwnerChanged"),
			dbus.WithMatchArg(0, serviceName),
		},
	}
}

// Start subscribes to supplicant signals and fetches the service
// properties in the background. It must be called before the event loop
// starts dispatching.
func (c *Client) Start() error {
	for _, rule := range c.matchRules() {
		if err := c.conn.AddMatchSignal(rule...); err != nil {
			return fmt.Errorf("supplicant: start: add match: %w", err)
		}
	}
	c.conn.Signal(c.signals)

	c.wg.Add(1)
	go c.readSignals()

	c.fetch(c.gen)

	c.logger.Debug("supplicant client started",
		"component", "supplicant",
		"bus", c.cfg.Bus,
	)
	return nil
}

// Close waits for background goroutines. Call it once the last reference
// is gone and the event loop has stopped.
func (c *Client) Close() {
	c.cancel()
	c.wg.Wait()
}

func (c *Client) readSignals() {
	defer c.wg.Done()
	for {
		select {
		case <-c.ctx.Done():
			return
		case sig := <-c.signals:
			if sig == nil {
				continue
			}
			if err := c.loop.Post(func() { c.handleSignal(sig) }); err != nil {
				return
			}
		}
	}
}

// fetch reads the service properties in the background and applies them on
// the loop unless the service generation changed meanwhile.
func (c *Client) fetch(gen uint64) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ctx, cancel := context.WithTimeout(c.ctx, c.cfg.CallTimeout)
		defer cancel()

		var props map[string]dbus.Variant
		call := c.obj.CallWithContext(ctx, propertiesGetAll, 0, serviceInterface)
		if call.Err == nil {
			call.Err = call.Store(&props)
		}
		if call.Err != nil {
			if c.ctx.Err() == nil {
				c.logger.Debug("supplicant not available",
					"component", "supplicant",
					"error", call.Err,
				)
			}
			return
		}

		_ = c.loop.Post(func() {
			if gen != c.gen || c.refs == 0 {
				return
			}
			c.applyServiceProps(props, true)
		})
	}()
}

// refetch discards any fetch in flight and starts a new one. A change seen
// before the first fetch was applied may be newer than that fetch's reply.
func (c *Client) refetch() {
	c.gen++
	c.fetch(c.gen)
}

// applyServiceProps merges fetched or changed service properties. A change
// arriving before the initial fetch was applied triggers a refetch.
func (c *Client) applyServiceProps(props map[string]dbus.Variant, initial bool) {
	if !initial && !c.valid {
		c.refetch()
		return
	}

	interfacesChanged := false
	if v, ok := props["Interfaces"]; ok {
		paths, ok := objectPaths(v)
		if !ok {
			c.logger.Warn("unexpected Interfaces payload",
				"component", "supplicant",
				"signature", v.Signature().String(),
			)
		} else if !slices.Equal(paths, c.interfaces) {
			c.interfaces = paths
			interfacesChanged = true
		}
	}

	becameValid := initial && !c.valid
	if becameValid {
		c.valid = true
		c.logger.Info("supplicant available",
			"component", "supplicant",
			"interfaces", len(c.interfaces),
		)
		for _, it := range c.ifaces {
			if !it.valid {
				it.fetch()
			}
		}
	}

	if becameValid {
		c.handlers.emit(PropertyValid)
	}
	if interfacesChanged {
		c.handlers.emit(PropertyInterfaces)
	}
}

// lost marks the service and every interface handle invalid.
func (c *Client) lost() {
	c.gen++
	wasValid := c.valid
	hadInterfaces := len(c.interfaces) > 0

	c.valid = false
	c.interfaces = nil

	c.logger.Info("supplicant vanished", "component", "supplicant")

	for _, it := range c.ifaces {
		it.invalidate()
	}
	if wasValid {
		c.handlers.emit(PropertyValid)
	}
	if hadInterfaces {
		c.handlers.emit(PropertyInterfaces)
	}
}

func (c *Client) handleSignal(sig *dbus.Signal) {
	if c.refs == 0 {
		return
	}

	switch sig.Name {
	case nameOwnerSignal:
		var name, oldOwner, newOwner string
		if err := dbus.Store(sig.Body, &name, &oldOwner, &newOwner); err != nil || name != serviceName {
			return
		}
		if oldOwner != "" {
			c.lost()
		}
		if newOwner != "" {
			c.fetch(c.gen)
		}

	case propertiesChanged:
		var iface string
		var changed map[string]dbus.Variant
		var invalidated []string
		if err := dbus.Store(sig.Body, &iface, &changed, &invalidated); err != nil {
			c.logger.Warn("malformed PropertiesChanged",
				"component", "supplicant",
				"path", sig.Path,
				"error", err,
			)
			return
		}
		switch iface {
		case serviceInterface:
			if sig.Path == servicePath {
				c.applyServiceProps(changed, false)
			}
		case ifaceInterface:
			if it, ok := c.ifaces[string(sig.Path)]; ok {
				it.applyProps(changed, false)
			}
		}

	case interfaceAddedSignal:
		if len(sig.Body) == 0 {
			return
		}
		path, ok := sig.Body[0].(dbus.ObjectPath)
		if !ok {
			return
		}
		if !c.valid {
			c.refetch()
			return
		}
		if !slices.Contains(c.interfaces, string(path)) {
			c.setInterfaces(append(slices.Clone(c.interfaces), string(path)))
		}

	case interfaceRemovedSignal:
		var path dbus.ObjectPath
		if err := dbus.Store(sig.Body, &path); err != nil {
			return
		}
		if c.valid {
			c.setInterfaces(slices.DeleteFunc(slices.Clone(c.interfaces), func(p string) bool {
				return p == string(path)
			}))
		}
		// Handlers above may have released the handle.
		if it, ok := c.ifaces[string(path)]; ok {
			it.invalidate()
		}
	}
}

// setInterfaces replaces the path list, notifying only on change.
func (c *Client) setInterfaces(paths []string) {
	if slices.Equal(paths, c.interfaces) {
		return
	}
	c.interfaces = paths
	c.handlers.emit(PropertyInterfaces)
}

// Valid reports whether the service properties have been fetched.
func (c *Client) Valid() bool {
	return c.valid
}

// Interfaces returns a copy of the interface path list.
func (c *Client) Interfaces() []string {
	return slices.Clone(c.interfaces)
}

func (c *Client) AddPropertyChangedHandler(p Property, fn func(Property)) HandlerID {
	return c.handlers.add(p, fn)
}

func (c *Client) RemoveHandlers(ids ...HandlerID) {
	c.handlers.remove(ids...)
}

// Interface returns the shared handle for path, creating it on first use.
func (c *Client) Interface(path string) Interface {
	if it, ok := c.ifaces[path]; ok {
		it.refs++
		return it
	}

	it := &dbusInterface{
		client: c,
		path:   path,
		obj:    c.conn.Object(serviceName, dbus.ObjectPath(path)),
		refs:   1,
	}
	c.ifaces[path] = it
	if c.valid {
		it.fetch()
	}
	return it
}

// RemoveInterface sends RemoveInterface without waiting for a reply.
func (c *Client) RemoveInterface(path string) {
	c.logger.Debug("requesting interface removal",
		"component", "supplicant",
		"path", path,
	)
	c.obj.Go(removeInterfaceMethod, dbus.FlagNoReplyExpected, nil, dbus.ObjectPath(path))
}

func (c *Client) Ref() {
	c.refs++
}

// Unref drops a reference. Dropping the last one unsubscribes from the bus
// and stops the signal reader.
func (c *Client) Unref() {
	if c.refs == 0 {
		return
	}
	c.refs--
	if c.refs > 0 {
		return
	}

	c.conn.RemoveSignal(c.signals)
	for _, rule := range c.matchRules() {
		if err := c.conn.RemoveMatchSignal(rule...); err != nil {
			c.logger.Debug("failed to remove match rule",
				"component", "supplicant",
				"error", err,
			)
		}
	}
	c.handlers.clear()
	c.cancel()

	c.logger.Debug("supplicant client released", "component", "supplicant")
}

// Refs returns the current reference count.
func (c *Client) Refs() int {
	return c.refs
}

func objectPaths(v dbus.Variant) ([]string, bool) {
	raw, ok := v.Value().([]dbus.ObjectPath)
	if !ok {
		return nil, false
	}
	paths := make([]string, 0, len(raw))
	for _, p := range raw {
		paths = append(paths, string(p))
	}
	return paths, true
}
