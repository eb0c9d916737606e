// Package connman delivers ConnMan tethering changes to registered
// notifiers.
package connman

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"slices"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	serviceName         = "net.connman"
	technologyInterface = "net.connman.Technology"
	propertyChanged     = technologyInterface + ".PropertyChanged"
	getProperties       = technologyInterface + ".GetProperties"

	tetheringProperty = "Tethering"

	fetchTimeout = 5 * time.Second
)

// Technology identifies the ConnMan technology a change refers to.
type Technology struct {
	Path string
	Type string
}

// Notifier receives tethering changes. Calls happen on the event loop.
type Notifier interface {
	Name() string
	TetheringChanged(tech Technology, on bool)
}

// Poster queues work onto the event loop.
type Poster interface {
	Post(fn func()) error
}

// Conn is the subset of *dbus.Conn the watcher uses.
type Conn interface {
	Object(dest string, path dbus.ObjectPath) dbus.BusObject
	AddMatchSignal(options ...dbus.MatchOption) error
	RemoveMatchSignal(options ...dbus.MatchOption) error
	Signal(ch chan<- *dbus.Signal)
	RemoveSignal(ch chan<- *dbus.Signal)
}

// Watcher follows the Tethering property of one technology. Register,
// Unregister and change delivery happen on the event loop.
type Watcher struct {
	conn   Conn
	loop   Poster
	cfg    Config
	logger *slog.Logger

	tech      Technology
	known     bool
	tethering bool
	notifiers []Notifier

	signals chan *dbus.Signal
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewWatcher creates a new Watcher. Config defaults are applied
// automatically.
func NewWatcher(conn Conn, loop Poster, cfg Config, logger *slog.Logger) *Watcher {
	cfg.ApplyDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		conn:   conn,
		loop:   loop,
		cfg:    cfg,
		logger: logger,
		tech: Technology{
			Path: cfg.Technology,
			Type: path.Base(cfg.Technology),
		},
		signals: make(chan *dbus.Signal, 16),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Register adds n to the notifier list.
func (w *Watcher) Register(n Notifier) error {
	if slices.Contains(w.notifiers, n) {
		return fmt.Errorf("connman: notifier %q already registered", n.Name())
	}
	w.notifiers = append(w.notifiers, n)
	w.logger.Debug("notifier registered",
		"component", "connman",
		"notifier", n.Name(),
	)
	return nil
}

// Unregister removes n from the notifier list.
func (w *Watcher) Unregister(n Notifier) {
	if i := slices.Index(w.notifiers, n); i >= 0 {
		w.notifiers = slices.Delete(w.notifiers, i, i+1)
		w.logger.Debug("notifier unregistered",
			"component", "connman",
			"notifier", n.Name(),
		)
	}
}

func (w *Watcher) matchRule() []dbus.MatchOption {
	return []dbus.MatchOption{
		dbus.WithMatchInterface(technologyInterface),
		dbus.WithMatchMember("PropertyChanged"),
		dbus.WithMatchObjectPath(dbus.ObjectPath(w.cfg.Technology)),
	}
}

// Start subscribes to technology property changes and seeds the current
// tethering state in the background.
func (w *Watcher) Start() error {
	if err := w.conn.AddMatchSignal(w.matchRule()...); err != nil {
		return fmt.Errorf("connman: start: add match: %w", err)
	}
	w.conn.Signal(w.signals)

	w.wg.Add(2)
	go w.readSignals()
	go w.seed()

	w.logger.Info("watching technology",
		"component", "connman",
		"technology", w.tech.Path,
	)
	return nil
}

// Stop unsubscribes and waits for background goroutines.
func (w *Watcher) Stop() {
	w.conn.RemoveSignal(w.signals)
	if err := w.conn.RemoveMatchSignal(w.matchRule()...); err != nil {
		w.logger.Debug("failed to remove match rule",
			"component", "connman",
			"error", err,
		)
	}
	w.cancel()
	w.wg.Wait()
}

func (w *Watcher) readSignals() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case sig := <-w.signals:
			if sig == nil {
				continue
			}
			if err := w.loop.Post(func() { w.handleSignal(sig) }); err != nil {
				return
			}
		}
	}
}

// seed records the tethering state at startup so that only later changes
// are delivered.
func (w *Watcher) seed() {
	defer w.wg.Done()

	ctx, cancel := context.WithTimeout(w.ctx, fetchTimeout)
	defer cancel()

	obj := w.conn.Object(serviceName, dbus.ObjectPath(w.cfg.Technology))
	var props map[string]dbus.Variant
	call := obj.CallWithContext(ctx, getProperties, 0)
	if call.Err == nil {
		call.Err = call.Store(&props)
	}
	if call.Err != nil {
		if w.ctx.Err() == nil {
			w.logger.Warn("failed to read technology properties",
				"component", "connman",
				"technology", w.tech.Path,
				"error", call.Err,
			)
		}
		return
	}

	_ = w.loop.Post(func() { w.applySeed(props) })
}

func (w *Watcher) applySeed(props map[string]dbus.Variant) {
	if v, ok := props["Type"]; ok {
		if typ, ok := v.Value().(string); ok {
			w.tech.Type = typ
		}
	}
	if w.known {
		return
	}
	if v, ok := props[tetheringProperty]; ok {
		if on, ok := v.Value().(bool); ok {
			w.known = true
			w.tethering = on
			w.logger.Debug("tethering state seeded",
				"component", "connman",
				"technology", w.tech.Path,
				"tethering", on,
			)
		}
	}
}

func (w *Watcher) handleSignal(sig *dbus.Signal) {
	if sig.Name != propertyChanged || string(sig.Path) != w.tech.Path {
		return
	}

	var name string
	var value dbus.Variant
	if err := dbus.Store(sig.Body, &name, &value); err != nil {
		w.logger.Warn("malformed PropertyChanged",
			"component", "connman",
			"error", err,
		)
		return
	}
	if name != tetheringProperty {
		return
	}
	on, ok := value.Value().(bool)
	if !ok {
		w.logger.Warn("unexpected Tethering payload",
			"component", "connman",
			"signature", value.Signature().String(),
		)
		return
	}

	w.setTethering(on)
}

// setTethering records on and notifies every registered notifier when it
// differs from the last known state.
func (w *Watcher) setTethering(on bool) {
	if w.known && w.tethering == on {
		return
	}
	w.known = true
	w.tethering = on

	w.logger.Info("tethering changed",
		"component", "connman",
		"technology", w.tech.Path,
		"tethering", on,
	)

	for _, n := range slices.Clone(w.notifiers) {
		n.TetheringChanged(w.tech, on)
	}
}
