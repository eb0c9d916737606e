package connman

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(nopWriter{}, nil))
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

type queuePoster struct {
	ch chan func()
}

func (p *queuePoster) Post(fn func()) error {
	p.ch <- fn
	return nil
}

func (p *queuePoster) runOne(t *testing.T) {
	t.Helper()
	select {
	case fn := <-p.ch:
		fn()
	case <-time.After(time.Second):
		t.Fatal("nothing was posted")
	}
}

type fakeObject struct {
	dbus.BusObject
	props map[string]dbus.Variant
}

func (o *fakeObject) CallWithContext(_ context.Context, _ string, _ dbus.Flags, _ ...interface{}) *dbus.Call {
	return &dbus.Call{Body: []interface{}{o.props}}
}

type fakeConn struct {
	mu      sync.Mutex
	obj     *fakeObject
	matches int
	signals chan<- *dbus.Signal
}

func (c *fakeConn) Object(string, dbus.ObjectPath) dbus.BusObject { return c.obj }

func (c *fakeConn) AddMatchSignal(...dbus.MatchOption) error {
	c.mu.Lock()
	c.matches++
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) RemoveMatchSignal(...dbus.MatchOption) error {
	c.mu.Lock()
	c.matches--
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) Signal(ch chan<- *dbus.Signal) {
	c.mu.Lock()
	c.signals = ch
	c.mu.Unlock()
}

func (c *fakeConn) RemoveSignal(chan<- *dbus.Signal) {
	c.mu.Lock()
	c.signals = nil
	c.mu.Unlock()
}

func (c *fakeConn) send(sig *dbus.Signal) {
	c.mu.Lock()
	ch := c.signals
	c.mu.Unlock()
	ch <- sig
}

type recordingNotifier struct {
	name  string
	techs []Technology
	ons   []bool
}

func (n *recordingNotifier) Name() string { return n.name }

func (n *recordingNotifier) TetheringChanged(tech Technology, on bool) {
	n.techs = append(n.techs, tech)
	n.ons = append(n.ons, on)
}

func tetheringSignal(path string, on bool) *dbus.Signal {
	return &dbus.Signal{
		Path: dbus.ObjectPath(path),
		Name: propertyChanged,
		Body: []interface{}{tetheringProperty, dbus.MakeVariant(on)},
	}
}

func TestWatcher_DeliversTetheringChanges(t *testing.T) {
	conn := &fakeConn{obj: &fakeObject{props: map[string]dbus.Variant{
		"Type":            dbus.MakeVariant("wifi"),
		tetheringProperty: dbus.MakeVariant(false),
	}}}
	poster := &queuePoster{ch: make(chan func(), 8)}
	w := NewWatcher(conn, poster, Config{}, discardLogger())

	n := &recordingNotifier{name: "test"}
	if err := w.Register(n); err != nil {
		t.Fatalf("Register() = %v", err)
	}

	if err := w.Start(); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	defer w.Stop()

	// Seed: Tethering=false, nothing delivered.
	poster.runOne(t)
	if len(n.ons) != 0 {
		t.Fatalf("seed delivered %v, want nothing", n.ons)
	}

	conn.send(tetheringSignal(DefaultTechnology, true))
	poster.runOne(t)
	conn.send(tetheringSignal(DefaultTechnology, true))
	poster.runOne(t)
	conn.send(tetheringSignal(DefaultTechnology, false))
	poster.runOne(t)

	if len(n.ons) != 2 || !n.ons[0] || n.ons[1] {
		t.Fatalf("ons = %v, want [true false]", n.ons)
	}
	if n.techs[0].Type != "wifi" || n.techs[0].Path != DefaultTechnology {
		t.Errorf("tech = %+v", n.techs[0])
	}
}

func TestWatcher_IgnoresOtherTechnologiesAndProperties(t *testing.T) {
	w := NewWatcher(&fakeConn{}, &queuePoster{}, Config{}, discardLogger())
	n := &recordingNotifier{name: "test"}
	_ = w.Register(n)

	w.handleSignal(tetheringSignal("/net/connman/technology/ethernet", true))
	w.handleSignal(&dbus.Signal{
		Path: DefaultTechnology,
		Name: propertyChanged,
		Body: []interface{}{"Powered", dbus.MakeVariant(true)},
	})
	w.handleSignal(&dbus.Signal{
		Path: DefaultTechnology,
		Name: propertyChanged,
		Body: []interface{}{tetheringProperty, dbus.MakeVariant("yes")},
	})

	if len(n.ons) != 0 {
		t.Errorf("delivered %v, want nothing", n.ons)
	}
}

func TestWatcher_RegisterUnregister(t *testing.T) {
	w := NewWatcher(&fakeConn{}, &queuePoster{}, Config{}, discardLogger())
	a := &recordingNotifier{name: "a"}
	b := &recordingNotifier{name: "b"}

	if err := w.Register(a); err != nil {
		t.Fatal(err)
	}
	if err := w.Register(a); err == nil {
		t.Error("Register() twice = nil, want error")
	}
	_ = w.Register(b)
	w.Unregister(a)

	w.setTethering(true)

	if len(a.ons) != 0 {
		t.Errorf("unregistered notifier received %v", a.ons)
	}
	if len(b.ons) != 1 || !b.ons[0] {
		t.Errorf("b received %v, want [true]", b.ons)
	}
	if b.techs[0].Type != "wifi" {
		t.Errorf("Type = %q, want wifi from path", b.techs[0].Type)
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
	cfg.Technology = "wifi"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() = nil, want error for relative path")
	}
}
