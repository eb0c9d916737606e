package tether

import (
	"github.com/plexsphere/tetherd/internal/supplicant"
)

type fakeHandler struct {
	id   supplicant.HandlerID
	prop int
	fn   func(int)
}

// fakeHandlers is a minimal ordered handler list shared by the fakes.
type fakeHandlers struct {
	next    *supplicant.HandlerID
	entries []fakeHandler
}

func (h *fakeHandlers) add(prop int, fn func(int)) supplicant.HandlerID {
	*h.next++
	h.entries = append(h.entries, fakeHandler{id: *h.next, prop: prop, fn: fn})
	return *h.next
}

func (h *fakeHandlers) remove(ids ...supplicant.HandlerID) {
	for _, id := range ids {
		for i, e := range h.entries {
			if e.id == id {
				h.entries = append(h.entries[:i:i], h.entries[i+1:]...)
				break
			}
		}
	}
}

func (h *fakeHandlers) emit(prop int) {
	snapshot := append([]fakeHandler(nil), h.entries...)
	for _, e := range snapshot {
		if e.prop == prop {
			e.fn(prop)
		}
	}
}

// fakeSupplicant is a test double for supplicant.Supplicant. It counts
// references, handle acquisitions and removal requests. Like the real
// client it must only be touched from the event loop.
type fakeSupplicant struct {
	valid    bool
	paths    []string
	ifaces   map[string]*fakeInterface
	handlers fakeHandlers
	nextID   supplicant.HandlerID

	refs     int
	maxRefs  int
	acquired int
	removals []string
}

func newFakeSupplicant() *fakeSupplicant {
	s := &fakeSupplicant{
		ifaces: make(map[string]*fakeInterface),
		refs:   1,
	}
	s.maxRefs = 1
	s.handlers.next = &s.nextID
	return s
}

// define sets the remote state of the interface at path.
func (s *fakeSupplicant) define(path, ifname string, caps supplicant.Caps, valid bool) *fakeInterface {
	it, ok := s.ifaces[path]
	if !ok {
		it = &fakeInterface{sup: s, path: path}
		it.handlers.next = &s.nextID
		s.ifaces[path] = it
	}
	it.ifname = ifname
	it.caps = caps
	it.valid = valid
	return it
}

func (s *fakeSupplicant) setValid(valid bool) {
	s.valid = valid
	s.handlers.emit(int(supplicant.PropertyValid))
}

func (s *fakeSupplicant) setInterfaces(paths ...string) {
	s.paths = paths
	s.handlers.emit(int(supplicant.PropertyInterfaces))
}

// handlerCount returns every handler registered on the supplicant and its
// interfaces.
func (s *fakeSupplicant) handlerCount() int {
	n := len(s.handlers.entries)
	for _, it := range s.ifaces {
		n += len(it.handlers.entries)
	}
	return n
}

// ifaceRefs returns the outstanding interface handle references.
func (s *fakeSupplicant) ifaceRefs() int {
	n := 0
	for _, it := range s.ifaces {
		n += it.refs
	}
	return n
}

func (s *fakeSupplicant) Valid() bool { return s.valid }

func (s *fakeSupplicant) Interfaces() []string {
	return append([]string(nil), s.paths...)
}

func (s *fakeSupplicant) AddPropertyChangedHandler(p supplicant.Property, fn func(supplicant.Property)) supplicant.HandlerID {
	return s.handlers.add(int(p), func(v int) { fn(supplicant.Property(v)) })
}

func (s *fakeSupplicant) RemoveHandlers(ids ...supplicant.HandlerID) {
	s.handlers.remove(ids...)
}

func (s *fakeSupplicant) Interface(path string) supplicant.Interface {
	it, ok := s.ifaces[path]
	if !ok {
		it = s.define(path, "", 0, false)
	}
	it.refs++
	s.acquired++
	return it
}

func (s *fakeSupplicant) RemoveInterface(path string) {
	s.removals = append(s.removals, path)
}

func (s *fakeSupplicant) Ref() {
	s.refs++
	if s.refs > s.maxRefs {
		s.maxRefs = s.refs
	}
}

func (s *fakeSupplicant) Unref() {
	s.refs--
}

// fakeInterface is a test double for supplicant.Interface.
type fakeInterface struct {
	sup      *fakeSupplicant
	path     string
	ifname   string
	caps     supplicant.Caps
	valid    bool
	refs     int
	handlers fakeHandlers
}

func (i *fakeInterface) setValid(valid bool) {
	i.valid = valid
	i.handlers.emit(int(supplicant.InterfacePropertyValid))
}

func (i *fakeInterface) setCaps(caps supplicant.Caps) {
	i.caps = caps
	i.handlers.emit(int(supplicant.InterfacePropertyCaps))
}

func (i *fakeInterface) Valid() bool                       { return i.valid }
func (i *fakeInterface) Path() string                      { return i.path }
func (i *fakeInterface) Ifname() string                    { return i.ifname }
func (i *fakeInterface) Caps() supplicant.Caps             { return i.caps }
func (i *fakeInterface) Supplicant() supplicant.Supplicant { return i.sup }

func (i *fakeInterface) AddPropertyChangedHandler(p supplicant.InterfaceProperty, fn func(supplicant.InterfaceProperty)) supplicant.HandlerID {
	return i.handlers.add(int(p), func(v int) { fn(supplicant.InterfaceProperty(v)) })
}

func (i *fakeInterface) RemoveHandlers(ids ...supplicant.HandlerID) {
	i.handlers.remove(ids...)
}

func (i *fakeInterface) Release() {
	i.refs--
}
