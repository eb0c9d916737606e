// Package supplicant tracks wpa_supplicant and the wireless interfaces it
// exposes.
//
// The Supplicant and Interface contracts mirror what a client library for
// the supplicant offers: validity flags that flip once the remote object has
// been fetched, property-change handlers, and counted handles. Client
// implements them over D-Bus. Handlers always run on the event loop that the
// client posts to.
package supplicant

import "strings"

// Property identifies a supplicant-level property.
type Property int

const (
	// PropertyValid changes when the supplicant service appears or vanishes.
	PropertyValid Property = iota
	// PropertyInterfaces changes when the interface path list changes.
	PropertyInterfaces
)

// String returns the property name.
func (p Property) String() string {
	switch p {
	case PropertyValid:
		return "valid"
	case PropertyInterfaces:
		return "interfaces"
	default:
		return "unknown"
	}
}

// InterfaceProperty identifies an interface-level property.
type InterfaceProperty int

const (
	// InterfacePropertyValid changes when the interface object is fetched
	// or removed.
	InterfacePropertyValid InterfaceProperty = iota
	// InterfacePropertyCaps changes when the capability set changes.
	InterfacePropertyCaps
)

// String returns the property name.
func (p InterfaceProperty) String() string {
	switch p {
	case InterfacePropertyValid:
		return "valid"
	case InterfacePropertyCaps:
		return "caps"
	default:
		return "unknown"
	}
}

// Caps is the set of operating modes an interface supports.
type Caps uint32

const (
	CapsModeInfrastructure Caps = 1 << iota
	CapsModeAdHoc
	CapsModeAP
	CapsModeP2P
	CapsModeMesh
)

var capsNames = []struct {
	flag Caps
	name string
}{
	{CapsModeInfrastructure, "infrastructure"},
	{CapsModeAdHoc, "ad-hoc"},
	{CapsModeAP, "ap"},
	{CapsModeP2P, "p2p"},
	{CapsModeMesh, "mesh"},
}

// Has reports whether every flag in f is set.
func (c Caps) Has(f Caps) bool {
	return c&f == f
}

// String returns the mode names joined with "|".
func (c Caps) String() string {
	var names []string
	for _, n := range capsNames {
		if c.Has(n.flag) {
			names = append(names, n.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// ParseModes converts supplicant mode names to Caps. Unknown names are
// ignored.
func ParseModes(modes []string) Caps {
	var c Caps
	for _, m := range modes {
		for _, n := range capsNames {
			if m == n.name {
				c |= n.flag
			}
		}
	}
	return c
}

// HandlerID identifies a registered property-change handler. The zero value
// is never issued and is ignored by RemoveHandlers.
type HandlerID uint64

// Supplicant is a counted handle on the supplicant service.
type Supplicant interface {
	// Valid reports whether the service is present and its properties
	// have been fetched.
	Valid() bool
	// Interfaces returns the object paths of the interfaces the service
	// currently manages, in the order the service reports them.
	Interfaces() []string
	AddPropertyChangedHandler(p Property, fn func(Property)) HandlerID
	RemoveHandlers(ids ...HandlerID)
	// Interface acquires a counted handle for the interface at path. The
	// handle starts invalid until the interface object has been fetched.
	Interface(path string) Interface
	// RemoveInterface asks the service to remove the interface at path.
	// The request is fire-and-forget; its result is ignored.
	RemoveInterface(path string)
	Ref()
	Unref()
}

// Interface is a counted handle on one supplicant interface object.
type Interface interface {
	Valid() bool
	Path() string
	Ifname() string
	Caps() Caps
	// Supplicant returns the service owning this interface.
	Supplicant() Supplicant
	AddPropertyChangedHandler(p InterfaceProperty, fn func(InterfaceProperty)) HandlerID
	RemoveHandlers(ids ...HandlerID)
	// Release drops the reference acquired with Supplicant.Interface.
	Release()
}
