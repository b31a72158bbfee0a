// Package endpoint holds the address shape for a peer's reachable
// (IPv4, UDP port) pair on the underlying network. Overlay addresses are
// plain netip.Addr values and have no type of their own here.
package endpoint

import (
	"fmt"
	"net/netip"
)

// External identifies a peer's reachable address on the underlying IP
// network: its IPv4 address and the UDP port Overpass is listening on
// there. Totally ordered by (address, port); equal by both fields.
type External struct {
	Addr netip.Addr
	Port uint16
}

// NewExternal builds an External endpoint, validating that addr is an
// IPv4 address.
func NewExternal(addr netip.Addr, port uint16) (External, error) {
	if !addr.Is4() {
		return External{}, fmt.Errorf("endpoint: %s is not an IPv4 address", addr)
	}
	return External{Addr: addr, Port: port}, nil
}

func (e External) String() string {
	return fmt.Sprintf("%s:%d", e.Addr, e.Port)
}

// Less orders External endpoints first by address, then by port.
func (e External) Less(other External) bool {
	if c := e.Addr.Compare(other.Addr); c != 0 {
		return c < 0
	}
	return e.Port < other.Port
}

// Equal reports whether e and other name the same address and port.
func (e External) Equal(other External) bool {
	return e.Addr == other.Addr && e.Port == other.Port
}
