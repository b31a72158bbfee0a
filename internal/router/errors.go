package router

import (
	"fmt"
	"net/netip"
)

// RouteError is the umbrella kind for router-level failures; every
// route-failure variant implements it. Today UnknownClientError is the
// only subtype, but callers should type-switch on RouteError rather than
// the concrete type.
type RouteError interface {
	error
	routeError()
}

// UnknownClientError is raised when a packet from the virtual side names
// a destination that has no entry in the client map.
type UnknownClientError struct {
	Addr netip.Addr
}

func (e *UnknownClientError) Error() string {
	return fmt.Sprintf("unable to route packet: no client with address '%s'", e.Addr)
}

func (e *UnknownClientError) routeError() {}
