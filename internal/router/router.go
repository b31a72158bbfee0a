// Package router implements the synchronous, non-blocking packet
// classifier at the center of the packet plane: it holds the overlay to
// external address map and dispatches each packet, in either direction,
// to the correct send callback. It never blocks on I/O itself — sends
// are fire-and-forget callbacks supplied by the overlay server.
package router

import (
	"fmt"
	"net/netip"
	"sync"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"

	"overpass/internal/buffer"
	"overpass/internal/endpoint"
	"overpass/internal/flog"
	"overpass/internal/metrics"
)

// ExternalSender sends a buffer to a peer's external endpoint. Fire and
// forget: the router does not learn whether the send succeeded.
type ExternalSender func(dest endpoint.External, buf *buffer.Buffer)

// VirtualSender writes a buffer to the local virtual interface. Fire and
// forget, same as ExternalSender.
type VirtualSender func(buf *buffer.Buffer)

// Router is constructed once both send callbacks are available and
// lives for the duration of the overlay server.
type Router struct {
	externalSender ExternalSender
	virtualSender  VirtualSender
	overlayPort    uint16

	mu      sync.RWMutex
	clients map[netip.Addr]netip.Addr // overlay addr -> external addr

	log *flog.Logger
	met *metrics.Metrics
}

// New constructs a Router. overlayPort is the single process-wide UDP
// port reused as the destination port for every peer.
func New(externalSender ExternalSender, virtualSender VirtualSender, overlayPort uint16, log *flog.Logger, met *metrics.Metrics) *Router {
	return &Router{
		externalSender: externalSender,
		virtualSender:  virtualSender,
		overlayPort:    overlayPort,
		clients:        make(map[netip.Addr]netip.Addr),
		log:            log,
		met:            met,
	}
}

// AddKnownClient upserts the overlay-address-to-external-address mapping.
// Re-inserting an existing overlay address overwrites the external
// address (last write wins). Safe for concurrent use with FromVirtual.
func (r *Router) AddKnownClient(overlayAddr, externalAddr netip.Addr) {
	r.mu.Lock()
	r.clients[overlayAddr] = externalAddr
	r.mu.Unlock()
}

// FromVirtual forwards an overlay-egress packet toward its external
// peer. The packet's destination IPv4 address is looked up in the
// client map; a miss reports UnknownClientError and forwards nothing.
func (r *Router) FromVirtual(packet []byte) error {
	var ip4 layers.IPv4
	if err := ip4.DecodeFromBytes(packet, gopacket.NilDecodeFeedback); err != nil {
		return fmt.Errorf("router: decoding packet from virtual interface: %w", err)
	}

	dst, ok := netip.AddrFromSlice(ip4.DstIP.To4())
	if !ok {
		return fmt.Errorf("router: packet destination %s is not a valid IPv4 address", ip4.DstIP)
	}

	r.mu.RLock()
	external, known := r.clients[dst]
	r.mu.RUnlock()

	if !known {
		r.met.IncUnknownClientDrops()
		return &UnknownClientError{Addr: dst}
	}

	dest, err := endpoint.NewExternal(external, r.overlayPort)
	if err != nil {
		return fmt.Errorf("router: building external endpoint for %s: %w", dst, err)
	}

	buf := buffer.Acquire(len(packet))
	n := copy(buf.Bytes(), packet)
	buf.Truncate(n)

	r.log.Debugf("routing %d bytes from virtual to %s (overlay %s)", n, dest, dst)
	r.met.AddFromVirtual(n)
	r.externalSender(dest, buf)
	return nil
}

// FromExternal forwards an incoming encapsulated packet toward the local
// overlay stack. No address lookup is performed: the local network stack
// routes by the packet's own destination field once it's handed off the
// virtual interface.
func (r *Router) FromExternal(packet []byte) {
	buf := buffer.Acquire(len(packet))
	n := copy(buf.Bytes(), packet)
	buf.Truncate(n)

	r.log.Debugf("routing %d bytes from external to virtual", n)
	r.met.AddFromExternal(n)
	r.virtualSender(buf)
}
