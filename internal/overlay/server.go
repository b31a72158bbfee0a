// Package overlay owns and wires every collaborator that makes up the
// packet plane: the virtual interface, the external UDP endpoint, the
// datagram and stream engines, and the router between them.
package overlay

import (
	"fmt"
	"net/netip"
	"sync"
	"sync/atomic"

	"overpass/internal/buffer"
	"overpass/internal/flog"
	"overpass/internal/metrics"
	"overpass/internal/reactor"
	"overpass/internal/router"
	"overpass/internal/transport/datagram"
	"overpass/internal/transport/stream"
	"overpass/internal/tun"

	wgtun "golang.zx2c4.com/wireguard/tun"
)

// DefaultMTU matches the overlay's assumption that one read-some call
// returns exactly one IP datagram; 1500 is the standard Ethernet MTU, and
// the TUN device is created with the same MTU, so a buffer of this size
// holds exactly the largest packet the device delivers.
const DefaultMTU = 1500

// Config holds the Server's construction inputs: where the virtual
// interface lives and where the external endpoint binds.
type Config struct {
	InterfaceNamePattern string // e.g. "ovp%d"
	OverlayAddr          string // local overlay IPv4, e.g. "11.11.11.1"
	OverlayNetmask       string // e.g. "255.255.255.0"
	BindAddr             string // external bind IPv4, e.g. "0.0.0.0"
	BindPort             uint16 // external bind UDP port, e.g. 14358
	MTU                  int    // 0 selects DefaultMTU
}

// Server provisions the virtual interface at construction time and
// wires the datagram/stream engines and router at Start. It does not
// start I/O until Start is called.
type Server struct {
	cfg Config

	reactor *reactor.Reactor
	log     *flog.Logger
	met     *metrics.Metrics

	dev           wgtun.Device
	interfaceName string

	mu     sync.Mutex
	router atomic.Pointer[router.Router]
	dgEng   *datagram.Engine
	strmEng *stream.Engine
}

// fromExternal is the datagram engine's read callback, routing into the
// router once Start has constructed it. A receive completing before the
// router exists (a datagram arriving between the socket binding and the
// router being stored at the end of Start) is logged and dropped rather
// than risking a nil dereference.
func (s *Server) fromExternal(buf *buffer.Buffer) {
	rt := s.router.Load()
	if rt == nil {
		s.log.Warnf("overlay: dropped external packet that arrived before the router was wired")
		return
	}
	rt.FromExternal(buf.Bytes())
}

// fromVirtual is the stream engine's read callback, routing into the
// router with the same not-yet-wired guard as fromExternal.
func (s *Server) fromVirtual(buf *buffer.Buffer) {
	rt := s.router.Load()
	if rt == nil {
		s.log.Warnf("overlay: dropped virtual packet that arrived before the router was wired")
		return
	}
	if err := rt.FromVirtual(buf.Bytes()); err != nil {
		s.log.Warnf("overlay: from_virtual: %v", err)
	}
}

// Construct provisions the virtual interface, assigns the overlay
// address and netmask, and retains the resulting device and interface
// name. It does not start any I/O; call Start for that.
func Construct(cfg Config, r *reactor.Reactor, log *flog.Logger, met *metrics.Metrics) (*Server, error) {
	if cfg.MTU == 0 {
		cfg.MTU = DefaultMTU
	}

	dev, name, err := tun.CreateVirtualInterface(cfg.InterfaceNamePattern, cfg.MTU)
	if err != nil {
		return nil, &InterfaceProvisioningError{Op: "create", Err: err}
	}

	if err := tun.AssignDeviceAddress(name, cfg.OverlayAddr, cfg.OverlayNetmask); err != nil {
		dev.Close()
		return nil, &InterfaceProvisioningError{Op: "assign-address", Err: err}
	}

	return newServer(cfg, dev, name, r, log, met), nil
}

// newServer assembles a Server from an already-provisioned device,
// separated from Construct so tests can supply a fake device without
// requiring real TUN privileges.
func newServer(cfg Config, dev wgtun.Device, interfaceName string, r *reactor.Reactor, log *flog.Logger, met *metrics.Metrics) *Server {
	return &Server{
		cfg:           cfg,
		reactor:       r,
		log:           log,
		met:           met,
		dev:           dev,
		interfaceName: interfaceName,
	}
}

// InterfaceName returns the virtual interface's actual kernel-assigned
// name, which may differ from InterfaceNamePattern (notably on macOS).
func (s *Server) InterfaceName() string { return s.interfaceName }

// Start creates the external UDP endpoint, wires the datagram and
// stream engines, and constructs the router between them.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bindAddr, err := netip.ParseAddr(s.cfg.BindAddr)
	if err != nil {
		return &BindFailureError{Err: fmt.Errorf("parsing bind address %q: %w", s.cfg.BindAddr, err)}
	}
	udpEndpoint, err := datagram.Bind(netip.AddrPortFrom(bindAddr, s.cfg.BindPort))
	if err != nil {
		return &BindFailureError{Err: err}
	}

	streamDev := tun.NewStreamAdapter(s.dev, 0)

	s.dgEng = datagram.New(s.reactor, udpEndpoint, func(from netip.AddrPort, buf *buffer.Buffer) {
		s.fromExternal(buf)
	}, s.cfg.MTU, s.log, s.met)

	s.strmEng = stream.New(s.reactor, s.fromVirtual, streamDev, s.cfg.MTU, s.log, s.met)
	s.strmEng.Start()

	rt := router.New(s.dgEng.SendTo, s.strmEng.Write, s.cfg.BindPort, s.log, s.met)
	s.router.Store(rt)

	return nil
}

// AddKnownClient delegates to the router. Returns ErrNotStarted if
// called before Start.
func (s *Server) AddKnownClient(overlayAddr, externalAddr netip.Addr) error {
	rt := s.router.Load()
	if rt == nil {
		return ErrNotStarted
	}
	rt.AddKnownClient(overlayAddr, externalAddr)
	return nil
}

// Close closes the virtual interface descriptor. Callers should stop
// the reactor first so outstanding async operations quiesce before the
// descriptor they read from disappears.
func (s *Server) Close() error {
	if s.dgEng != nil {
		s.dgEng.Close()
	}
	return s.dev.Close()
}
