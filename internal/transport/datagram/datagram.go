// Package datagram wraps a UDP-like endpoint in a perpetual receive loop.
// A dedicated goroutine blocks on the endpoint's receive call; successful
// completions are posted to the reactor rather than invoked inline, so
// the read-completion hot path never pays for callback latency.
package datagram

import (
	"fmt"
	"net"
	"net/netip"

	"overpass/internal/buffer"
	"overpass/internal/endpoint"
	"overpass/internal/flog"
	"overpass/internal/metrics"
	"overpass/internal/reactor"
)

// Endpoint is the datagram transport the engine drives. *UDPConn is the
// production implementation; tests supply fakes.
type Endpoint interface {
	ReceiveFrom(buf []byte) (n int, from netip.AddrPort, err error)
	SendTo(dest netip.AddrPort, data []byte) (n int, err error)
	Close() error
}

// UDPConn adapts *net.UDPConn to Endpoint.
type UDPConn struct {
	conn *net.UDPConn
}

// Bind opens a UDP socket on bind and returns it wrapped as an Endpoint.
func Bind(bind netip.AddrPort) (*UDPConn, error) {
	conn, err := net.ListenUDP("udp4", net.UDPAddrFromAddrPort(bind))
	if err != nil {
		return nil, fmt.Errorf("datagram: bind %s: %w", bind, err)
	}
	return &UDPConn{conn: conn}, nil
}

func (u *UDPConn) ReceiveFrom(buf []byte) (int, netip.AddrPort, error) {
	n, addrPort, err := u.conn.ReadFromUDPAddrPort(buf)
	return n, addrPort, err
}

func (u *UDPConn) SendTo(dest netip.AddrPort, data []byte) (int, error) {
	return u.conn.WriteToUDPAddrPort(data, dest)
}

func (u *UDPConn) Close() error { return u.conn.Close() }

// ReadCallback is invoked on the reactor once per successful receive of
// at least one byte. buf is released by the engine after the callback
// returns unless the callback retains it (buf.Retain()).
type ReadCallback func(sender netip.AddrPort, buf *buffer.Buffer)

// Engine runs the perpetual receive loop: one outstanding receive at a
// time, each completion posted to the reactor before the next is armed.
type Engine struct {
	reactor      *reactor.Reactor
	endpoint     Endpoint
	readCallback ReadCallback
	bufferSize   int
	log          *flog.Logger
	met          *metrics.Metrics
	done         chan struct{}
}

// New constructs the engine and immediately schedules the first receive
// on a dedicated goroutine.
func New(r *reactor.Reactor, ep Endpoint, readCallback ReadCallback, bufferSize int, log *flog.Logger, met *metrics.Metrics) *Engine {
	e := &Engine{
		reactor:      r,
		endpoint:     ep,
		readCallback: readCallback,
		bufferSize:   bufferSize,
		log:          log,
		met:          met,
		done:         make(chan struct{}),
	}
	go e.loop()
	return e
}

func (e *Engine) loop() {
	defer close(e.done)
	for {
		buf := buffer.Acquire(e.bufferSize)
		n, sender, err := e.endpoint.ReceiveFrom(buf.Bytes())
		if err != nil {
			buf.Release()
			e.log.Errorf("datagram: receive error: %v", err)
			e.met.IncReceiveError("datagram")
			return
		}
		if n == 0 {
			buf.Release()
			e.log.Warnf("datagram: receive returned zero bytes, stopping loop")
			return
		}

		buf.Truncate(n)
		e.reactor.Post(func() {
			defer buf.Release()
			e.readCallback(sender, buf)
		})
	}
}

// SendTo synchronously enqueues a send of buf's contents to dest and
// returns once queued. Failures are logged; the send is not retried.
func (e *Engine) SendTo(dest endpoint.External, buf *buffer.Buffer) {
	defer buf.Release()
	addrPort := netip.AddrPortFrom(dest.Addr, dest.Port)
	n, err := e.endpoint.SendTo(addrPort, buf.Bytes())
	if err != nil {
		e.log.Errorf("datagram: send to %s failed: %v", dest, err)
		e.met.IncSendError("datagram")
		return
	}
	if n < buf.Len() {
		e.log.Warnf("datagram: short send to %s: wrote %d of %d bytes", dest, n, buf.Len())
		e.met.IncSendError("datagram")
	}
}

// Close closes the underlying endpoint, which unblocks the receive loop
// with an error and lets it exit. Wait can then be used to confirm exit.
func (e *Engine) Close() error {
	return e.endpoint.Close()
}

// Wait blocks until the receive loop has exited, following a Close.
func (e *Engine) Wait() {
	<-e.done
}
