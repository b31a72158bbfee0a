// Package stream wraps a byte-stream endpoint (the virtual interface
// descriptor) in a perpetual read loop with the same completion policy
// as the datagram engine, minus the sender endpoint.
package stream

import (
	"overpass/internal/buffer"
	"overpass/internal/flog"
	"overpass/internal/metrics"
	"overpass/internal/reactor"
)

// Endpoint is the byte-stream transport the engine drives. A TUN device
// adapter is the production implementation; tests supply fakes.
type Endpoint interface {
	ReadSome(buf []byte) (n int, err error)
	WriteAll(buf []byte) error
}

// ReadCallback is invoked per successful read of at least one byte,
// posted to the reactor. read-some returning any nonzero amount up to
// the engine's buffer size is treated as one packet — this assumes the
// underlying interface delivers exactly one IP datagram per read, which
// holds for TUN descriptors without per-packet metadata headers.
type ReadCallback func(buf *buffer.Buffer)

// Engine must be started with Start once at least one external shared
// reference exists; self-referencing from the constructor is unsafe
// because the read loop goroutine would otherwise race the caller that
// is still assembling the Engine.
type Engine struct {
	endpoint     Endpoint
	reactor      *reactor.Reactor
	readCallback ReadCallback
	bufferSize   int
	log          *flog.Logger
	met          *metrics.Metrics
	done         chan struct{}
	started      bool
}

// New constructs the engine without starting its read loop. Call Start
// once the caller holds whatever shared reference it needs to keep the
// engine reachable across the lifetime of the loop.
func New(r *reactor.Reactor, readCallback ReadCallback, ep Endpoint, bufferSize int, log *flog.Logger, met *metrics.Metrics) *Engine {
	return &Engine{
		endpoint:     ep,
		reactor:      r,
		readCallback: readCallback,
		bufferSize:   bufferSize,
		log:          log,
		met:          met,
		done:         make(chan struct{}),
	}
}

// Start launches the read loop on a dedicated goroutine. Calling Start
// more than once panics, matching the constructor's documented contract.
func (e *Engine) Start() {
	if e.started {
		panic("stream: Engine.Start called twice")
	}
	e.started = true
	go e.loop()
}

func (e *Engine) loop() {
	defer close(e.done)
	for {
		buf := buffer.Acquire(e.bufferSize)
		n, err := e.endpoint.ReadSome(buf.Bytes())
		if err != nil {
			buf.Release()
			e.log.Errorf("stream: read error: %v", err)
			e.met.IncReceiveError("stream")
			return
		}
		if n == 0 {
			buf.Release()
			e.log.Warnf("stream: read returned zero bytes, stopping loop")
			return
		}

		buf.Truncate(n)
		e.reactor.Post(func() {
			defer buf.Release()
			e.readCallback(buf)
		})
	}
}

// Write performs a whole-buffer write, fire-and-forget: errors and
// short writes are logged, not retried, and not reported to the caller.
func (e *Engine) Write(buf *buffer.Buffer) {
	defer buf.Release()
	if err := e.endpoint.WriteAll(buf.Bytes()); err != nil {
		e.log.Errorf("stream: write error: %v", err)
		e.met.IncSendError("stream")
	}
}

// Wait blocks until the read loop has exited.
func (e *Engine) Wait() {
	<-e.done
}
