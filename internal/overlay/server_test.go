package overlay

import (
	"context"
	"errors"
	"net/netip"
	"os"
	"sync"
	"testing"

	wgtun "golang.zx2c4.com/wireguard/tun"

	"overpass/internal/reactor"
)

// fakeDevice is a minimal wgtun.Device double: Read hands out packets
// queued in pending (blocking when none are queued), every Write recorded.
type fakeDevice struct {
	mu       sync.Mutex
	name     string
	pending  [][]byte
	writes   [][]byte
	closed   bool
	events   chan wgtun.Event
}

func newFakeDevice(name string) *fakeDevice {
	return &fakeDevice{name: name, events: make(chan wgtun.Event)}
}

func (f *fakeDevice) File() *os.File { return nil }

func (f *fakeDevice) Read(bufs [][]byte, sizes []int, offset int) (int, error) {
	f.mu.Lock()
	if len(f.pending) == 0 {
		f.mu.Unlock()
		// Block rather than return, mirroring a real TUN fd with no
		// traffic; none of the tests in this file queue a packet.
		select {}
	}
	pkt := f.pending[0]
	f.pending = f.pending[1:]
	n := copy(bufs[0][offset:], pkt)
	sizes[0] = n
	f.mu.Unlock()
	return 1, nil
}

func (f *fakeDevice) Write(bufs [][]byte, offset int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range bufs {
		f.writes = append(f.writes, append([]byte(nil), b[offset:]...))
	}
	return len(bufs), nil
}

func (f *fakeDevice) MTU() (int, error) { return 1500, nil }
func (f *fakeDevice) Name() (string, error) { return f.name, nil }
func (f *fakeDevice) Events() <-chan wgtun.Event { return f.events }
func (f *fakeDevice) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
func (f *fakeDevice) BatchSize() int { return 1 }

func TestAddKnownClientBeforeStartFails(t *testing.T) {
	r := reactor.New(context.Background())
	defer r.Stop()

	s := newServer(Config{BindAddr: "127.0.0.1", BindPort: 0}, newFakeDevice("fake0"), "fake0", r, nil, nil)
	defer s.Close()

	err := s.AddKnownClient(netip.MustParseAddr("11.11.11.2"), netip.MustParseAddr("1.2.3.4"))
	if !errors.Is(err, ErrNotStarted) {
		t.Fatalf("expected ErrNotStarted, got %v", err)
	}
}

func TestStartWiresRouterAndAddKnownClientSucceeds(t *testing.T) {
	r := reactor.New(context.Background())
	defer r.Stop()

	s := newServer(Config{BindAddr: "127.0.0.1", BindPort: 0}, newFakeDevice("fake0"), "fake0", r, nil, nil)
	defer s.Close()

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := s.AddKnownClient(netip.MustParseAddr("11.11.11.2"), netip.MustParseAddr("1.2.3.4")); err != nil {
		t.Fatalf("AddKnownClient after Start: %v", err)
	}
}

func TestStartRejectsInvalidBindAddr(t *testing.T) {
	r := reactor.New(context.Background())
	defer r.Stop()

	s := newServer(Config{BindAddr: "not-an-ip", BindPort: 0}, newFakeDevice("fake0"), "fake0", r, nil, nil)
	defer s.Close()

	err := s.Start()
	if err == nil {
		t.Fatal("expected Start to fail for an invalid bind address")
	}
	var bindErr *BindFailureError
	if !errors.As(err, &bindErr) {
		t.Fatalf("expected *BindFailureError, got %T", err)
	}
}
