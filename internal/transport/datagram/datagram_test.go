package datagram

import (
	"context"
	"errors"
	"net/netip"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"overpass/internal/buffer"
	"overpass/internal/endpoint"
	"overpass/internal/reactor"
)

// fakeEndpoint scripts a sequence of ReceiveFrom outcomes, mirroring the
// C++ original's test doubles for the datagram engine's suspension point.
type fakeEndpoint struct {
	mu      sync.Mutex
	payload []byte
	sender  netip.AddrPort
	readErr error
	served  bool
	closed  chan struct{}

	sent []sentRecord
}

type sentRecord struct {
	dest netip.AddrPort
	data []byte
}

func (f *fakeEndpoint) ReceiveFrom(buf []byte) (int, netip.AddrPort, error) {
	f.mu.Lock()
	if f.served {
		f.mu.Unlock()
		// Park once the scripted outcome has been delivered, so the loop
		// goroutine waits instead of spinning; Close releases it.
		<-f.closed
		return 0, netip.AddrPort{}, errors.New("fake endpoint closed")
	}
	defer f.mu.Unlock()
	f.served = true
	if f.readErr != nil {
		return 0, netip.AddrPort{}, f.readErr
	}
	n := copy(buf, f.payload)
	return n, f.sender, nil
}

func (f *fakeEndpoint) SendTo(dest netip.AddrPort, data []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := append([]byte(nil), data...)
	f.sent = append(f.sent, sentRecord{dest: dest, data: cp})
	return len(data), nil
}

func (f *fakeEndpoint) Close() error {
	if f.closed != nil {
		close(f.closed)
	}
	return nil
}

func TestDatagramReadSuccess(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	r := reactor.New(context.Background())
	defer r.Stop()

	sender := netip.MustParseAddrPort("10.0.0.9:5555")
	ep := &fakeEndpoint{payload: []byte{0xff}, sender: sender, closed: make(chan struct{})}

	called := make(chan struct{})
	var gotSender netip.AddrPort
	var gotByte byte
	var gotLen int

	e := New(r, ep, func(from netip.AddrPort, buf *buffer.Buffer) {
		gotSender = from
		gotByte = buf.Bytes()[0]
		gotLen = buf.Len()
		close(called)
	}, 1500, nil, nil)
	defer e.Close()

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("callback did not fire within 1s")
	}

	if gotSender != sender {
		t.Errorf("expected sender %s, got %s", sender, gotSender)
	}
	if gotByte != 0xff {
		t.Errorf("expected buffer[0]==0xff, got %#x", gotByte)
	}
	if gotLen < 1 {
		t.Errorf("expected buffer length >= 1, got %d", gotLen)
	}
}

func TestDatagramReadErrorStopsLoop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	r := reactor.New(context.Background())
	defer r.Stop()

	ep := &fakeEndpoint{readErr: errors.New("boom")}

	callbackFired := false
	e := New(r, ep, func(from netip.AddrPort, buf *buffer.Buffer) {
		callbackFired = true
	}, 1500, nil, nil)

	e.Wait()
	if callbackFired {
		t.Fatal("callback should not fire on a read error")
	}
}

func TestSendToForwardsToEndpoint(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	r := reactor.New(context.Background())
	defer r.Stop()

	ep := &fakeEndpoint{readErr: errors.New("no reads expected for this test")}
	e := New(r, ep, func(netip.AddrPort, *buffer.Buffer) {}, 1500, nil, nil)
	defer e.Close()

	dest, err := endpoint.NewExternal(netip.MustParseAddr("1.2.3.4"), 1234)
	if err != nil {
		t.Fatalf("NewExternal: %v", err)
	}

	buf := buffer.Acquire(3)
	copy(buf.Bytes(), []byte("abc"))
	e.SendTo(dest, buf)

	ep.mu.Lock()
	defer ep.mu.Unlock()
	if len(ep.sent) != 1 {
		t.Fatalf("expected 1 send, got %d", len(ep.sent))
	}
	if string(ep.sent[0].data) != "abc" {
		t.Errorf("expected payload %q, got %q", "abc", ep.sent[0].data)
	}
}
