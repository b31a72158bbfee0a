package tun

import (
	"fmt"

	wgtun "golang.zx2c4.com/wireguard/tun"
)

// StreamAdapter exposes a wgtun.Device's batched Read/Write API as the
// single-buffer ReadSome/WriteAll shape internal/transport/stream.Engine
// expects. The stream engine reads and writes one packet per call, so
// the adapter always requests a batch of size one.
type StreamAdapter struct {
	dev    wgtun.Device
	offset int
	bufs   [][]byte
	sizes  []int
}

// NewStreamAdapter wraps dev. offset is the byte count the device
// reserves at the front of each buffer for its own framing (0 on Linux
// and macOS, since the TUN device carries no per-packet metadata
// header).
func NewStreamAdapter(dev wgtun.Device, offset int) *StreamAdapter {
	return &StreamAdapter{
		dev:    dev,
		offset: offset,
		bufs:   make([][]byte, 1),
		sizes:  make([]int, 1),
	}
}

func (a *StreamAdapter) ReadSome(buf []byte) (int, error) {
	a.bufs[0] = buf
	n, err := a.dev.Read(a.bufs, a.sizes, a.offset)
	if err != nil {
		return 0, fmt.Errorf("tun: read: %w", err)
	}
	if n == 0 {
		return 0, nil
	}
	return a.sizes[0], nil
}

func (a *StreamAdapter) WriteAll(buf []byte) error {
	a.bufs[0] = buf
	n, err := a.dev.Write(a.bufs, a.offset)
	if err != nil {
		return fmt.Errorf("tun: write: %w", err)
	}
	if n < len(a.bufs) {
		return fmt.Errorf("tun: short write: wrote %d of %d packets", n, len(a.bufs))
	}
	return nil
}
