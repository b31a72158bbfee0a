// Package tun provisions the virtual interface: device creation and
// overlay address assignment. Address assignment shells out to the
// platform's network tool, split per-OS into linux/darwin variants.
package tun

import (
	"fmt"

	wgtun "golang.zx2c4.com/wireguard/tun"
)

// CreateVirtualInterface creates a TUN device named after namePattern
// (e.g. "ovp%d") and returns the device handle together with the name
// the kernel actually assigned — on macOS this differs from the
// requested pattern, which the caller must use for address assignment.
func CreateVirtualInterface(namePattern string, mtu int) (wgtun.Device, string, error) {
	dev, err := wgtun.CreateTUN(namePattern, mtu)
	if err != nil {
		return nil, "", fmt.Errorf("tun: creating device %q: %w", namePattern, err)
	}

	actualName, err := dev.Name()
	if err != nil {
		dev.Close()
		return nil, "", fmt.Errorf("tun: reading device name: %w", err)
	}

	return dev, actualName, nil
}
