//go:build linux

package tun

import (
	"fmt"
	"os/exec"
	"strings"
)

func run(name string, args ...string) error {
	out, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %s: %s: %w", name, strings.Join(args, " "), strings.TrimSpace(string(out)), err)
	}
	return nil
}

// AssignDeviceAddress assigns ipv4/netmask to the named interface and
// brings it up, via iproute2.
func AssignDeviceAddress(name, ipv4, netmask string) error {
	prefix, err := netmaskToPrefixLen(netmask)
	if err != nil {
		return fmt.Errorf("tun: %w", err)
	}

	if err := run("ip", "addr", "add", fmt.Sprintf("%s/%d", ipv4, prefix), "dev", name); err != nil {
		return fmt.Errorf("tun: assigning address to %s: %w", name, err)
	}
	if err := run("ip", "link", "set", "dev", name, "up"); err != nil {
		return fmt.Errorf("tun: bringing up %s: %w", name, err)
	}
	return nil
}
