//go:build darwin

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
// brings it up, via ifconfig. utun devices require the peer address
// argument even in point-to-point-less overlay mode; we pass the same
// address as both local and "peer" since the overlay routes by
// destination IP, not by a true point-to-point peer.
func AssignDeviceAddress(name, ipv4, netmask string) error {
	if err := run("ifconfig", name, "inet", ipv4, ipv4, "netmask", netmask, "up"); err != nil {
		return fmt.Errorf("tun: assigning address to %s: %w", name, err)
	}
	return nil
}
