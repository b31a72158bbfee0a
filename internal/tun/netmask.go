package tun

import (
	"fmt"
	"net"
)

func netmaskToPrefixLen(netmask string) (int, error) {
	ip := net.ParseIP(netmask).To4()
	if ip == nil {
		return 0, fmt.Errorf("invalid IPv4 netmask %q", netmask)
	}
	ones, bits := net.IPMask(ip).Size()
	if bits != 32 {
		return 0, fmt.Errorf("invalid IPv4 netmask %q", netmask)
	}
	return ones, nil
}
