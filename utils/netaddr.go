package utils

import (
	"net"
	"strings"
)

// LocalIP guesses the LAN address other devices can reach this host on.
// No packet is sent; the UDP dial only selects the outbound interface.
func LocalIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "127.0.0.1"
	}
	ip := addr.IP.String()
	// VirtualBox host-only and link-local addresses are unreachable from phones.
	if strings.HasPrefix(ip, "192.168.56.") || strings.HasPrefix(ip, "169.254.") {
		return "127.0.0.1"
	}
	return ip
}
