package evdns

import (
	"bytes"
	"fmt"
	"net"
)

// Ip is an immutable network address, either a 4-byte IPv4 or 16-byte IPv6 value. Zone carries an
// IPv6 scope id (e.g. "eth0" in "fe80::1%eth0") for link-local addresses, per
// include/dnscpp/ip.h's interface-name constructor overload in the library this engine's address
// handling was grounded on.
type Ip struct {
	addr net.IP
	zone string
}

// NewIp constructs an Ip from a standard library net.IP, normalizing 4-in-6 representations to
// their 4-byte form so two textually-equal addresses always compare equal.
func NewIp(addr net.IP) (Ip, error) {
	if addr == nil {
		return Ip{}, fmt.Errorf("evdns: nil address")
	}
	if v4 := addr.To4(); v4 != nil {
		return Ip{addr: v4}, nil
	}
	if v6 := addr.To16(); v6 != nil {
		return Ip{addr: v6}, nil
	}

	return Ip{}, fmt.Errorf("evdns: address %v is neither v4 nor v6", addr)
}

// NewIpWithZone is NewIp plus an explicit IPv6 scope id.
func NewIpWithZone(addr net.IP, zone string) (Ip, error) {
	ip, err := NewIp(addr)
	if err != nil {
		return Ip{}, err
	}
	ip.zone = zone

	return ip, nil
}

// ParseIp parses a textual address, accepting an IPv6 zone suffix ("fe80::1%eth0").
func ParseIp(s string) (Ip, error) {
	host, zone := s, ""
	if i := lastIndexByte(s, '%'); i >= 0 {
		host, zone = s[:i], s[i+1:]
	}
	addr := net.ParseIP(host)
	if addr == nil {
		return Ip{}, fmt.Errorf("evdns: invalid address %q", s)
	}

	return NewIpWithZone(addr, zone)
}

func lastIndexByte(s string, b byte) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == b {
			return i
		}
	}

	return -1
}

// IsV4 reports whether this is a 4-byte address.
func (ip Ip) IsV4() bool {
	return len(ip.addr) == net.IPv4len
}

// IsV6 reports whether this is a 16-byte address.
func (ip Ip) IsV6() bool {
	return len(ip.addr) == net.IPv6len
}

// Zone returns the IPv6 scope id, or "" if none or not applicable.
func (ip Ip) Zone() string {
	return ip.zone
}

// Std returns the net.IP form of this address, suitable for net.Dial/net.ListenUDP.
func (ip Ip) Std() net.IP {
	return append(net.IP{}, ip.addr...)
}

// String renders the address, appending "%zone" when a zone is set.
func (ip Ip) String() string {
	if len(ip.addr) == 0 {
		return "<nil>"
	}
	s := ip.addr.String()
	if ip.zone != "" {
		s += "%" + ip.zone
	}

	return s
}

// Family returns 1 for IPv4 and 2 for IPv6, matching RFC1700's Address Family Numbers used in
// EDNS Client Subnet and similar wire encodings.
func (ip Ip) Family() int {
	if ip.IsV4() {
		return 1
	}

	return 2
}

// Compare defines a total order: IPv4 sorts before IPv6, then lexicographic byte comparison.
// Equal-length, equal-byte addresses with different zones still compare equal — the zone is
// metadata about which interface to use, not part of the address's identity.
func (ip Ip) Compare(other Ip) int {
	if len(ip.addr) != len(other.addr) {
		if len(ip.addr) < len(other.addr) {
			return -1
		}

		return 1
	}

	return bytes.Compare(ip.addr, other.addr)
}

// Equal reports whether two Ips have the same address (ignoring zone).
func (ip Ip) Equal(other Ip) bool {
	return ip.Compare(other) == 0
}
