package security

import (
	"errors"
	"net/netip"
	"strings"
)

var ErrInvalidAddress = errors.New("security: invalid address")

// Address is a classified client address.
// For IPv4 the numeric value is kept in network order so that
// range and mask checks reduce to integer comparisons.
type Address struct {
	raw  string
	ipv6 bool
	num  uint32
}

// ParseAddress classifies s as IPv6 (it contains a colon) or IPv4.
func ParseAddress(s string) (Address, error) {
	if s == "" {
		return Address{}, ErrInvalidAddress
	}
	if strings.IndexByte(s, ':') >= 0 {
		ip, err := netip.ParseAddr(s)
		if err != nil || !ip.Is6() || ip.Zone() != "" {
			return Address{}, ErrInvalidAddress
		}
		return Address{raw: s, ipv6: true}, nil
	}
	num, ok := ipv4ToUint32(s)
	if !ok {
		return Address{}, ErrInvalidAddress
	}
	return Address{raw: s, num: num}, nil
}

func (a Address) String() string { return a.raw }

func (a Address) IsIPv6() bool { return a.ipv6 }

// Uint32 returns the numeric IPv4 value, zero for IPv6.
func (a Address) Uint32() uint32 { return a.num }

func ipv4ToUint32(s string) (uint32, bool) {
	ip, err := netip.ParseAddr(s)
	if err != nil || !ip.Is4() {
		return 0, false
	}
	b := ip.As4()
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), true
}
