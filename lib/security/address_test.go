package security

import (
	"errors"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
)

func TestParseAddress(t *testing.T) {
	cases := []struct {
		in   string
		v6   bool
		num  uint32
		fail bool
	}{
		{in: "0.0.0.0", num: 0},
		{in: "10.0.0.1", num: 0x0a000001},
		{in: "192.168.1.255", num: 0xc0a801ff},
		{in: "255.255.255.255", num: 0xffffffff},
		{in: "::1", v6: true},
		{in: "0:0:0:0:0:0:10.0.0.1", v6: true},
		{in: "2001:db8::8a2e:370:7334", v6: true},
		{in: "", fail: true},
		{in: "256.1.1.1", fail: true},
		{in: "1.2.3", fail: true},
		{in: "example.com", fail: true},
		{in: "1.2.3.4:80", fail: true},
		{in: "fe80::1%eth0", fail: true},
		{in: ":::", fail: true},
	}
	for _, c := range cases {
		a, err := ParseAddress(c.in)
		if c.fail {
			if !errors.Is(err, ErrInvalidAddress) {
				t.Fatalf("%q: expected ErrInvalidAddress, got %v", c.in, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: unexpected error %v", c.in, err)
		}
		if a.IsIPv6() != c.v6 {
			t.Fatalf("%q: ipv6=%v, want %v", c.in, a.IsIPv6(), c.v6)
		}
		if a.Uint32() != c.num {
			t.Fatalf("%q: num=%#x, want %#x", c.in, a.Uint32(), c.num)
		}
		if a.String() != c.in {
			t.Fatalf("%q: raw form changed to %q", c.in, a.String())
		}
	}
}

func TestParseAddressOrdering(t *testing.T) {
	for i := 0; i < 500; i++ {
		x, y := gofakeit.IPv4Address(), gofakeit.IPv4Address()
		ax, err := ParseAddress(x)
		if err != nil {
			t.Fatalf("%q: %v", x, err)
		}
		ay, err := ParseAddress(y)
		if err != nil {
			t.Fatalf("%q: %v", y, err)
		}
		if (ax.Uint32() == ay.Uint32()) != (x == y) {
			t.Fatalf("%q and %q: integer equality disagrees with text equality", x, y)
		}
	}
}
