package evdns

import (
	"net"
	"testing"
)

func TestParseIpV4(t *testing.T) {
	ip, err := ParseIp("8.8.8.8")
	if err != nil {
		t.Fatal(err)
	}
	if !ip.IsV4() || ip.IsV6() {
		t.Error("expected v4 address")
	}
	if ip.String() != "8.8.8.8" {
		t.Error("unexpected String()", ip.String())
	}
	if ip.Family() != 1 {
		t.Error("expected family 1 for v4")
	}
}

func TestParseIpV6WithZone(t *testing.T) {
	ip, err := ParseIp("fe80::1%eth0")
	if err != nil {
		t.Fatal(err)
	}
	if !ip.IsV6() {
		t.Error("expected v6 address")
	}
	if ip.Zone() != "eth0" {
		t.Error("expected zone eth0, got", ip.Zone())
	}
	if ip.String() != "fe80::1%eth0" {
		t.Error("unexpected String()", ip.String())
	}
	if ip.Family() != 2 {
		t.Error("expected family 2 for v6")
	}
}

func TestIpEqualIgnoresZone(t *testing.T) {
	a, _ := ParseIp("fe80::1%eth0")
	b, _ := ParseIp("fe80::1%eth1")
	if !a.Equal(b) {
		t.Error("addresses should be equal regardless of zone")
	}
}

func TestIpCompareOrdering(t *testing.T) {
	v4, _ := ParseIp("1.2.3.4")
	v6, _ := ParseIp("::1")
	if v4.Compare(v6) >= 0 {
		t.Error("v4 should sort before v6")
	}

	a, _ := ParseIp("1.2.3.4")
	b, _ := ParseIp("1.2.3.5")
	if a.Compare(b) >= 0 {
		t.Error("1.2.3.4 should sort before 1.2.3.5")
	}
}

func TestParseIpInvalid(t *testing.T) {
	if _, err := ParseIp("not-an-ip"); err == nil {
		t.Error("expected an error for an invalid address")
	}
}

func TestNewIpNormalizes4in6(t *testing.T) {
	v4in6 := net.ParseIP("::ffff:1.2.3.4")
	ip, err := NewIp(v4in6)
	if err != nil {
		t.Fatal(err)
	}
	if !ip.IsV4() {
		t.Error("4-in-6 address should normalize to v4")
	}
}

func TestNewIpNil(t *testing.T) {
	if _, err := NewIp(nil); err == nil {
		t.Error("expected an error for a nil address")
	}
}
