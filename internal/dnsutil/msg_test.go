package dnsutil

import (
	"testing"

	"github.com/miekg/dns"
)

func checkFatal(t *testing.T, err error, what string) {
	if err != nil {
		t.Fatal("Unexpected failure generating test data ", what, err)
	}
}

func TestFindOPT(t *testing.T) {
	mno := &dns.Msg{}
	if opt := FindOPT(mno); opt != nil {
		t.Error("FindOPT found an OPT RR in an empty message")
	}

	mno.Answer = append(mno.Answer, &dns.OPT{}) // Populate all-but Extra
	mno.Ns = append(mno.Ns, &dns.OPT{})
	if opt := FindOPT(mno); opt != nil {
		t.Error("FindOPT found an OPT RR in an empty Extra list")
	}

	myes := &dns.Msg{}
	newOpt := &dns.OPT{}
	myes.Extra = append(myes.Extra, newOpt)
	opt := FindOPT(myes)
	if opt == nil {
		t.Error("FindOPT did not an OPT RR")
	}

	if newOpt != opt {
		t.Error("FindOPT returned the wrong OPT RR")
	}
}

func TestNewOPT(t *testing.T) {
	opt := NewOPT(4096, true)
	if opt.UDPSize() != 4096 {
		t.Error("NewOPT did not set udp size, got", opt.UDPSize())
	}
	if !opt.Do() {
		t.Error("NewOPT did not set the DO bit")
	}
	if opt.Version() != 0 {
		t.Error("NewOPT should default to EDNS version 0, got", opt.Version())
	}

	opt = NewOPT(512, false)
	if opt.Do() {
		t.Error("NewOPT should not have set the DO bit")
	}
}

// Test RemoveEDNS0FromOPT when multiple OPTs are present. This is potentially a malformed message
// but RemoveEDNS0FromOPT is purposely as aggressive as it can be.
func TestRemoveEDNS0Multiple(t *testing.T) {
	m := &dns.Msg{}
	newOpt := &dns.OPT{}
	newSubOpt := &dns.EDNS0_COOKIE{}
	newOpt.Option = append(newOpt.Option, newSubOpt)
	newOther := &dns.NS{}
	m.Extra = append(m.Extra, newOther, newOpt, newOpt, newOpt, newOther)

	if !RemoveEDNS0FromOPT(m, dns.EDNS0COOKIE) {
		t.Error("RemoveEDNS0FromOPT failed to remove existing COOKIE")
	}

	// RemoveEDNS0FromOPT removes empty OPT RRs which they should be in this case
	opt := FindOPT(m)
	if opt != nil {
		t.Error("FindOPT had unexpected success when an empty OPT should have been removed")
	}

	if len(m.Extra) != 2 {
		t.Error("Should have two remaining NS RRs in Extra. Not", len(m.Extra))
	}
}

// If the OPT has other subopts in it then RemoveEDNS0FromOPT should leave those intact
func TestRemoveNonEmptyOPT(t *testing.T) {
	m := &dns.Msg{}
	newOpt := &dns.OPT{}
	newOpt.Option = append(newOpt.Option,
		&dns.EDNS0_COOKIE{},
		&dns.EDNS0_NSID{},
		&dns.EDNS0_SUBNET{},
		&dns.EDNS0_NSID{})
	m.Extra = append(m.Extra, newOpt)

	if !RemoveEDNS0FromOPT(m, dns.EDNS0SUBNET) {
		t.Error("RemoveEDNS0FromOPT failed to remove embedded EDNS0_SUBNET")
	}

	opt := FindOPT(m) // But FindOPT should succeed!
	if opt == nil {
		t.Fatal("FindOPT failed but it should have found the multi-subopt OPT")
	}
	if len(opt.Option) != 3 {
		t.Error("Wrong number of remaining subopts. Expected 3, got", len(opt.Option))
	}

	// Now remove other types to make sure RemoveEDNS0FromOPT isn't type sensitive

	if !RemoveEDNS0FromOPT(m, dns.EDNS0COOKIE) {
		t.Error("RemoveEDNS0FromOPT failed to remove embedded EDNS0_COOKIE")
	}
	opt = FindOPT(m) // Re-get the opt as it may have been re-generated
	if opt == nil {
		t.Fatal("FindOPT failed but it should have found the multi-subopt OPT")
	}
	if len(opt.Option) != 2 {
		t.Error("Wrong number of remaining subopts. Expected 2, got", len(opt.Option), opt)
	}

	if !RemoveEDNS0FromOPT(m, dns.EDNS0NSID) {
		t.Error("RemoveEDNS0FromOPT failed to remove all embedded EDNS0_NSID")
	}
	opt = FindOPT(m) // Re-get the opt as it may have been re-generated
	if opt != nil {
		t.Error("OPT should have been removed when last subopt was removed")
	}
}
