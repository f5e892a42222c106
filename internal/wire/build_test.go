package wire

import (
	"testing"
)

func TestBuildQueryRoundTrip(t *testing.T) {
	tt := []struct {
		name   string
		qtype  uint16
		qclass uint16
	}{
		{"example.com", 1, 1},
		{"example.com.", 1, 1},
		{"a.b.c.example.net", 28, 1},
		{".", 2, 1},
	}

	for _, tc := range tt {
		buf, err := BuildQuery(0x1234, OpcodeQuery, tc.name, tc.qtype, tc.qclass, BuildOptions{RD: true}, 4096)
		if err != nil {
			t.Fatalf("BuildQuery(%q) failed: %v", tc.name, err)
		}

		hdr, err := ParseHeader(buf)
		if err != nil {
			t.Fatalf("ParseHeader failed: %v", err)
		}
		if hdr.ID != 0x1234 {
			t.Error("id mismatch", hdr.ID)
		}
		if !hdr.RecursionDesired {
			t.Error("expected RD set")
		}
		if hdr.Qdcount != 1 {
			t.Error("expected qdcount=1, got", hdr.Qdcount)
		}
		if hdr.Arcount != 1 {
			t.Error("expected arcount=1 for OPT, got", hdr.Arcount)
		}

		questions, _, err := ParseQuestions(buf, hdr.Qdcount)
		if err != nil {
			t.Fatalf("ParseQuestions failed: %v", err)
		}
		if len(questions) != 1 {
			t.Fatal("expected exactly one question")
		}
		if !equalNameFold(questions[0].Name, tc.name) {
			t.Errorf("decoded name %q does not match input %q", questions[0].Name, tc.name)
		}
		if questions[0].Qtype != tc.qtype || questions[0].Qclass != tc.qclass {
			t.Error("type/class mismatch")
		}
	}
}

func TestBuildQueryDOBit(t *testing.T) {
	buf, err := BuildQuery(1, OpcodeQuery, "example.com", 1, 1, BuildOptions{DO: true}, 4096)
	if err != nil {
		t.Fatal(err)
	}
	// OPT TTL is the last 4 bytes before the trailing RDLENGTH uint16: extended-rcode, version,
	// then the 16-bit flags field whose top bit is DO (RFC6891 6.1.3).
	ttl := buf[len(buf)-6 : len(buf)-2]
	if ttl[2]&0x80 == 0 {
		t.Error("expected DO bit set in the top bit of the OPT TTL flags field")
	}
}

func TestAppendNameTooLong(t *testing.T) {
	long := make([]byte, 64)
	for i := range long {
		long[i] = 'a'
	}
	_, err := AppendName(nil, string(long)+".com")
	if err != ErrLabelTooLong {
		t.Error("expected ErrLabelTooLong, got", err)
	}
}
