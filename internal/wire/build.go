/*
Package wire implements the RFC1035 header/question encoding and decoding this engine needs to
build outbound queries and triage inbound datagrams before handing a validated message off to
github.com/miekg/dns for full record decoding.
*/
package wire

import (
	"encoding/binary"
)

// Opcode values this engine cares about (RFC1035 4.1.1, RFC2136 for UPDATE).
const (
	OpcodeQuery  = 0
	OpcodeIQuery = 1
	OpcodeStatus = 2
	OpcodeNotify = 4
	OpcodeUpdate = 5
)

// HeaderSize is the fixed 12-byte RFC1035 message header.
const HeaderSize = 12

// BuildOptions carries the flag bits that influence header construction.
type BuildOptions struct {
	RD bool // Recursion desired
	AD bool // Authenticated data requested
	CD bool // Checking disabled
	DO bool // DNSSEC OK (carried in the EDNS OPT record, not the header)
}

// BuildQuery encodes a single-question outbound query: a 12-byte header, the compressed question,
// and a trailing EDNS(0) OPT pseudo-record advertising udpSize and the DO bit. opcode is normally
// OpcodeQuery; OpcodeNotify additionally carries the question as its sole answer-section record
// per RFC1996, which this engine does not originate, so that case is left to the caller to extend
// if ever needed — out of scope for a stub resolver. qtype/qclass are uint16, so they are
// already constrained to the wire format's 0..65535 range by the type system; there is nothing
// further to validate there.
func BuildQuery(id uint16, opcode int, name string, qtype, qclass uint16, opts BuildOptions, udpSize uint16) ([]byte, error) {
	buf := make([]byte, HeaderSize, HeaderSize+len(name)+16)

	binary.BigEndian.PutUint16(buf[0:2], id)

	var flags uint16
	flags |= uint16(opcode&0xF) << 11
	if opts.RD {
		flags |= 1 << 8
	}
	if opts.AD {
		flags |= 1 << 5
	}
	if opts.CD {
		flags |= 1 << 4
	}
	binary.BigEndian.PutUint16(buf[2:4], flags)

	binary.BigEndian.PutUint16(buf[4:6], 1) // QDCOUNT
	binary.BigEndian.PutUint16(buf[6:8], 0) // ANCOUNT
	binary.BigEndian.PutUint16(buf[8:10], 0) // NSCOUNT
	binary.BigEndian.PutUint16(buf[10:12], 1) // ARCOUNT — the trailing OPT record

	var err error
	buf, err = AppendName(buf, name)
	if err != nil {
		return nil, err
	}

	buf = binary.BigEndian.AppendUint16(buf, qtype)
	buf = binary.BigEndian.AppendUint16(buf, qclass)

	buf = appendOPT(buf, udpSize, opts.DO)

	return buf, nil
}

// appendOPT appends an empty-owner-name OPT pseudo-record (RFC6891 6.1.2): NAME=root, TYPE=OPT
// (41), CLASS=requestor's UDP payload size, TTL carries extended-rcode/version/flags, RDLENGTH=0.
func appendOPT(buf []byte, udpSize uint16, do bool) []byte {
	buf = append(buf, 0) // root owner name
	buf = binary.BigEndian.AppendUint16(buf, 41)  // TYPE=OPT
	buf = binary.BigEndian.AppendUint16(buf, udpSize) // CLASS=UDP payload size

	var ttl uint32 // extended-rcode(8) | version(8) | DO(1) | Z(15)
	if do {
		ttl |= 1 << 15
	}
	buf = binary.BigEndian.AppendUint32(buf, ttl)
	buf = binary.BigEndian.AppendUint16(buf, 0) // RDLENGTH=0, no options

	return buf
}
