package evdns

import (
	"github.com/evdns-go/evdns/internal/wire"
)

// Query is the immutable outbound wire buffer for one question, plus the metadata needed to
// validate a candidate reply and, on TCP fallback, to resend the exact same bytes.
type Query struct {
	id     uint16
	opcode int
	name   string
	qtype  uint16
	qclass uint16
	bits   Bits
	udpSize uint16
	wire   []byte
}

// newQuery builds a Query via the wire codec. Fails if name is empty or too long — the two
// synchronous failure modes §4.A and §7 name (qtype has no out-of-range value to reject: it is a
// uint16, and §4.A's 0..65535 requirement is exactly that type's range).
func newQuery(id uint16, name string, qtype uint16, bits Bits, udpSize uint16) (*Query, error) {
	if name == "" {
		return nil, ErrEmptyName
	}

	buf, err := wire.BuildQuery(id, wire.OpcodeQuery, name, qtype, 1, wire.BuildOptions{
		RD: bits.RD, AD: bits.AD, CD: bits.CD, DO: bits.DO,
	}, udpSize)
	if err != nil {
		if err == wire.ErrNameTooLong || err == wire.ErrLabelTooLong {
			return nil, ErrNameTooLong
		}

		return nil, err
	}

	return &Query{
		id: id, opcode: wire.OpcodeQuery, name: name, qtype: qtype, qclass: 1,
		bits: bits, udpSize: udpSize, wire: buf,
	}, nil
}

// ID returns the 16-bit transaction id this query was assembled with.
func (q *Query) ID() uint16 { return q.id }

// Name returns the question name as presented to Query (after search-list expansion, if any).
func (q *Query) Name() string { return q.name }

// Type returns the question's RR type.
func (q *Query) Type() uint16 { return q.qtype }

// Bits returns the flag set this query was built with.
func (q *Query) Bits() Bits { return q.bits }

// Bytes returns the raw wire-format query, suitable for sending over UDP or, with the RFC1035
// 4.2.2 2-byte length prefix prepended, over TCP.
func (q *Query) Bytes() []byte { return q.wire }
