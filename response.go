package evdns

import (
	"fmt"

	"github.com/miekg/dns"
)

// Response is a parsed view over one inbound datagram that has already passed the engine's
// matches() check against the Query it answers. Full record decoding (A/AAAA/MX/TXT/…) is
// delegated to github.com/miekg/dns, the assumed parser collaborator — the engine's own wire
// codec only ever needs the header and question, enough to run matches() without trusting a
// third-party unpacker on bytes that might be spoofed.
type Response struct {
	msg *dns.Msg
	raw []byte
}

// parseResponse fully decodes buf, which must already have been approved by wire.Matches.
func parseResponse(buf []byte) (*Response, error) {
	msg := new(dns.Msg)
	if err := msg.Unpack(buf); err != nil {
		return nil, fmt.Errorf("evdns: unpacking response: %w", err)
	}

	return &Response{msg: msg, raw: buf}, nil
}

// ID returns the transaction id echoed by the server.
func (r *Response) ID() uint16 { return r.msg.Id }

// Rcode returns the response code (NOERROR=0, NXDOMAIN=3, SERVFAIL=2, …).
func (r *Response) Rcode() int { return r.msg.Rcode }

// Truncated reports whether the TC bit was set, meaning the caller should retry over TCP.
func (r *Response) Truncated() bool { return r.msg.Truncated }

// Authoritative reports the AA bit.
func (r *Response) Authoritative() bool { return r.msg.Authoritative }

// RecursionAvailable reports the RA bit.
func (r *Response) RecursionAvailable() bool { return r.msg.RecursionAvailable }

// Answer returns the decoded answer-section records.
func (r *Response) Answer() []dns.RR { return r.msg.Answer }

// Authority returns the decoded authority-section records.
func (r *Response) Authority() []dns.RR { return r.msg.Ns }

// Additional returns the decoded additional-section records, including any EDNS OPT.
func (r *Response) Additional() []dns.RR { return r.msg.Extra }

// Bytes returns the raw wire-format datagram this Response was decoded from.
func (r *Response) Bytes() []byte { return r.raw }
